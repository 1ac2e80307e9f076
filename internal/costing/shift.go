package costing

import (
	"errors"
	"time"

	"foodyar/backend/internal/domain"
)

var ErrShiftClosed = errors.New("shift already closed")

type PaymentTotals struct {
	Cash   float64
	Card   float64
	Online float64
}

// SumPayments totals the sales tagged with shiftID by payment method. Void
// sales are not money and are left out.
func SumPayments(shiftID string, sales []domain.Sale) PaymentTotals {
	var totals PaymentTotals
	for _, sale := range sales {
		if sale.ShiftID != shiftID {
			continue
		}
		switch sale.PaymentMethod {
		case domain.PaymentCash:
			totals.Cash += sale.TotalAmount
		case domain.PaymentCard:
			totals.Card += sale.TotalAmount
		case domain.PaymentOnline:
			totals.Online += sale.TotalAmount
		}
	}
	return totals
}

// CloseShift builds the Z-report for an open shift. The transition is one-way.
func CloseShift(shift domain.Shift, sales []domain.Sale, actualCash float64, bankDeposit float64, at time.Time) (domain.Shift, error) {
	if shift.Status == domain.ShiftStatusClosed {
		return domain.Shift{}, ErrShiftClosed
	}
	totals := SumPayments(shift.ID, sales)

	closed := shift
	closed.CashSales = totals.Cash
	closed.CardSales = totals.Card
	closed.OnlineSales = totals.Online
	closed.ExpectedCashSales = shift.StartingCash + totals.Cash
	closed.ActualCashSales = actualCash
	closed.Discrepancy = actualCash - closed.ExpectedCashSales
	closed.BankDeposit = bankDeposit
	closed.EndTime = &at
	closed.Status = domain.ShiftStatusClosed
	return closed, nil
}

var saleStatusOrder = map[domain.SaleStatus]int{
	domain.SaleStatusPending:   0,
	domain.SaleStatusPreparing: 1,
	domain.SaleStatusReady:     2,
	domain.SaleStatusDelivered: 3,
}

// CanTransition allows forward moves only. Delivered is terminal.
func CanTransition(from domain.SaleStatus, to domain.SaleStatus) bool {
	fromRank, ok := saleStatusOrder[from]
	if !ok {
		return false
	}
	toRank, ok := saleStatusOrder[to]
	if !ok {
		return false
	}
	return toRank > fromRank
}
