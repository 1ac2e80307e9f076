package costing

import (
	"time"

	"foodyar/backend/internal/domain"
)

func WasteLoss(amount float64, costPerUnit float64) float64 {
	return amount * costPerUnit
}

func inRange(at time.Time, from time.Time, to time.Time) bool {
	return !at.Before(from) && at.Before(to)
}

// ProfitAndLoss aggregates the half-open window [from, to).
func ProfitAndLoss(sales []domain.Sale, waste []domain.WasteRecord, expenses []domain.Expense, from time.Time, to time.Time) domain.ProfitAndLoss {
	report := domain.ProfitAndLoss{
		From:           from,
		To:             to,
		ExpensesByType: make(map[domain.ExpenseCategory]float64),
		ByPayment:      make(map[domain.PaymentMethod]float64),
	}

	for _, sale := range sales {
		if !inRange(sale.Timestamp, from, to) {
			continue
		}
		if sale.PaymentMethod == domain.PaymentVoid {
			report.VoidCount++
			continue
		}
		report.SalesCount++
		report.Revenue += sale.TotalAmount
		report.COGS += sale.TotalCost
		report.TaxCollected += sale.Tax
		report.DiscountsGiven += sale.Discount
		report.ByPayment[sale.PaymentMethod] += sale.TotalAmount
	}
	for _, record := range waste {
		if inRange(record.Date, from, to) {
			report.WasteLoss += record.CostLoss
		}
	}
	for _, expense := range expenses {
		if inRange(expense.Date, from, to) {
			report.OperatingExpenses += expense.Amount
			report.ExpensesByType[expense.Category] += expense.Amount
		}
	}

	report.GrossProfit = report.Revenue - report.COGS
	report.NetProfit = report.GrossProfit - report.WasteLoss - report.OperatingExpenses
	if report.Revenue > 0 {
		report.NetMarginPercent = round2(report.NetProfit / report.Revenue * 100)
	}
	return report
}

func round2(value float64) float64 {
	return Round(value*100) / 100
}
