package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"foodyar/backend/internal/costing"
	"foodyar/backend/internal/domain"
	"foodyar/backend/internal/realtime"
	"foodyar/backend/internal/store"
	"foodyar/backend/internal/xid"
)

func isPaymentMethod(method domain.PaymentMethod) bool {
	switch method {
	case domain.PaymentCash, domain.PaymentCard, domain.PaymentOnline, domain.PaymentVoid:
		return true
	}
	return false
}

// Checkout prices the cart against the live catalog and commits the sale and
// its stock deductions as one unit of work. The manager PIN for void sales is
// checked by the caller.
func (s *Service) Checkout(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutResponse, error) {
	if len(req.CartItems) == 0 {
		return domain.CheckoutResponse{}, invalidf("cart is empty")
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = domain.PaymentCash
	}
	if !isPaymentMethod(req.PaymentMethod) {
		return domain.CheckoutResponse{}, invalidf("unknown payment method %q", req.PaymentMethod)
	}
	if req.DiscountType == "" {
		req.DiscountType = domain.DiscountAmount
	}
	if req.DiscountType != domain.DiscountAmount && req.DiscountType != domain.DiscountPercent {
		return domain.CheckoutResponse{}, invalidf("unknown discount type %q", req.DiscountType)
	}
	if req.Discount < 0 || (req.DiscountType == domain.DiscountPercent && req.Discount > 100) {
		return domain.CheckoutResponse{}, invalidf("discount out of range")
	}

	cart := make([]costing.CartLine, 0, len(req.CartItems))
	for _, line := range req.CartItems {
		if line.Quantity <= 0 {
			return domain.CheckoutResponse{}, invalidf("quantity for %s must be positive", line.MenuItemID)
		}
		item, err := s.repo.GetMenuItem(ctx, line.MenuItemID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.CheckoutResponse{}, fmt.Errorf("%w: menu item %s", store.ErrNotFound, line.MenuItemID)
			}
			return domain.CheckoutResponse{}, err
		}
		cart = append(cart, costing.CartLine{Item: *item, Quantity: line.Quantity})
	}

	catalog, _, _, err := s.catalog(ctx)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}
	settled, err := costing.Settle(cart, costing.SettleOptions{
		Discount:       req.Discount,
		DiscountType:   req.DiscountType,
		IncludeTax:     req.IncludeTax,
		TaxRatePercent: s.taxRate,
	}, catalog)
	if err != nil {
		return domain.CheckoutResponse{}, fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
	}

	sale := settled.Sale
	sale.ID = xid.New("sale")
	sale.Timestamp = s.now()
	sale.PaymentMethod = req.PaymentMethod
	sale.TableNumber = strings.TrimSpace(req.TableNumber)

	saved, err := s.repo.CommitSale(ctx, domain.SaleCommit{
		Sale:                sale,
		InventoryDeductions: settled.InventoryDeductions,
		PrepDeductions:      settled.PrepDeductions,
	})
	if err != nil {
		return domain.CheckoutResponse{}, err
	}

	s.logAudit(ctx, domain.AuditSale, domain.EntitySale, saved.ID, fmt.Sprintf("total=%g,payment=%s,items=%d", saved.TotalAmount, saved.PaymentMethod, len(saved.Items)))
	s.publish(realtime.EventSaleCreated, saved)
	s.announceLowStock(ctx, settled.InventoryDeductions)

	return domain.CheckoutResponse{
		Sale:     *saved,
		Subtotal: settled.Subtotal,
		Profit:   costing.Round(settled.AfterDiscount - settled.TotalCost),
	}, nil
}

func (s *Service) ListSales(ctx context.Context, filter store.SaleFilter) ([]domain.Sale, error) {
	return s.repo.ListSales(ctx, filter)
}

func (s *Service) GetSale(ctx context.Context, id string) (domain.Sale, error) {
	sale, err := s.repo.GetSale(ctx, id)
	if err != nil {
		return domain.Sale{}, err
	}
	return *sale, nil
}

func (s *Service) UpdateSaleStatus(ctx context.Context, id string, req domain.SaleStatusRequest) (domain.Sale, error) {
	switch req.Status {
	case domain.SaleStatusPending, domain.SaleStatusPreparing, domain.SaleStatusReady, domain.SaleStatusDelivered:
	default:
		return domain.Sale{}, invalidf("unknown status %q", req.Status)
	}
	saved, err := s.repo.UpdateSaleStatus(ctx, id, req.Status)
	if err != nil {
		return domain.Sale{}, err
	}
	s.logAudit(ctx, domain.AuditUpdate, domain.EntitySale, saved.ID, "status="+string(saved.Status))
	s.publish(realtime.EventSaleStatus, map[string]any{"id": saved.ID, "status": saved.Status, "table_number": saved.TableNumber})
	return *saved, nil
}

func (s *Service) OpenShift(ctx context.Context, req domain.ShiftOpenRequest) (domain.ShiftResponse, error) {
	if req.StartingCash < 0 {
		return domain.ShiftResponse{}, invalidf("starting cash must not be negative")
	}
	operator := strings.TrimSpace(req.OperatorName)
	if operator == "" {
		if actor, ok := ActorFromContext(ctx); ok {
			operator = actor.Username
		}
	}

	saved, err := s.repo.CreateShift(ctx, domain.Shift{
		ID:           xid.New("shift"),
		StartTime:    s.now(),
		StartingCash: req.StartingCash,
		Status:       domain.ShiftStatusOpen,
		OperatorName: operator,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return domain.ShiftResponse{}, fmt.Errorf("%w: a shift is already open", store.ErrConflict)
		}
		return domain.ShiftResponse{}, err
	}
	s.logAudit(ctx, domain.AuditShiftOpen, domain.EntityShift, saved.ID, fmt.Sprintf("starting_cash=%g", saved.StartingCash))
	return domain.ShiftResponse{Shift: *saved}, nil
}

// CurrentShift returns the open shift with its running payment totals.
func (s *Service) CurrentShift(ctx context.Context) (domain.ShiftResponse, error) {
	shift, err := s.repo.GetOpenShift(ctx)
	if err != nil {
		return domain.ShiftResponse{}, err
	}
	sales, err := s.repo.ListSales(ctx, store.SaleFilter{ShiftID: shift.ID})
	if err != nil {
		return domain.ShiftResponse{}, err
	}
	totals := costing.SumPayments(shift.ID, sales)
	live := *shift
	live.CashSales = totals.Cash
	live.CardSales = totals.Card
	live.OnlineSales = totals.Online
	live.ExpectedCashSales = live.StartingCash + totals.Cash
	return domain.ShiftResponse{Shift: live}, nil
}

// CloseShift produces the Z-report of the open shift.
func (s *Service) CloseShift(ctx context.Context, req domain.ShiftCloseRequest) (domain.ShiftResponse, error) {
	if req.ActualCash < 0 || req.BankDeposit < 0 {
		return domain.ShiftResponse{}, invalidf("cash amounts must not be negative")
	}
	open, err := s.repo.GetOpenShift(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.ShiftResponse{}, fmt.Errorf("%w: no open shift", store.ErrNotFound)
		}
		return domain.ShiftResponse{}, err
	}
	closed, err := s.repo.CloseShift(ctx, open.ID, req.ActualCash, req.BankDeposit, s.now())
	if err != nil {
		return domain.ShiftResponse{}, err
	}

	s.logAudit(ctx, domain.AuditShiftClose, domain.EntityShift, closed.ID, fmt.Sprintf("expected=%g,actual=%g,discrepancy=%g", closed.ExpectedCashSales, closed.ActualCashSales, closed.Discrepancy))
	s.publish(realtime.EventShiftClosed, closed)
	return domain.ShiftResponse{Shift: *closed}, nil
}

func (s *Service) ListShifts(ctx context.Context, limit int) ([]domain.Shift, error) {
	return s.repo.ListShifts(ctx, limit)
}

// RecordWaste writes off spoiled stock at its current unit cost.
func (s *Service) RecordWaste(ctx context.Context, req domain.WasteRequest) (domain.WasteRecord, error) {
	if req.Amount <= 0 {
		return domain.WasteRecord{}, invalidf("amount must be positive")
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "unspecified"
	}

	record := domain.WasteRecord{
		ID:         xid.New("waste"),
		ItemID:     req.ItemID,
		ItemSource: req.ItemSource,
		Amount:     req.Amount,
		Reason:     reason,
		Date:       s.now(),
	}
	switch req.ItemSource {
	case domain.SourcePrep:
		task, err := s.repo.GetPrepTask(ctx, req.ItemID)
		if err != nil {
			return domain.WasteRecord{}, err
		}
		if req.Amount > task.OnHand {
			return domain.WasteRecord{}, invalidf("cannot waste %g %s of %s, only %g on hand", req.Amount, task.Unit, task.Item, task.OnHand)
		}
		record.ItemName = task.Item
		record.Unit = task.Unit
		record.CostLoss = costing.Round(costing.WasteLoss(req.Amount, task.CostPerUnit))
	case "", domain.SourceInventory:
		ing, err := s.repo.GetIngredient(ctx, req.ItemID)
		if err != nil {
			return domain.WasteRecord{}, err
		}
		record.ItemSource = domain.SourceInventory
		record.ItemName = ing.Name
		record.Unit = ing.Unit
		record.CostLoss = costing.Round(costing.WasteLoss(req.Amount, ing.CostPerUnit))
	default:
		return domain.WasteRecord{}, invalidf("unknown item source %q", req.ItemSource)
	}

	saved, err := s.repo.CommitWaste(ctx, record)
	if err != nil {
		return domain.WasteRecord{}, err
	}
	s.logAudit(ctx, domain.AuditWaste, domain.EntityInventory, saved.ItemID, fmt.Sprintf("amount=%g %s,loss=%g,reason=%s", saved.Amount, saved.Unit, saved.CostLoss, saved.Reason))
	if saved.ItemSource == domain.SourceInventory {
		s.announceLowStock(ctx, map[string]float64{saved.ItemID: saved.Amount})
	}
	return *saved, nil
}

func (s *Service) ListWaste(ctx context.Context, from time.Time, to time.Time) ([]domain.WasteRecord, error) {
	return s.repo.ListWaste(ctx, from, to)
}
