package service

import (
	"context"
	"strings"
	"time"

	"foodyar/backend/internal/costing"
	"foodyar/backend/internal/domain"
	"foodyar/backend/internal/store"
)

func isExpenseCategory(category domain.ExpenseCategory) bool {
	switch category {
	case domain.ExpenseRent, domain.ExpenseSalary, domain.ExpenseUtilities,
		domain.ExpenseMarketing, domain.ExpenseMaintenance, domain.ExpenseOther:
		return true
	}
	return false
}

func (s *Service) ListExpenses(ctx context.Context, from time.Time, to time.Time) ([]domain.Expense, error) {
	return s.repo.ListExpenses(ctx, from, to)
}

func (s *Service) CreateExpense(ctx context.Context, req domain.Expense) (domain.Expense, error) {
	if err := requireRole(ctx, domain.RoleManager); err != nil {
		return domain.Expense{}, err
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	if req.Title == "" {
		return domain.Expense{}, invalidf("title is required")
	}
	if req.Amount <= 0 {
		return domain.Expense{}, invalidf("amount must be positive")
	}
	if req.Category == "" {
		req.Category = domain.ExpenseOther
	}
	if !isExpenseCategory(req.Category) {
		return domain.Expense{}, invalidf("unknown expense category %q", req.Category)
	}
	if req.Date.IsZero() {
		req.Date = s.now()
	}
	req.ID = ""

	created, err := s.repo.CreateExpense(ctx, req)
	if err != nil {
		return domain.Expense{}, err
	}
	s.logAudit(ctx, domain.AuditCreate, domain.EntityExpense, created.ID, created.Title)
	return *created, nil
}

func (s *Service) DeleteExpense(ctx context.Context, id string) error {
	if err := requireRole(ctx, domain.RoleManager); err != nil {
		return err
	}
	if err := s.repo.DeleteExpense(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, domain.AuditDelete, domain.EntityExpense, id, "")
	return nil
}

// ProfitAndLoss reports the half-open window [from, to). A zero to means now.
func (s *Service) ProfitAndLoss(ctx context.Context, from time.Time, to time.Time) (domain.ProfitAndLoss, error) {
	if to.IsZero() {
		to = s.now()
	}
	if !from.Before(to) {
		return domain.ProfitAndLoss{}, invalidf("from must be before to")
	}
	sales, err := s.repo.ListSales(ctx, store.SaleFilter{From: from, To: to})
	if err != nil {
		return domain.ProfitAndLoss{}, err
	}
	waste, err := s.repo.ListWaste(ctx, from, to)
	if err != nil {
		return domain.ProfitAndLoss{}, err
	}
	expenses, err := s.repo.ListExpenses(ctx, from, to)
	if err != nil {
		return domain.ProfitAndLoss{}, err
	}
	return costing.ProfitAndLoss(sales, waste, expenses, from, to), nil
}

// Dashboard summarises the current UTC day.
func (s *Service) Dashboard(ctx context.Context) (domain.DashboardSummary, error) {
	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	report, err := s.ProfitAndLoss(ctx, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return domain.DashboardSummary{}, err
	}
	low, err := s.LowStock(ctx)
	if err != nil {
		return domain.DashboardSummary{}, err
	}
	short, err := s.PrepShortfall(ctx)
	if err != nil {
		return domain.DashboardSummary{}, err
	}

	summary := domain.DashboardSummary{
		Date:          dayStart.Format("2006-01-02"),
		Revenue:       report.Revenue,
		Profit:        report.GrossProfit,
		SalesCount:    report.SalesCount,
		LowStockCount: len(low),
		PrepShortfall: len(short),
	}
	if shift, err := s.repo.GetOpenShift(ctx); err == nil {
		summary.OpenShiftID = shift.ID
	}
	return summary, nil
}
