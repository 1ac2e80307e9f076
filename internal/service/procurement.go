package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"foodyar/backend/internal/advisor"
	"foodyar/backend/internal/costing"
	"foodyar/backend/internal/domain"
	"foodyar/backend/internal/realtime"
	"foodyar/backend/internal/xid"
)

const maxInvoiceImageBytes = 8 << 20

func (s *Service) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	return s.repo.ListSuppliers(ctx)
}

func normalizeSupplier(req domain.Supplier) (domain.Supplier, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	if req.Name == "" {
		return req, invalidf("supplier name is required")
	}
	return req, nil
}

func (s *Service) CreateSupplier(ctx context.Context, req domain.Supplier) (domain.Supplier, error) {
	req, err := normalizeSupplier(req)
	if err != nil {
		return domain.Supplier{}, err
	}
	req.ID = ""
	created, err := s.repo.CreateSupplier(ctx, req)
	if err != nil {
		return domain.Supplier{}, err
	}
	s.logAudit(ctx, domain.AuditCreate, domain.EntitySupplier, created.ID, "name="+created.Name)
	return *created, nil
}

func (s *Service) UpdateSupplier(ctx context.Context, id string, req domain.Supplier) (domain.Supplier, error) {
	req, err := normalizeSupplier(req)
	if err != nil {
		return domain.Supplier{}, err
	}
	req.ID = id
	saved, err := s.repo.UpdateSupplier(ctx, req)
	if err != nil {
		return domain.Supplier{}, err
	}
	s.logAudit(ctx, domain.AuditUpdate, domain.EntitySupplier, saved.ID, "name="+saved.Name)
	return *saved, nil
}

func (s *Service) DeleteSupplier(ctx context.Context, id string) error {
	if err := s.repo.DeleteSupplier(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, domain.AuditDelete, domain.EntitySupplier, id, "")
	return nil
}

// CreateInvoice confirms a purchase invoice: every line is received into
// stock at a weighted-average cost and the invoice is stored in the same
// unit of work. Lines without an ingredient id create a new ingredient.
func (s *Service) CreateInvoice(ctx context.Context, req domain.InvoiceCreateRequest) (domain.PurchaseInvoice, error) {
	if len(req.Items) == 0 {
		return domain.PurchaseInvoice{}, invalidf("invoice has no items")
	}
	status := req.Status
	if status == "" {
		status = domain.InvoiceUnpaid
	}
	if status != domain.InvoiceUnpaid && status != domain.InvoicePaid {
		return domain.PurchaseInvoice{}, invalidf("unknown invoice status %q", status)
	}
	date := s.now()
	if req.InvoiceDate != nil && !req.InvoiceDate.IsZero() {
		date = req.InvoiceDate.UTC()
	}

	supplierID := strings.TrimSpace(req.SupplierID)
	lines := make([]domain.InvoiceLine, 0, len(req.Items))
	receipts := make([]domain.StockReceipt, 0, len(req.Items))
	total := 0.0
	for i, line := range req.Items {
		line.Name = strings.TrimSpace(line.Name)
		line.IngredientID = strings.TrimSpace(line.IngredientID)
		if line.Quantity <= 0 || line.CostPerUnit < 0 {
			return domain.PurchaseInvoice{}, invalidf("invoice line %d needs a positive quantity and a cost", i)
		}
		receipt := domain.StockReceipt{
			IngredientID: line.IngredientID,
			Quantity:     line.Quantity,
			CostPerUnit:  line.CostPerUnit,
			Date:         date,
		}
		if line.IngredientID != "" {
			ing, err := s.repo.GetIngredient(ctx, line.IngredientID)
			if err != nil {
				return domain.PurchaseInvoice{}, err
			}
			line.Name = ing.Name
			line.Unit = ing.Unit
		} else {
			if line.Name == "" {
				return domain.PurchaseInvoice{}, invalidf("invoice line %d needs a name or an ingredient", i)
			}
			unit, ok := costing.ParseUnit(string(line.Unit))
			if !ok {
				return domain.PurchaseInvoice{}, invalidf("invoice line %d has unknown unit %q", i, line.Unit)
			}
			line.Unit = unit
			receipt.Template = &domain.Ingredient{Name: line.Name, Unit: unit, SupplierID: supplierID}
		}
		total += line.Quantity * line.CostPerUnit
		lines = append(lines, line)
		receipts = append(receipts, receipt)
	}

	invoice := domain.PurchaseInvoice{
		ID:            xid.New("inv"),
		SupplierID:    supplierID,
		InvoiceNumber: strings.TrimSpace(req.InvoiceNumber),
		InvoiceDate:   date,
		TotalAmount:   costing.Round(total),
		Status:        status,
		Items:         lines,
	}
	if _, err := s.repo.ReceiveStock(ctx, &invoice, receipts); err != nil {
		return domain.PurchaseInvoice{}, err
	}

	s.logAudit(ctx, domain.AuditInvoiceAdd, domain.EntityInvoice, invoice.ID, fmt.Sprintf("lines=%d,total=%g,supplier=%s", len(invoice.Items), invoice.TotalAmount, invoice.SupplierID))
	s.publish(realtime.EventInvoiceReceived, invoice)
	return invoice, nil
}

func (s *Service) ListInvoices(ctx context.Context, limit int) ([]domain.PurchaseInvoice, error) {
	return s.repo.ListInvoices(ctx, limit)
}

func (s *Service) MarkInvoicePaid(ctx context.Context, id string) (domain.PurchaseInvoice, error) {
	saved, err := s.repo.UpdateInvoiceStatus(ctx, id, domain.InvoicePaid)
	if err != nil {
		return domain.PurchaseInvoice{}, err
	}
	s.logAudit(ctx, domain.AuditUpdate, domain.EntityInvoice, saved.ID, "status=paid")
	return *saved, nil
}

// ExtractInvoice reads a photographed invoice into a draft whose lines are
// matched against the current inventory. Nothing is stored.
func (s *Service) ExtractInvoice(ctx context.Context, image []byte, mimeType string) (domain.InvoiceDraft, error) {
	if len(image) == 0 {
		return domain.InvoiceDraft{}, invalidf("invoice image is empty")
	}
	if len(image) > maxInvoiceImageBytes {
		return domain.InvoiceDraft{}, invalidf("invoice image is larger than %d bytes", maxInvoiceImageBytes)
	}
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if !strings.HasPrefix(mimeType, "image/") && mimeType != "application/pdf" {
		return domain.InvoiceDraft{}, invalidf("unsupported invoice type %q", mimeType)
	}

	extraction, err := s.oracle.ExtractInvoice(ctx, image, mimeType)
	if err != nil {
		return domain.InvoiceDraft{}, err
	}
	inventory, err := s.repo.ListIngredients(ctx)
	if err != nil {
		return domain.InvoiceDraft{}, err
	}

	draft := domain.InvoiceDraft{Items: advisor.MatchInventory(extraction.Items, inventory)}
	if extraction.InvoiceDate != "" {
		if parsed, err := time.Parse("2006-01-02", extraction.InvoiceDate); err == nil {
			draft.InvoiceDate = &parsed
		}
	}
	return draft, nil
}
