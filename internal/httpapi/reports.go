package httpapi

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"foodyar/backend/internal/domain"
)

func (a *API) handleProfitAndLoss(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	from, to, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if from.IsZero() {
		from = time.Now().UTC().AddDate(0, 0, -30)
	}

	report, err := a.service.ProfitAndLoss(r.Context(), from, to)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	filename := fmt.Sprintf("profit-loss-%s-%s", report.From.Format("20060102"), report.To.Format("20060102"))
	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format"))) {
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename+".csv"))
		_, _ = w.Write([]byte(profitAndLossToCSV(report)))
	case "xlsx":
		body, err := profitAndLossToXLSX(report)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename+".xlsx"))
		_, _ = w.Write(body)
	case "html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(profitAndLossToPrintableHTML(report)))
	default:
		writeJSON(w, http.StatusOK, report)
	}
}

type reportRow struct {
	Section string
	Key     string
	Value   string
}

func profitAndLossRows(report domain.ProfitAndLoss) []reportRow {
	money := func(v float64) string { return fmt.Sprintf("%.0f", v) }
	rows := []reportRow{
		{"summary", "from", report.From.Format("2006-01-02")},
		{"summary", "to", report.To.Format("2006-01-02")},
		{"summary", "sales_count", fmt.Sprintf("%d", report.SalesCount)},
		{"summary", "void_count", fmt.Sprintf("%d", report.VoidCount)},
		{"summary", "revenue", money(report.Revenue)},
		{"summary", "cogs", money(report.COGS)},
		{"summary", "gross_profit", money(report.GrossProfit)},
		{"summary", "waste_loss", money(report.WasteLoss)},
		{"summary", "operating_expenses", money(report.OperatingExpenses)},
		{"summary", "net_profit", money(report.NetProfit)},
		{"summary", "net_margin_percent", fmt.Sprintf("%.2f", report.NetMarginPercent)},
		{"summary", "tax_collected", money(report.TaxCollected)},
		{"summary", "discounts_given", money(report.DiscountsGiven)},
	}

	categories := make([]string, 0, len(report.ExpensesByType))
	for category := range report.ExpensesByType {
		categories = append(categories, string(category))
	}
	sort.Strings(categories)
	for _, category := range categories {
		rows = append(rows, reportRow{"expense", category, money(report.ExpensesByType[domain.ExpenseCategory(category)])})
	}

	methods := make([]string, 0, len(report.ByPayment))
	for method := range report.ByPayment {
		methods = append(methods, string(method))
	}
	sort.Strings(methods)
	for _, method := range methods {
		rows = append(rows, reportRow{"payment", method, money(report.ByPayment[domain.PaymentMethod(method)])})
	}
	return rows
}

func profitAndLossToCSV(report domain.ProfitAndLoss) string {
	lines := []string{"section,key,value"}
	for _, row := range profitAndLossRows(report) {
		lines = append(lines, row.Section+","+row.Key+","+row.Value)
	}
	return strings.Join(lines, "\n") + "\n"
}

func profitAndLossToXLSX(report domain.ProfitAndLoss) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	if err := f.SetSheetRow(sheet, "A1", &[]any{"Section", "Key", "Value"}); err != nil {
		return nil, err
	}
	for i, row := range profitAndLossRows(report) {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &[]any{row.Section, row.Key, row.Value}); err != nil {
			return nil, err
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var profitAndLossHTMLTmpl = template.Must(template.New("profit-loss").Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>Profit and Loss {{.From}} to {{.To}}</title>
  <style>
    body { font-family: sans-serif; margin: 24px; }
    table { width: 100%; border-collapse: collapse; margin-top: 8px; }
    th, td { border: 1px solid #ddd; padding: 6px; font-size: 13px; }
  </style>
</head>
<body>
  <h2>Profit and Loss {{.From}} to {{.To}}</h2>
  <table>
    <thead><tr><th>Section</th><th>Key</th><th>Value</th></tr></thead>
    <tbody>{{range .Rows}}<tr><td>{{.Section}}</td><td>{{.Key}}</td><td style="text-align:right;">{{.Value}}</td></tr>{{end}}</tbody>
  </table>
</body>
</html>
`))

func profitAndLossToPrintableHTML(report domain.ProfitAndLoss) string {
	var buf bytes.Buffer
	err := profitAndLossHTMLTmpl.Execute(&buf, map[string]any{
		"From": report.From.Format("2006-01-02"),
		"To":   report.To.Format("2006-01-02"),
		"Rows": profitAndLossRows(report),
	})
	if err != nil {
		return "<!doctype html><html><body><p>Report rendering error.</p></body></html>"
	}
	return buf.String()
}
