package handlers

import (
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/starfederation/datastar-go/datastar"

	"ecommerce-dashboard/internal/errors"
	"ecommerce-dashboard/internal/models"
	"ecommerce-dashboard/internal/observability"
)

var fragments = template.Must(template.New("fragments").Parse(`
{{define "summary"}}<div id="summary-content" class="metrics">
<div class="metric"><span class="metric-label">Total orders</span><span class="metric-value">{{.Summary.TotalOrders}}</span></div>
<div class="metric"><span class="metric-label">Total revenue</span><span class="metric-value">{{printf "%.2f" .Summary.TotalRevenue}}</span></div>
<div class="metric"><span class="metric-label">Average recency (days)</span><span class="metric-value">{{printf "%.1f" .Summary.AvgRecency}}</span></div>
<div class="metric"><span class="metric-label">Average frequency</span><span class="metric-value">{{printf "%.2f" .Summary.AvgFrequency}}</span></div>
<div class="metric"><span class="metric-label">Average monetary</span><span class="metric-value">{{printf "%.2f" .Summary.AvgMonetary}}</span></div>
</div>{{end}}

{{define "categoryTable"}}<table class="modern-table">
<caption>{{.Title}}</caption>
<thead><tr><th>Category</th><th>Orders</th><th>Revenue</th></tr></thead>
<tbody>
{{range .Rows}}<tr><td><span class="category-badge">{{.Category}}</span></td><td>{{.OrderCount}}</td><td>{{printf "%.2f" .Revenue}}</td></tr>
{{end}}</tbody>
</table>{{end}}

{{define "categories"}}<div id="categories-content" class="grid">
{{template "categoryTable" (index . 0)}}
{{template "categoryTable" (index . 1)}}
{{template "categoryTable" (index . 2)}}
{{template "categoryTable" (index . 3)}}
</div>{{end}}

{{define "customerTable"}}<table class="modern-table">
<caption>{{.Title}}</caption>
<thead><tr><th>Customer</th><th>Recency (days)</th><th>Frequency</th><th>Monetary</th></tr></thead>
<tbody>
{{range .Rows}}<tr><td><code>{{.CustomerID}}</code></td><td>{{.Recency}}</td><td>{{.Frequency}}</td><td>{{printf "%.2f" .Monetary}}</td></tr>
{{end}}</tbody>
</table>{{end}}

{{define "customers"}}<div id="rfm-content" class="grid">
{{template "customerTable" (index . 0)}}
{{template "customerTable" (index . 1)}}
{{template "customerTable" (index . 2)}}
</div>{{end}}
`))

type categorySection struct {
	Title string
	Rows  []models.CategoryPerformance
}

type customerSection struct {
	Title string
	Rows  []models.CustomerRFM
}

// signalsParam carries datastar signals on GET requests.
const signalsParam = "datastar"

// rangeSignals are the date picker signals sent by the dashboard page.
type rangeSignals struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type SSEHandlers struct {
	dashboard Reporter
	logger    *slog.Logger
}

func NewSSEHandlers(dashboard Reporter, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		dashboard: dashboard,
		logger:    logger,
	}
}

func render(name string, data any) (string, error) {
	var buf strings.Builder
	err := fragments.ExecuteTemplate(&buf, name, data)
	return buf.String(), err
}

func renderSummary(report *models.Report) (string, error) {
	return render("summary", report)
}

func renderCategories(report *models.Report) (string, error) {
	v := report.TopCategories
	return render("categories", []categorySection{
		{"Most orders", v.MostOrders},
		{"Fewest orders", v.FewestOrders},
		{"Highest revenue", v.MostRevenue},
		{"Lowest revenue", v.LeastRevenue},
	})
}

func renderCustomers(report *models.Report) (string, error) {
	v := report.TopCustomers
	return render("customers", []customerSection{
		{"By recency (days)", v.ByRecency},
		{"By frequency", v.ByFrequency},
		{"By monetary", v.ByMonetary},
	})
}

// report resolves the date range from datastar signals or, failing that,
// from the start and end query parameters. Errors are written as JSON
// before any event stream starts.
func (h *SSEHandlers) report(w http.ResponseWriter, r *http.Request) (*models.Report, bool) {
	start, end := r.URL.Query().Get("start"), r.URL.Query().Get("end")
	if r.URL.Query().Has(signalsParam) {
		var signals rangeSignals
		if err := datastar.ReadSignals(r, &signals); err != nil {
			errors.WriteError(w, h.logger, errors.BadRequestWrap(err, "invalid datastar signals"), observability.GetRequestID(r.Context()))
			return nil, false
		}
		start, end = signals.StartDate, signals.EndDate
	}

	dr, err := resolveRange(start, end, h.dashboard.Bounds())
	if err != nil {
		errors.WriteError(w, h.logger, err, observability.GetRequestID(r.Context()))
		return nil, false
	}
	return h.dashboard.Report(r.Context(), dr), true
}

func (h *SSEHandlers) patchSignals(sse *datastar.ServerSentEventGenerator, signals map[string]any) {
	data, err := json.Marshal(signals)
	if err != nil {
		h.logger.Error("marshal signals", "error", err)
		return
	}
	if err := sse.PatchSignals(data); err != nil {
		h.logger.Warn("patch signals", "error", err)
	}
}

func (h *SSEHandlers) patchElements(sse *datastar.ServerSentEventGenerator, name string, html string, err error) {
	if err != nil {
		h.logger.Error("render fragment", "fragment", name, "error", err)
		return
	}
	if err := sse.PatchElements(html); err != nil {
		h.logger.Warn("patch elements", "fragment", name, "error", err)
	}
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *SSEHandlers) HandleSummary(w http.ResponseWriter, r *http.Request) {
	report, ok := h.report(w, r)
	if !ok {
		return
	}
	sse := datastar.NewSSE(w, r)

	html, err := renderSummary(report)
	h.patchElements(sse, "summary", html, err)
	h.patchSignals(sse, map[string]any{"summary": report.Summary})
	flush(w)
}

func (h *SSEHandlers) HandleDailyOrders(w http.ResponseWriter, r *http.Request) {
	report, ok := h.report(w, r)
	if !ok {
		return
	}
	sse := datastar.NewSSE(w, r)

	h.patchSignals(sse, map[string]any{"dailyOrders": report.DailyOrders})
	h.patchElements(sse, "daily", `<div id="daily-content">Daily orders chart data loaded</div>`, nil)
	flush(w)
}

func (h *SSEHandlers) HandleMonthly(w http.ResponseWriter, r *http.Request) {
	report, ok := h.report(w, r)
	if !ok {
		return
	}
	sse := datastar.NewSSE(w, r)

	h.patchSignals(sse, map[string]any{
		"monthlyOrders":  report.MonthlyOrders,
		"monthlyRevenue": report.MonthlyRevenue,
	})
	h.patchElements(sse, "monthly", `<div id="monthly-content">Monthly chart data loaded</div>`, nil)
	flush(w)
}

func (h *SSEHandlers) HandleCategories(w http.ResponseWriter, r *http.Request) {
	report, ok := h.report(w, r)
	if !ok {
		return
	}
	sse := datastar.NewSSE(w, r)

	html, err := renderCategories(report)
	h.patchElements(sse, "categories", html, err)
	h.patchSignals(sse, map[string]any{"categories": report.TopCategories})
	flush(w)
}

func (h *SSEHandlers) HandlePayments(w http.ResponseWriter, r *http.Request) {
	report, ok := h.report(w, r)
	if !ok {
		return
	}
	sse := datastar.NewSSE(w, r)

	h.patchSignals(sse, map[string]any{
		"paymentShares": report.PaymentShares,
		"paymentTotals": report.PaymentTotals,
	})
	h.patchElements(sse, "payments", `<div id="payments-content">Payment chart data loaded</div>`, nil)
	flush(w)
}

func (h *SSEHandlers) HandleRFM(w http.ResponseWriter, r *http.Request) {
	report, ok := h.report(w, r)
	if !ok {
		return
	}
	sse := datastar.NewSSE(w, r)

	html, err := renderCustomers(report)
	h.patchElements(sse, "rfm", html, err)
	flush(w)
}

// HandleRefreshAll recomputes one report and patches every dashboard
// section from it.
func (h *SSEHandlers) HandleRefreshAll(w http.ResponseWriter, r *http.Request) {
	report, ok := h.report(w, r)
	if !ok {
		return
	}
	sse := datastar.NewSSE(w, r)

	html, err := renderSummary(report)
	h.patchElements(sse, "summary", html, err)
	html, err = renderCategories(report)
	h.patchElements(sse, "categories", html, err)
	html, err = renderCustomers(report)
	h.patchElements(sse, "rfm", html, err)

	h.patchSignals(sse, map[string]any{
		"startDate":      report.Start.String(),
		"endDate":        report.End.String(),
		"summary":        report.Summary,
		"dailyOrders":    report.DailyOrders,
		"monthlyOrders":  report.MonthlyOrders,
		"monthlyRevenue": report.MonthlyRevenue,
		"paymentShares":  report.PaymentShares,
		"paymentTotals":  report.PaymentTotals,
	})
	flush(w)
}
