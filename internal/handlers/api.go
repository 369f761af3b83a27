package handlers

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"time"

	"ecommerce-dashboard/internal/aggregate"
	"ecommerce-dashboard/internal/errors"
	"ecommerce-dashboard/internal/export"
	"ecommerce-dashboard/internal/models"
	"ecommerce-dashboard/internal/observability"
)

const cacheControl = "public, max-age=300"

// Reporter is the read side of the loaded dashboard data.
type Reporter interface {
	Report(ctx context.Context, r models.DateRange) *models.Report
	Bounds() models.DateRange
	Stats() map[string]any
}

type APIHandlers struct {
	dashboard Reporter
	logger    *slog.Logger
}

func NewAPIHandlers(dashboard Reporter, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		dashboard: dashboard,
		logger:    logger,
	}
}

func (h *APIHandlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	errors.WriteError(w, h.logger, err, observability.GetRequestID(r.Context()))
}

func (h *APIHandlers) writeData(w http.ResponseWriter, data any) {
	errors.WriteSuccessWithHeaders(w, data, map[string]string{"Cache-Control": cacheControl})
}

// report builds the report for the request's date range. On failure the
// error response has already been written.
func (h *APIHandlers) report(w http.ResponseWriter, r *http.Request) (*models.Report, bool) {
	dr, err := rangeFromQuery(r, h.dashboard.Bounds())
	if err != nil {
		h.writeError(w, r, err)
		return nil, false
	}
	return h.dashboard.Report(r.Context(), dr), true
}

func (h *APIHandlers) HandleReport(w http.ResponseWriter, r *http.Request) {
	if report, ok := h.report(w, r); ok {
		h.writeData(w, report)
	}
}

func (h *APIHandlers) HandleSummary(w http.ResponseWriter, r *http.Request) {
	report, ok := h.report(w, r)
	if !ok {
		return
	}
	h.writeData(w, map[string]any{
		"start":   report.Start,
		"end":     report.End,
		"summary": report.Summary,
	})
}

func (h *APIHandlers) HandleDailyOrders(w http.ResponseWriter, r *http.Request) {
	if report, ok := h.report(w, r); ok {
		h.writeData(w, report.DailyOrders)
	}
}

func (h *APIHandlers) HandleMonthlyOrders(w http.ResponseWriter, r *http.Request) {
	if report, ok := h.report(w, r); ok {
		h.writeData(w, report.MonthlyOrders)
	}
}

func (h *APIHandlers) HandleMonthlyRevenue(w http.ResponseWriter, r *http.Request) {
	if report, ok := h.report(w, r); ok {
		h.writeData(w, report.MonthlyRevenue)
	}
}

// HandleCategories serves the category table, optionally ranked with
// ?sort=orders|revenue&order=asc|desc&limit=N.
func (h *APIHandlers) HandleCategories(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	by, err := aggregate.ParseCategorySort(q.Get("sort"))
	if err != nil {
		h.writeError(w, r, errors.ValidationWrap(err, "sort must be orders or revenue").ForParam("sort"))
		return
	}

	var descending bool
	switch q.Get("order") {
	case "", "desc":
		descending = true
	case "asc":
	default:
		h.writeError(w, r, errors.Validation("order must be asc or desc").ForParam("order"))
		return
	}

	n, err := limitFromQuery(r, -1)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	report, ok := h.report(w, r)
	if !ok {
		return
	}
	rows := report.Categories
	if q.Has("sort") || q.Has("order") || n >= 0 {
		rows = aggregate.TopCategories(rows, by, descending, n)
	}
	h.writeData(w, rows)
}

func (h *APIHandlers) HandlePaymentDistribution(w http.ResponseWriter, r *http.Request) {
	if report, ok := h.report(w, r); ok {
		h.writeData(w, report.PaymentShares)
	}
}

func (h *APIHandlers) HandlePaymentValue(w http.ResponseWriter, r *http.Request) {
	if report, ok := h.report(w, r); ok {
		h.writeData(w, report.PaymentTotals)
	}
}

// HandleRFM serves the RFM table, optionally ranked with
// ?by=recency|frequency|monetary&limit=N.
func (h *APIHandlers) HandleRFM(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	by, err := aggregate.ParseCustomerRank(q.Get("by"))
	if err != nil {
		h.writeError(w, r, errors.ValidationWrap(err, "by must be recency, frequency or monetary").ForParam("by"))
		return
	}

	n, err := limitFromQuery(r, -1)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	report, ok := h.report(w, r)
	if !ok {
		return
	}
	rows := report.RFM
	if q.Has("by") || n >= 0 {
		rows = aggregate.TopCustomers(rows, by, n)
	}
	h.writeData(w, rows)
}

func (h *APIHandlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	report, ok := h.report(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.WriteWorkbook(&buf, report); err != nil {
		h.writeError(w, r, errors.InternalWrap(err, "failed to build workbook"))
		return
	}

	filename := "dashboard_" + report.Start.String() + "_" + report.End.String() + ".xlsx"
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Warn("write workbook response", "error", err)
	}
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	})
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, h.dashboard.Stats())
}
