package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"ecommerce-dashboard/internal/export"
	"ecommerce-dashboard/internal/models"
	"ecommerce-dashboard/internal/services"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func createTestDashboard() *services.Dashboard {
	at := func(month time.Month, day, hour int) time.Time {
		return time.Date(2023, month, day, hour, 0, 0, 0, time.UTC)
	}

	d := services.NewDashboard(services.WithLogger(quietLogger()))
	d.SetData(
		[]models.OrderItem{
			{OrderID: "o1", CustomerID: "c1", PurchasedAt: at(time.January, 1, 9), Category: "toys", Price: 10},
			{OrderID: "o1", CustomerID: "c1", PurchasedAt: at(time.January, 1, 9), Category: "toys", Price: 4},
			{OrderID: "o2", CustomerID: "c2", PurchasedAt: at(time.January, 2, 12), Category: "books", Price: 20},
			{OrderID: "o3", CustomerID: "c3", PurchasedAt: at(time.January, 3, 8), Category: "toys", Price: 30},
			{OrderID: "o4", CustomerID: "c1", PurchasedAt: at(time.February, 14, 18), Category: "garden", Price: 7.5},
		},
		[]models.Payment{
			{Type: "credit_card", Value: 14},
			{Type: "boleto", Value: 20},
			{Type: "credit_card", Value: 30},
			{Type: "credit_card", Value: 7.5},
		},
	)
	return d
}

func newTestAPI() *APIHandlers {
	return NewAPIHandlers(createTestDashboard(), quietLogger())
}

// envelope mirrors the JSON success and error responses.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func serve(t *testing.T, h http.HandlerFunc, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var env envelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
	require.True(t, env.Success)
	require.NoError(t, json.Unmarshal(env.Data, v))
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder, status int) string {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())

	var env envelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	return env.Error.Code
}

func TestNewAPIHandlers(t *testing.T) {
	dashboard := createTestDashboard()
	h := NewAPIHandlers(dashboard, quietLogger())

	require.NotNil(t, h)
	assert.Same(t, dashboard, h.dashboard)
}

func TestAPIHandlers_HandleSummary(t *testing.T) {
	h := newTestAPI()
	w := serve(t, h.HandleSummary, "/api/summary")
	assert.Equal(t, "public, max-age=300", w.Header().Get("Cache-Control"))

	var got struct {
		Start   string         `json:"start"`
		End     string         `json:"end"`
		Summary models.Summary `json:"summary"`
	}
	decodeData(t, w, &got)

	assert.Equal(t, "2023-01-01", got.Start)
	assert.Equal(t, "2023-02-14", got.End)
	assert.Equal(t, 4, got.Summary.TotalOrders)
	assert.InDelta(t, 71.5, got.Summary.TotalRevenue, 1e-9)
	assert.InDelta(t, 28.3, got.Summary.AvgRecency, 1e-9)
	assert.InDelta(t, 1.33, got.Summary.AvgFrequency, 1e-9)
	assert.InDelta(t, 23.83, got.Summary.AvgMonetary, 1e-9)
}

func TestAPIHandlers_HandleReport(t *testing.T) {
	h := newTestAPI()

	var got struct {
		Start       string               `json:"start"`
		DailyOrders []models.DailyOrders `json:"daily_orders"`
		RFM         []models.CustomerRFM `json:"rfm"`
	}
	decodeData(t, serve(t, h.HandleReport, "/api/report?start=2023-01-02"), &got)

	assert.Equal(t, "2023-01-02", got.Start)
	assert.Len(t, got.DailyOrders, 44)
	assert.Len(t, got.RFM, 3)
}

func TestAPIHandlers_HandleDailyOrders(t *testing.T) {
	h := newTestAPI()

	var rows []struct {
		Date       string  `json:"date"`
		OrderCount int     `json:"order_count"`
		Revenue    float64 `json:"revenue"`
	}
	decodeData(t, serve(t, h.HandleDailyOrders, "/api/daily-orders?start=2023-01-01&end=2023-01-04"), &rows)

	require.Len(t, rows, 3, "trailing empty day is outside the data")
	assert.Equal(t, "2023-01-01", rows[0].Date)
	assert.Equal(t, 1, rows[0].OrderCount)
	assert.InDelta(t, 14.0, rows[0].Revenue, 1e-9)
	assert.Equal(t, "2023-01-03", rows[2].Date)
	assert.InDelta(t, 30.0, rows[2].Revenue, 1e-9)
}

func TestAPIHandlers_HandleMonthly(t *testing.T) {
	h := newTestAPI()

	var orders []models.MonthlyOrders
	decodeData(t, serve(t, h.HandleMonthlyOrders, "/api/monthly-orders"), &orders)
	assert.Equal(t, []models.MonthlyOrders{
		{Month: "January 2023", OrderCount: 3},
		{Month: "February 2023", OrderCount: 1},
	}, orders)

	var revenue []models.MonthlyRevenue
	decodeData(t, serve(t, h.HandleMonthlyRevenue, "/api/monthly-revenue"), &revenue)
	require.Len(t, revenue, 2)
	assert.InDelta(t, 64.0, revenue[0].Revenue, 1e-9)
	assert.InDelta(t, 7.5, revenue[1].Revenue, 1e-9)
}

func TestAPIHandlers_HandleCategories(t *testing.T) {
	h := newTestAPI()

	tests := []struct {
		name   string
		target string
		want   []string
	}{
		{"default is by name", "/api/categories", []string{"books", "garden", "toys"}},
		{"top revenue", "/api/categories?sort=revenue&limit=1", []string{"toys"}},
		{"fewest orders", "/api/categories?sort=orders&order=asc&limit=2", []string{"books", "garden"}},
		{"zero limit is all", "/api/categories?sort=orders&limit=0", []string{"toys", "books", "garden"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rows []models.CategoryPerformance
			decodeData(t, serve(t, h.HandleCategories, tt.target), &rows)

			names := make([]string, len(rows))
			for i, r := range rows {
				names[i] = r.Category
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestAPIHandlers_HandleCategories_Invalid(t *testing.T) {
	h := newTestAPI()

	for _, target := range []string{
		"/api/categories?sort=price",
		"/api/categories?order=sideways",
		"/api/categories?limit=-1",
		"/api/categories?limit=ten",
	} {
		t.Run(target, func(t *testing.T) {
			code := decodeError(t, serve(t, h.HandleCategories, target), http.StatusBadRequest)
			assert.Equal(t, "VALIDATION_ERROR", code)
		})
	}
}

func TestAPIHandlers_HandlePayments(t *testing.T) {
	h := newTestAPI()

	var shares []models.PaymentShare
	decodeData(t, serve(t, h.HandlePaymentDistribution, "/api/payments/distribution"), &shares)
	assert.Equal(t, []models.PaymentShare{
		{PaymentType: "credit_card", Count: 3, Percentage: "75.0%"},
		{PaymentType: "boleto", Count: 1, Percentage: "25.0%"},
	}, shares)

	// Payments carry no timestamp, so the range does not narrow them.
	var totals []models.PaymentTotal
	decodeData(t, serve(t, h.HandlePaymentValue, "/api/payments/value?start=2023-02-01"), &totals)
	require.Len(t, totals, 2)
	assert.Equal(t, "credit_card", totals[0].PaymentType)
	assert.InDelta(t, 51.5, totals[0].Value, 1e-9)
}

func TestAPIHandlers_HandleRFM(t *testing.T) {
	h := newTestAPI()

	var all []models.CustomerRFM
	decodeData(t, serve(t, h.HandleRFM, "/api/rfm"), &all)
	assert.Equal(t, []models.CustomerRFM{
		{CustomerID: "c1", Recency: 0, Frequency: 2, Monetary: 21.5},
		{CustomerID: "c2", Recency: 43, Frequency: 1, Monetary: 20},
		{CustomerID: "c3", Recency: 42, Frequency: 1, Monetary: 30},
	}, all)

	var top []models.CustomerRFM
	decodeData(t, serve(t, h.HandleRFM, "/api/rfm?by=monetary&limit=1"), &top)
	require.Len(t, top, 1)
	assert.Equal(t, "c3", top[0].CustomerID)

	code := decodeError(t, serve(t, h.HandleRFM, "/api/rfm?by=loyalty"), http.StatusBadRequest)
	assert.Equal(t, "VALIDATION_ERROR", code)
}

func TestAPIHandlers_DateRangeErrors(t *testing.T) {
	h := newTestAPI()

	tests := []struct {
		name   string
		target string
		code   string
	}{
		{"bad start", "/api/daily-orders?start=01/02/2023", "BAD_REQUEST"},
		{"bad end", "/api/daily-orders?end=tomorrow", "BAD_REQUEST"},
		{"start after end", "/api/daily-orders?start=2023-02-01&end=2023-01-01", "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(t, h.HandleDailyOrders, tt.target)
			assert.Equal(t, tt.code, decodeError(t, w, http.StatusBadRequest))
		})
	}
}

func TestAPIHandlers_EmptyRange(t *testing.T) {
	h := newTestAPI()

	var got struct {
		Summary models.Summary       `json:"summary"`
		RFM     []models.CustomerRFM `json:"rfm"`
	}
	decodeData(t, serve(t, h.HandleReport, "/api/report?start=2022-01-01&end=2022-01-31"), &got)

	assert.Equal(t, models.Summary{}, got.Summary)
	assert.Empty(t, got.RFM)
}

func TestAPIHandlers_SingleBoundOutsideData(t *testing.T) {
	h := newTestAPI()

	for _, target := range []string{
		"/api/daily-orders?start=2024-01-01",
		"/api/daily-orders?end=2022-12-31",
	} {
		t.Run(target, func(t *testing.T) {
			var rows []models.DailyOrders
			decodeData(t, serve(t, h.HandleDailyOrders, target), &rows)
			assert.NotNil(t, rows)
			assert.Empty(t, rows)
		})
	}
}

func TestAPIHandlers_UnencodableValues(t *testing.T) {
	d := services.NewDashboard(services.WithLogger(quietLogger()))
	d.SetData(nil, []models.Payment{{Type: "voucher", Value: math.Inf(1)}})
	h := NewAPIHandlers(d, quietLogger())

	w := serve(t, h.HandlePaymentValue, "/api/payments/value")
	assert.Equal(t, "INTERNAL_ERROR", decodeError(t, w, http.StatusInternalServerError))
	assert.Empty(t, w.Header().Get("Cache-Control"))
}

func TestAPIHandlers_HandleExport(t *testing.T) {
	h := newTestAPI()
	w := serve(t, h.HandleExport, "/api/export.xlsx?start=2023-01-01&end=2023-01-03")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.ContentType, w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="dashboard_2023-01-01_2023-01-03.xlsx"`, w.Header().Get("Content-Disposition"))

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Daily Orders")
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}

func TestAPIHandlers_HandleHealth(t *testing.T) {
	h := newTestAPI()

	var got map[string]string
	decodeData(t, serve(t, h.HandleHealth, "/health"), &got)

	assert.Equal(t, "healthy", got["status"])
	_, err := time.Parse(time.RFC3339, got["timestamp"])
	assert.NoError(t, err)
}

func TestAPIHandlers_HandleStats(t *testing.T) {
	h := newTestAPI()

	var got map[string]any
	decodeData(t, serve(t, h.HandleStats, "/admin/stats"), &got)

	assert.EqualValues(t, 5, got["order_items"])
	assert.EqualValues(t, 4, got["orders"])
	assert.EqualValues(t, 3, got["customers"])
	assert.EqualValues(t, 3, got["categories"])
}

func BenchmarkAPIHandlers_HandleReport(b *testing.B) {
	h := newTestAPI()
	req := httptest.NewRequest(http.MethodGet, "/api/report", nil)

	for b.Loop() {
		h.HandleReport(httptest.NewRecorder(), req)
	}
}
