// Package templates holds the server-rendered dashboard page. The markup
// lives in dashboard.templ; run templ generate after editing it.
package templates

import (
	"github.com/a-h/templ"

	"ecommerce-dashboard/internal/models"
)

const (
	title    = "E-Commerce Dashboard"
	subtitle = "Orders, categories, payments and customers at a glance"
)

// Section is one dashboard panel. ID is the element the SSE handlers patch.
type Section struct {
	ID    string
	Title string
	Chart string
}

var Sections = []Section{
	{ID: "summary-content", Title: "Summary"},
	{ID: "daily-content", Title: "Daily Orders", Chart: "daily-chart"},
	{ID: "monthly-content", Title: "Monthly Orders and Revenue", Chart: "monthly-chart"},
	{ID: "categories-content", Title: "Best & Worst Performing Product"},
	{ID: "payments-content", Title: "Orders by Payment Type", Chart: "payments-chart"},
	{ID: "rfm-content", Title: "Best Customer Based on RFM Parameters"},
}

// charts draws the chart sections from the patched signals.
const charts = `
const dashboardCharts = {};
function drawChart(id, type, labels, datasets) {
  const el = document.getElementById(id);
  if (!el || !window.Chart || !labels) return;
  if (dashboardCharts[id]) dashboardCharts[id].destroy();
  dashboardCharts[id] = new Chart(el, {type, data: {labels, datasets}, options: {responsive: true}});
}
window.drawDaily = rows => rows && drawChart("daily-chart", "line",
  rows.map(r => r.date), [{label: "Orders", data: rows.map(r => r.order_count)}]);
window.drawMonthly = (orders, revenue) => orders && revenue && drawChart("monthly-chart", "bar",
  orders.map(r => r.month), [
    {label: "Orders", data: orders.map(r => r.order_count)},
    {label: "Revenue", data: revenue.map(r => r.revenue)},
  ]);
window.drawPayments = rows => rows && drawChart("payments-chart", "bar",
  rows.map(r => r.payment_type), [{label: "Orders", data: rows.map(r => r.count)}]);
`

var chartsScript = templ.Raw("<script>" + charts + "</script>")

// dayBounds formats the first and last day of bounds, or two empty strings
// when nothing is loaded.
func dayBounds(bounds models.DateRange) (string, string) {
	if bounds.IsZero() {
		return "", ""
	}
	return models.NewDate(bounds.Start).String(), models.NewDate(bounds.End).String()
}

// signals is the initial datastar signal object for the date pickers.
func signals(first, last string) string {
	return "{startDate: '" + first + "', endDate: '" + last + "'}"
}
