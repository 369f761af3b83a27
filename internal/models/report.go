package models

type Summary struct {
	TotalOrders  int     `json:"total_orders"`
	TotalRevenue float64 `json:"total_revenue"`
	AvgRecency   float64 `json:"avg_recency"`
	AvgFrequency float64 `json:"avg_frequency"`
	AvgMonetary  float64 `json:"avg_monetary"`
}

type CategoryViews struct {
	MostOrders   []CategoryPerformance `json:"most_orders"`
	FewestOrders []CategoryPerformance `json:"fewest_orders"`
	MostRevenue  []CategoryPerformance `json:"most_revenue"`
	LeastRevenue []CategoryPerformance `json:"least_revenue"`
}

type CustomerViews struct {
	ByRecency   []CustomerRFM `json:"by_recency"`
	ByFrequency []CustomerRFM `json:"by_frequency"`
	ByMonetary  []CustomerRFM `json:"by_monetary"`
}

// Report holds every derived table for one date range. It is built fresh
// for each filter and never modified afterwards.
type Report struct {
	Start Date `json:"start"`
	End   Date `json:"end"`

	Summary        Summary               `json:"summary"`
	DailyOrders    []DailyOrders         `json:"daily_orders"`
	MonthlyOrders  []MonthlyOrders       `json:"monthly_orders"`
	MonthlyRevenue []MonthlyRevenue      `json:"monthly_revenue"`
	Categories     []CategoryPerformance `json:"categories"`
	PaymentShares  []PaymentShare        `json:"payment_shares"`
	PaymentTotals  []PaymentTotal        `json:"payment_totals"`
	RFM            []CustomerRFM         `json:"rfm"`

	TopCategories CategoryViews `json:"top_categories"`
	TopCustomers  CustomerViews `json:"top_customers"`
}
