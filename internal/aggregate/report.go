package aggregate

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"

	"ecommerce-dashboard/internal/models"
)

const (
	categoryViewSize = 10
	customerViewSize = 5
)

// FilterByDateRange keeps the items purchased within r. A zero range keeps
// everything.
func FilterByDateRange(items []models.OrderItem, r models.DateRange) []models.OrderItem {
	if r.IsZero() {
		return slices.Clone(items)
	}
	result := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		if r.Contains(item.PurchasedAt) {
			result = append(result, item)
		}
	}
	return result
}

type CategorySort string

const (
	CategoryByOrders  CategorySort = "orders"
	CategoryByRevenue CategorySort = "revenue"
)

func ParseCategorySort(s string) (CategorySort, error) {
	switch CategorySort(strings.ToLower(s)) {
	case "", CategoryByOrders:
		return CategoryByOrders, nil
	case CategoryByRevenue:
		return CategoryByRevenue, nil
	}
	return "", fmt.Errorf("unknown category sort %q", s)
}

// SortCategories returns a sorted copy of rows. Ties fall back to the
// category name so the order is stable across calls.
func SortCategories(rows []models.CategoryPerformance, by CategorySort, descending bool) []models.CategoryPerformance {
	sorted := slices.Clone(rows)
	slices.SortFunc(sorted, func(a, b models.CategoryPerformance) int {
		var c int
		if by == CategoryByRevenue {
			c = cmp.Compare(a.Revenue, b.Revenue)
		} else {
			c = a.OrderCount - b.OrderCount
		}
		if descending {
			c = -c
		}
		if c != 0 {
			return c
		}
		return strings.Compare(a.Category, b.Category)
	})
	return sorted
}

func TopCategories(rows []models.CategoryPerformance, by CategorySort, descending bool, n int) []models.CategoryPerformance {
	return limit(SortCategories(rows, by, descending), n)
}

type CustomerRank string

const (
	RankByRecency   CustomerRank = "recency"
	RankByFrequency CustomerRank = "frequency"
	RankByMonetary  CustomerRank = "monetary"
)

func ParseCustomerRank(s string) (CustomerRank, error) {
	switch CustomerRank(strings.ToLower(s)) {
	case "", RankByRecency:
		return RankByRecency, nil
	case RankByFrequency:
		return RankByFrequency, nil
	case RankByMonetary:
		return RankByMonetary, nil
	}
	return "", fmt.Errorf("unknown customer ranking %q", s)
}

// TopCustomers returns the n best customers for the given parameter:
// lowest recency, highest frequency or highest monetary value.
func TopCustomers(rows []models.CustomerRFM, by CustomerRank, n int) []models.CustomerRFM {
	sorted := slices.Clone(rows)
	slices.SortFunc(sorted, func(a, b models.CustomerRFM) int {
		var c int
		switch by {
		case RankByFrequency:
			c = b.Frequency - a.Frequency
		case RankByMonetary:
			c = cmp.Compare(b.Monetary, a.Monetary)
		default:
			c = a.Recency - b.Recency
		}
		if c != 0 {
			return c
		}
		return strings.Compare(a.CustomerID, b.CustomerID)
	})
	return limit(sorted, n)
}

func limit[T any](rows []T, n int) []T {
	if n < 0 || len(rows) <= n {
		return rows
	}
	return rows[:n]
}

// Summarize computes the headline metrics from already derived tables.
func Summarize(daily []models.DailyOrders, rfm []models.CustomerRFM) models.Summary {
	var s models.Summary
	for _, d := range daily {
		s.TotalOrders += d.OrderCount
		s.TotalRevenue += d.Revenue
	}
	if len(rfm) == 0 {
		return s
	}

	var recency, frequency, monetary float64
	for _, c := range rfm {
		recency += float64(c.Recency)
		frequency += float64(c.Frequency)
		monetary += c.Monetary
	}
	n := float64(len(rfm))
	s.AvgRecency = round(recency/n, 1)
	s.AvgFrequency = round(frequency/n, 2)
	s.AvgMonetary = round(monetary/n, 2)
	return s
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// BuildReport filters items once and derives every table from the result.
// Payments are never filtered: they carry no timestamp.
func BuildReport(items []models.OrderItem, payments []models.Payment, r models.DateRange) *models.Report {
	filtered := FilterByDateRange(items, r)

	report := &models.Report{
		Start:          models.NewDate(r.Start),
		End:            models.NewDate(r.End),
		DailyOrders:    DailyOrders(filtered),
		MonthlyOrders:  MonthlyOrders(filtered),
		MonthlyRevenue: MonthlyRevenue(filtered),
		Categories:     CategoryOrders(filtered),
		PaymentShares:  PaymentDistribution(payments),
		PaymentTotals:  PaymentValue(payments),
		RFM:            RFM(filtered),
	}

	report.Summary = Summarize(report.DailyOrders, report.RFM)
	report.TopCategories = models.CategoryViews{
		MostOrders:   TopCategories(report.Categories, CategoryByOrders, true, categoryViewSize),
		FewestOrders: TopCategories(report.Categories, CategoryByOrders, false, categoryViewSize),
		MostRevenue:  TopCategories(report.Categories, CategoryByRevenue, true, categoryViewSize),
		LeastRevenue: TopCategories(report.Categories, CategoryByRevenue, false, categoryViewSize),
	}
	report.TopCustomers = models.CustomerViews{
		ByRecency:   TopCustomers(report.RFM, RankByRecency, customerViewSize),
		ByFrequency: TopCustomers(report.RFM, RankByFrequency, customerViewSize),
		ByMonetary:  TopCustomers(report.RFM, RankByMonetary, customerViewSize),
	}
	return report
}
