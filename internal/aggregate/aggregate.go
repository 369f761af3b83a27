// Package aggregate turns order line items and payments into the derived
// tables shown on the dashboard. Every function is a pure single-pass
// reduction: inputs are never modified and each call allocates its output.
package aggregate

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"ecommerce-dashboard/internal/models"
)

const monthLayout = "January 2006"

// dayNumber counts calendar days since the Unix epoch, ignoring the
// wall-clock part of t.
func dayNumber(t time.Time) int {
	return int(time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).Unix() / 86400)
}

func dayTime(n int) time.Time {
	return time.Unix(int64(n)*86400, 0).UTC()
}

func monthNumber(t time.Time) int {
	return t.Year()*12 + int(t.Month()) - 1
}

func monthLabel(n int) string {
	return time.Date(n/12, time.Month(n%12+1), 1, 0, 0, 0, 0, time.UTC).Format(monthLayout)
}

type bucket struct {
	orders  map[string]struct{}
	revenue float64
}

func (b *bucket) add(item models.OrderItem) {
	if b.orders == nil {
		b.orders = make(map[string]struct{})
	}
	b.orders[item.OrderID] = struct{}{}
	b.revenue += item.Price
}

// resample buckets items by key and returns the buckets for every key
// between the smallest and largest seen, inserting empty buckets for gaps.
func resample(items []models.OrderItem, key func(time.Time) int) (first int, buckets []bucket) {
	if len(items) == 0 {
		return 0, nil
	}

	first, last := key(items[0].PurchasedAt), key(items[0].PurchasedAt)
	for _, item := range items[1:] {
		k := key(item.PurchasedAt)
		first = min(first, k)
		last = max(last, k)
	}

	buckets = make([]bucket, last-first+1)
	for _, item := range items {
		buckets[key(item.PurchasedAt)-first].add(item)
	}
	return first, buckets
}

// DailyOrders counts distinct orders and sums revenue per calendar day, in
// chronological order. Days without orders inside the span appear with zero
// values.
func DailyOrders(items []models.OrderItem) []models.DailyOrders {
	first, buckets := resample(items, dayNumber)

	result := make([]models.DailyOrders, 0, len(buckets))
	for i, b := range buckets {
		result = append(result, models.DailyOrders{
			Date:       models.NewDate(dayTime(first + i)),
			OrderCount: len(b.orders),
			Revenue:    b.revenue,
		})
	}
	return result
}

func MonthlyOrders(items []models.OrderItem) []models.MonthlyOrders {
	first, buckets := resample(items, monthNumber)

	result := make([]models.MonthlyOrders, 0, len(buckets))
	for i, b := range buckets {
		result = append(result, models.MonthlyOrders{
			Month:      monthLabel(first + i),
			OrderCount: len(b.orders),
		})
	}
	return result
}

func MonthlyRevenue(items []models.OrderItem) []models.MonthlyRevenue {
	first, buckets := resample(items, monthNumber)

	result := make([]models.MonthlyRevenue, 0, len(buckets))
	for i, b := range buckets {
		result = append(result, models.MonthlyRevenue{
			Month:   monthLabel(first + i),
			Revenue: b.revenue,
		})
	}
	return result
}

// CategoryOrders returns one row per category, ordered by category name.
// Use SortCategories or TopCategories for ranked views.
func CategoryOrders(items []models.OrderItem) []models.CategoryPerformance {
	groups := make(map[string]*bucket)
	for _, item := range items {
		b, ok := groups[item.Category]
		if !ok {
			b = &bucket{}
			groups[item.Category] = b
		}
		b.add(item)
	}

	result := make([]models.CategoryPerformance, 0, len(groups))
	for category, b := range groups {
		result = append(result, models.CategoryPerformance{
			Category:   category,
			OrderCount: len(b.orders),
			Revenue:    b.revenue,
		})
	}
	slices.SortFunc(result, func(a, b models.CategoryPerformance) int {
		return strings.Compare(a.Category, b.Category)
	})
	return result
}

// PaymentDistribution counts payments per type over the whole payment
// table. Rows are ordered by count, most frequent first.
func PaymentDistribution(payments []models.Payment) []models.PaymentShare {
	counts := make(map[string]int)
	for _, p := range payments {
		counts[p.Type]++
	}

	result := make([]models.PaymentShare, 0, len(counts))
	total := len(payments)
	if total == 0 {
		return result
	}

	for paymentType, count := range counts {
		result = append(result, models.PaymentShare{
			PaymentType: paymentType,
			Count:       count,
			Percentage:  fmt.Sprintf("%.1f%%", float64(count)/float64(total)*100),
		})
	}
	slices.SortFunc(result, func(a, b models.PaymentShare) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		return strings.Compare(a.PaymentType, b.PaymentType)
	})
	return result
}

// PaymentValue sums payment values per type, largest total first.
func PaymentValue(payments []models.Payment) []models.PaymentTotal {
	totals := make(map[string]float64)
	for _, p := range payments {
		totals[p.Type] += p.Value
	}

	result := make([]models.PaymentTotal, 0, len(totals))
	for paymentType, value := range totals {
		result = append(result, models.PaymentTotal{PaymentType: paymentType, Value: value})
	}
	slices.SortFunc(result, func(a, b models.PaymentTotal) int {
		if c := cmp.Compare(b.Value, a.Value); c != 0 {
			return c
		}
		return strings.Compare(a.PaymentType, b.PaymentType)
	})
	return result
}

type customer struct {
	lastDay  int
	orders   map[string]struct{}
	monetary float64
}

// RFM derives recency, frequency and monetary value per customer. Recency
// is measured in days back from the latest purchase day among items.
// Rows are ordered by customer ID.
func RFM(items []models.OrderItem) []models.CustomerRFM {
	customers := make(map[string]*customer)
	latest := 0
	for i, item := range items {
		d := dayNumber(item.PurchasedAt)
		if i == 0 || d > latest {
			latest = d
		}

		c, ok := customers[item.CustomerID]
		if !ok {
			c = &customer{lastDay: d, orders: make(map[string]struct{})}
			customers[item.CustomerID] = c
		}
		c.lastDay = max(c.lastDay, d)
		c.orders[item.OrderID] = struct{}{}
		c.monetary += item.Price
	}

	result := make([]models.CustomerRFM, 0, len(customers))
	for id, c := range customers {
		result = append(result, models.CustomerRFM{
			CustomerID: id,
			Recency:    latest - c.lastDay,
			Frequency:  len(c.orders),
			Monetary:   c.monetary,
		})
	}
	slices.SortFunc(result, func(a, b models.CustomerRFM) int {
		return strings.Compare(a.CustomerID, b.CustomerID)
	})
	return result
}
