package models

import (
	"fmt"
	"strconv"
	"time"
)

const dateLayout = "2006-01-02"

// OrderItem is one line item of an order. An order spans as many rows as it
// has items, so OrderID repeats.
type OrderItem struct {
	OrderID     string
	CustomerID  string
	PurchasedAt time.Time
	Category    string
	Price       float64
}

type Payment struct {
	Type  string
	Value float64
}

// Date is a calendar day serialized as YYYY-MM-DD.
type Date struct {
	time.Time
}

func NewDate(t time.Time) Date {
	return Date{Time: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())}
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON reads the YYYY-MM-DD form written by MarshalJSON. A JSON
// null leaves d unchanged.
func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return fmt.Errorf("date must be a JSON string: %w", err)
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// DateRange selects whole days: Start at midnight through the end of End.
type DateRange struct {
	Start time.Time
	End   time.Time
}

func ParseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

func (r DateRange) Contains(t time.Time) bool {
	start := NewDate(r.Start).Time
	end := NewDate(r.End).AddDate(0, 0, 1)
	return !t.Before(start) && t.Before(end)
}

func (r DateRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

type DailyOrders struct {
	Date       Date    `json:"date"`
	OrderCount int     `json:"order_count"`
	Revenue    float64 `json:"revenue"`
}

type MonthlyOrders struct {
	Month      string `json:"month"`
	OrderCount int    `json:"order_count"`
}

type MonthlyRevenue struct {
	Month   string  `json:"month"`
	Revenue float64 `json:"revenue"`
}

type CategoryPerformance struct {
	Category   string  `json:"category"`
	OrderCount int     `json:"order_count"`
	Revenue    float64 `json:"revenue"`
}

type PaymentShare struct {
	PaymentType string `json:"payment_type"`
	Count       int    `json:"count"`
	Percentage  string `json:"percentage"`
}

type PaymentTotal struct {
	PaymentType string  `json:"payment_type"`
	Value       float64 `json:"payment_value"`
}

type CustomerRFM struct {
	CustomerID string  `json:"customer_id"`
	Recency    int     `json:"recency"`
	Frequency  int     `json:"frequency"`
	Monetary   float64 `json:"monetary"`
}
