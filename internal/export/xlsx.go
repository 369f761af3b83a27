// Package export renders a dashboard report as an Excel workbook.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"ecommerce-dashboard/internal/models"
)

const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type sheet struct {
	name   string
	header []any
	rows   [][]any
}

func sheets(report *models.Report) []sheet {
	s := report.Summary
	result := []sheet{{
		name:   "Summary",
		header: []any{"Metric", "Value"},
		rows: [][]any{
			{"Start", report.Start.String()},
			{"End", report.End.String()},
			{"Total orders", s.TotalOrders},
			{"Total revenue", s.TotalRevenue},
			{"Average recency (days)", s.AvgRecency},
			{"Average frequency", s.AvgFrequency},
			{"Average monetary", s.AvgMonetary},
		},
	}}

	daily := sheet{name: "Daily Orders", header: []any{"Date", "Orders", "Revenue"}}
	for _, d := range report.DailyOrders {
		daily.rows = append(daily.rows, []any{d.Date.String(), d.OrderCount, d.Revenue})
	}

	monthlyOrders := sheet{name: "Monthly Orders", header: []any{"Month", "Orders"}}
	for _, m := range report.MonthlyOrders {
		monthlyOrders.rows = append(monthlyOrders.rows, []any{m.Month, m.OrderCount})
	}

	monthlyRevenue := sheet{name: "Monthly Revenue", header: []any{"Month", "Revenue"}}
	for _, m := range report.MonthlyRevenue {
		monthlyRevenue.rows = append(monthlyRevenue.rows, []any{m.Month, m.Revenue})
	}

	categories := sheet{name: "Categories", header: []any{"Category", "Orders", "Revenue"}}
	for _, c := range report.Categories {
		categories.rows = append(categories.rows, []any{c.Category, c.OrderCount, c.Revenue})
	}

	shares := sheet{name: "Payment Types", header: []any{"Payment type", "Count", "Percentage"}}
	for _, p := range report.PaymentShares {
		shares.rows = append(shares.rows, []any{p.PaymentType, p.Count, p.Percentage})
	}

	totals := sheet{name: "Payment Values", header: []any{"Payment type", "Payment value"}}
	for _, p := range report.PaymentTotals {
		totals.rows = append(totals.rows, []any{p.PaymentType, p.Value})
	}

	rfm := sheet{name: "RFM", header: []any{"Customer", "Recency", "Frequency", "Monetary"}}
	for _, c := range report.RFM {
		rfm.rows = append(rfm.rows, []any{c.CustomerID, c.Recency, c.Frequency, c.Monetary})
	}

	return append(result, daily, monthlyOrders, monthlyRevenue, categories, shares, totals, rfm)
}

// WriteWorkbook writes one sheet per derived table, each starting with a
// header row.
func WriteWorkbook(w io.Writer, report *models.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, s := range sheets(report) {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			return fmt.Errorf("create sheet %s: %w", s.name, err)
		}

		if err := f.SetSheetRow(s.name, "A1", &s.header); err != nil {
			return fmt.Errorf("write %s header: %w", s.name, err)
		}
		for j, row := range s.rows {
			cell, err := excelize.CoordinatesToCellName(1, j+2)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(s.name, cell, &row); err != nil {
				return fmt.Errorf("write %s row %d: %w", s.name, j+1, err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
