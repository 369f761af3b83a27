package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"ecommerce-dashboard/internal/models"
)

const (
	batchSize  = 10000
	maxWorkers = 10
)

// Accepted purchase timestamp layouts, tried in order.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ErrSchema reports a header that lacks a required column.
var ErrSchema = errors.New("schema error")

// RowError locates a malformed record. Line counts the header as line 1.
type RowError struct {
	Line   int
	Column string
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d, column %s: %v", e.Line, e.Column, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

type columnIndex map[string]int

func indexHeader(header []string, required []string) (columnIndex, error) {
	idx := make(columnIndex, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := idx[name]; !dup {
			idx[name] = i
		}
	}

	var missing []string
	for _, col := range required {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing columns %s", ErrSchema, strings.Join(missing, ", "))
	}
	return idx, nil
}

func (c columnIndex) get(record []string, col string) string {
	i, ok := c[col]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable timestamp %q", s)
}

func parseAmount(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("unparsable number %q", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("amount %q is not a finite number", s)
	}
	if v < 0 {
		return 0, fmt.Errorf("negative amount %v", v)
	}
	return v, nil
}

// readCSV reads every record of a CSV file. The first record is the header.
func readCSV(filename string) ([][]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %s is empty", ErrSchema, filename)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	records := [][]string{header}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		records = append(records, record)
	}
	return records, nil
}

// parseRows converts records into rows using a bounded worker pool. Each
// batch writes into its own slice range, so row order is preserved. The
// first malformed row aborts the whole load.
func parseRows[T any](ctx context.Context, records [][]string, parse func([]string) (T, error)) ([]T, error) {
	rows := make([]T, len(records))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)

	for start := 0; start < len(records); start += batchSize {
		end := min(start+batchSize, len(records))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				row, err := parse(records[i])
				if err != nil {
					var rowErr *RowError
					if errors.As(err, &rowErr) {
						rowErr.Line = i + 2
					}
					return err
				}
				rows[i] = row
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rows, nil
}

const (
	colOrderID         = "order_id"
	colCustomerID      = "customer_id"
	colPurchasedAt     = "order_purchase_timestamp"
	colCategory        = "product_category_name"
	colCategoryEnglish = "product_category_name_english"
	colPrice           = "price"
	colPaymentType     = "payment_type"
	colPaymentValue    = "payment_value"
)

func parseOrderItems(ctx context.Context, records [][]string) ([]models.OrderItem, error) {
	idx, err := indexHeader(records[0], []string{colOrderID, colCustomerID, colPurchasedAt, colPrice})
	if err != nil {
		return nil, err
	}

	categoryCol := colCategoryEnglish
	if _, ok := idx[categoryCol]; !ok {
		categoryCol = colCategory
	}
	if _, ok := idx[categoryCol]; !ok {
		return nil, fmt.Errorf("%w: missing column %s or %s", ErrSchema, colCategoryEnglish, colCategory)
	}

	return parseRows(ctx, records[1:], func(record []string) (models.OrderItem, error) {
		purchasedAt, err := parseTimestamp(idx.get(record, colPurchasedAt))
		if err != nil {
			return models.OrderItem{}, &RowError{Column: colPurchasedAt, Err: err}
		}
		price, err := parseAmount(idx.get(record, colPrice))
		if err != nil {
			return models.OrderItem{}, &RowError{Column: colPrice, Err: err}
		}
		return models.OrderItem{
			OrderID:     idx.get(record, colOrderID),
			CustomerID:  idx.get(record, colCustomerID),
			PurchasedAt: purchasedAt,
			Category:    idx.get(record, categoryCol),
			Price:       price,
		}, nil
	})
}

func parsePayments(ctx context.Context, records [][]string) ([]models.Payment, error) {
	idx, err := indexHeader(records[0], []string{colPaymentType, colPaymentValue})
	if err != nil {
		return nil, err
	}

	return parseRows(ctx, records[1:], func(record []string) (models.Payment, error) {
		value, err := parseAmount(idx.get(record, colPaymentValue))
		if err != nil {
			return models.Payment{}, &RowError{Column: colPaymentValue, Err: err}
		}
		return models.Payment{
			Type:  idx.get(record, colPaymentType),
			Value: value,
		}, nil
	})
}
