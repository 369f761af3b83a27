package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"ecommerce-dashboard/internal/aggregate"
	"ecommerce-dashboard/internal/models"
	"ecommerce-dashboard/internal/observability"
)

// dataset is the immutable result of one load. It is swapped as a whole and
// never modified afterwards, so readers can use it without holding the lock.
type dataset struct {
	Items        []models.OrderItem
	Payments     []models.Payment
	LastModified time.Time
}

type Dashboard struct {
	mu       sync.RWMutex
	data     *dataset
	bounds   models.DateRange
	cacheDir string
	logger   *slog.Logger
}

type Option func(*Dashboard)

// WithCacheDir enables the parsed-data cache in dir.
func WithCacheDir(dir string) Option {
	return func(d *Dashboard) { d.cacheDir = dir }
}

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dashboard) { d.logger = logger }
}

func NewDashboard(opts ...Option) *Dashboard {
	d := &Dashboard{
		data:   &dataset{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SetData replaces the loaded tables. Items are copied and ordered by
// purchase time.
func (d *Dashboard) SetData(items []models.OrderItem, payments []models.Payment) {
	d.store(&dataset{
		Items:        slices.Clone(items),
		Payments:     slices.Clone(payments),
		LastModified: time.Now(),
	})
}

func (d *Dashboard) store(data *dataset) {
	slices.SortStableFunc(data.Items, func(a, b models.OrderItem) int {
		return a.PurchasedAt.Compare(b.PurchasedAt)
	})

	var bounds models.DateRange
	if n := len(data.Items); n > 0 {
		bounds = models.DateRange{
			Start: models.NewDate(data.Items[0].PurchasedAt).Time,
			End:   models.NewDate(data.Items[n-1].PurchasedAt).Time,
		}
	}

	d.mu.Lock()
	d.data = data
	d.bounds = bounds
	d.mu.Unlock()

	observability.SetLoadedRows("order_items", len(data.Items))
	observability.SetLoadedRows("payments", len(data.Payments))
}

func (d *Dashboard) snapshot() (*dataset, models.DateRange) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.data, d.bounds
}

// LoadFromCSV parses the order items and payments files. Any schema or row
// error aborts the load and leaves the previous data in place.
func (d *Dashboard) LoadFromCSV(ctx context.Context, ordersPath, paymentsPath string) error {
	if cached, err := d.loadFromCache(ordersPath, paymentsPath); err == nil {
		d.store(cached)
		d.logger.Info("loaded from cache",
			"order_items", len(cached.Items),
			"payments", len(cached.Payments),
		)
		return nil
	}

	start := time.Now()
	d.logger.Info("processing CSV files", "orders", ordersPath, "payments", paymentsPath)

	var data dataset
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		records, err := readCSV(ordersPath)
		if err != nil {
			return fmt.Errorf("orders %s: %w", ordersPath, err)
		}
		data.Items, err = parseOrderItems(gctx, records)
		if err != nil {
			return fmt.Errorf("orders %s: %w", ordersPath, err)
		}
		return nil
	})
	g.Go(func() error {
		records, err := readCSV(paymentsPath)
		if err != nil {
			return fmt.Errorf("payments %s: %w", paymentsPath, err)
		}
		data.Payments, err = parsePayments(gctx, records)
		if err != nil {
			return fmt.Errorf("payments %s: %w", paymentsPath, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("process csv: %w", err)
	}

	data.LastModified = time.Now()
	d.store(&data)

	if err := d.saveToCache(ordersPath, paymentsPath, &data); err != nil {
		d.logger.Warn("failed to save cache", "error", err)
	}

	duration := time.Since(start)
	rows := len(data.Items) + len(data.Payments)
	d.logger.Info("csv processing complete",
		"order_items", len(data.Items),
		"payments", len(data.Payments),
		"duration", duration,
		"rate", fmt.Sprintf("%.0f records/sec", float64(rows)/duration.Seconds()),
	)
	return nil
}

// Bounds returns the first and last purchase day of the loaded items, or a
// zero range when nothing is loaded.
func (d *Dashboard) Bounds() models.DateRange {
	_, bounds := d.snapshot()
	return bounds
}

// Report builds every derived table for r. A zero r covers the whole
// dataset. Each call computes a fresh report.
func (d *Dashboard) Report(ctx context.Context, r models.DateRange) *models.Report {
	data, bounds := d.snapshot()
	if r.IsZero() {
		r = bounds
	}

	_, span := observability.StartSpan(ctx, "dashboard.report")
	span.SetTag("start", models.NewDate(r.Start).String())
	span.SetTag("end", models.NewDate(r.End).String())

	start := time.Now()
	report := aggregate.BuildReport(data.Items, data.Payments, r)
	observability.ObserveReport(time.Since(start))

	span.SetTag("customers", strconv.Itoa(len(report.RFM)))
	span.End(observability.LoggerFrom(ctx, d.logger))
	return report
}

func (d *Dashboard) Stats() map[string]any {
	data, bounds := d.snapshot()

	orders := make(map[string]struct{})
	customers := make(map[string]struct{})
	categories := make(map[string]struct{})
	for _, item := range data.Items {
		orders[item.OrderID] = struct{}{}
		customers[item.CustomerID] = struct{}{}
		categories[item.Category] = struct{}{}
	}

	stats := map[string]any{
		"order_items":    len(data.Items),
		"payments":       len(data.Payments),
		"orders":         len(orders),
		"customers":      len(customers),
		"categories":     len(categories),
		"last_processed": data.LastModified,
	}
	if !bounds.IsZero() {
		stats["first_day"] = models.NewDate(bounds.Start).String()
		stats["last_day"] = models.NewDate(bounds.End).String()
	}
	return stats
}
