package templates

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecommerce-dashboard/internal/models"
)

func render(t *testing.T, bounds models.DateRange) string {
	t.Helper()
	var b strings.Builder
	require.NoError(t, Dashboard(bounds).Render(context.Background(), &b))
	return b.String()
}

func TestDashboard(t *testing.T) {
	html := render(t, models.DateRange{
		Start: time.Date(2016, 9, 4, 21, 15, 0, 0, time.UTC),
		End:   time.Date(2018, 10, 17, 17, 30, 0, 0, time.UTC),
	})

	assert.True(t, strings.HasPrefix(html, "<!doctype html>"))
	assert.Contains(t, html, "<h1>E-Commerce Dashboard</h1>")
	assert.Contains(t, html, `data-signals="{startDate: &#39;2016-09-04&#39;, endDate: &#39;2018-10-17&#39;}"`)
	assert.Contains(t, html, `data-init="@get('/sse/refresh-all')"`)
	assert.Contains(t, html, `min="2016-09-04" max="2018-10-17"`)

	for _, s := range Sections {
		assert.Contains(t, html, `id="`+s.ID+`"`)
	}
	assert.Contains(t, html, "Best &amp; Worst Performing Product")
	assert.Contains(t, html, "Best Customer Based on RFM Parameters")
}

func TestDashboard_NoData(t *testing.T) {
	html := render(t, models.DateRange{})

	assert.Contains(t, html, `data-signals="{startDate: &#39;&#39;, endDate: &#39;&#39;}"`)
	assert.Contains(t, html, "/sse/refresh-all")
}

func TestDashboard_ChartsAndExport(t *testing.T) {
	html := render(t, models.DateRange{})

	assert.Contains(t, html, "<script>"+charts+"</script>")
	assert.Contains(t, html, `<canvas id="daily-chart"></canvas><div id="daily-content" class="loading">`)
	assert.NotContains(t, html, `<canvas id=""`)
	assert.Contains(t, html, `data-attr:href="'/api/export.xlsx?start=' + $startDate + '&amp;end=' + $endDate"`)
}

func TestDashboard_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var b strings.Builder
	err := Dashboard(models.DateRange{}).Render(ctx, &b)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, b.String())
}

func TestSignals(t *testing.T) {
	first, last := dayBounds(models.DateRange{
		Start: time.Date(2017, 11, 24, 10, 0, 0, 0, time.UTC),
		End:   time.Date(2018, 1, 15, 20, 45, 0, 0, time.UTC),
	})
	assert.Equal(t, "{startDate: '2017-11-24', endDate: '2018-01-15'}", signals(first, last))
}
