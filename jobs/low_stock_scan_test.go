package jobs

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/atelier-erp/atelier-erp/internal/platform/cache"
	"github.com/atelier-erp/atelier-erp/internal/shared"
	"github.com/atelier-erp/atelier-erp/internal/stock"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeLedger struct {
	records []stock.Record
	low     map[string]bool
	reorder map[string]bool
}

func (l *fakeLedger) List(ctx context.Context, filter stock.ListFilter) ([]stock.Record, error) {
	return l.records, nil
}

func (l *fakeLedger) IsLowStock(ctx context.Context, item stock.ItemRef) (bool, error) {
	return l.low[item.String()], nil
}

func (l *fakeLedger) NeedsReorder(ctx context.Context, item stock.ItemRef) (bool, error) {
	return l.reorder[item.String()], nil
}

type fakeAudit struct {
	logs []shared.AuditLog
}

func (a *fakeAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func TestLowStockScanCachesReportAndAuditsReorders(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	ttl := cache.NewTTLCache(client, time.Minute)

	oak := stock.ItemRef{Kind: stock.ItemKindRawMaterial, ID: 1}
	glue := stock.ItemRef{Kind: stock.ItemKindRawMaterial, ID: 2}
	chair := stock.ItemRef{Kind: stock.ItemKindProduct, ID: 3}
	ledger := &fakeLedger{
		records: []stock.Record{
			{Item: oak, AvailableStock: 2},
			{Item: glue, AvailableStock: 8},
			{Item: chair, AvailableStock: 40},
		},
		low:     map[string]bool{oak.String(): true, glue.String(): true},
		reorder: map[string]bool{oak.String(): true},
	}
	audit := &fakeAudit{}
	scanner := NewLowStockScanner(ledger, ttl, audit, discardLogger())

	task, err := NewLowStockScanTask(time.Now())
	require.NoError(t, err)
	require.NoError(t, scanner.Handle(context.Background(), task))

	var report LowStockReport
	require.NoError(t, ttl.Get(context.Background(), LowStockReportKey, &report))
	require.Equal(t, 3, report.Scanned)
	require.Len(t, report.Alerts, 2)

	require.Len(t, audit.logs, 1)
	require.Equal(t, "stock.reorder_needed", audit.logs[0].Action)
	require.Equal(t, oak.String(), audit.logs[0].EntityID)
}

func TestLowStockScanSkipsRetryOnBadPayload(t *testing.T) {
	scanner := NewLowStockScanner(&fakeLedger{}, nil, nil, discardLogger())
	err := scanner.Handle(context.Background(), asynq.NewTask(TaskLowStockScan, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}
