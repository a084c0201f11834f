package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/atelier-erp/atelier-erp/internal/platform/cache"
	"github.com/atelier-erp/atelier-erp/internal/shared"
	"github.com/atelier-erp/atelier-erp/internal/stock"
)

// LedgerScanPort is the slice of the stock service the sweep needs.
type LedgerScanPort interface {
	List(ctx context.Context, filter stock.ListFilter) ([]stock.Record, error)
	IsLowStock(ctx context.Context, item stock.ItemRef) (bool, error)
	NeedsReorder(ctx context.Context, item stock.ItemRef) (bool, error)
}

// AuditPort records job findings into the audit trail.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// LowStockAlert is one item flagged by a sweep.
type LowStockAlert struct {
	Item           stock.ItemRef `json:"item"`
	AvailableStock float64       `json:"available_stock"`
	NeedsReorder   bool          `json:"needs_reorder"`
}

// LowStockReport is the cached result of the latest sweep.
type LowStockReport struct {
	RanAt   time.Time       `json:"ran_at"`
	Scanned int             `json:"scanned"`
	Alerts  []LowStockAlert `json:"alerts"`
}

// LowStockReportKey is the cache key the latest sweep result lives under.
const LowStockReportKey = "jobs:low_stock_report"

// LowStockScanner sweeps the whole ledger for items at or below their
// configured thresholds, caches the report, and audits reorder candidates.
type LowStockScanner struct {
	ledger LedgerScanPort
	cache  *cache.TTLCache
	audit  AuditPort
	logger *slog.Logger
}

// NewLowStockScanner constructs the sweep handler.
func NewLowStockScanner(ledger LedgerScanPort, c *cache.TTLCache, audit AuditPort, logger *slog.Logger) *LowStockScanner {
	return &LowStockScanner{ledger: ledger, cache: c, audit: audit, logger: logger}
}

// Handle processes a TaskLowStockScan task.
func (s *LowStockScanner) Handle(ctx context.Context, t *asynq.Task) error {
	var payload LowStockScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	records, err := s.ledger.List(ctx, stock.ListFilter{})
	if err != nil {
		return err
	}
	report := LowStockReport{RanAt: time.Now().UTC(), Scanned: len(records)}
	for _, rec := range records {
		low, err := s.ledger.IsLowStock(ctx, rec.Item)
		if err != nil {
			s.logger.Warn("low stock check failed", slog.String("item", rec.Item.String()), slog.Any("error", err))
			continue
		}
		if !low {
			continue
		}
		reorder, err := s.ledger.NeedsReorder(ctx, rec.Item)
		if err != nil {
			s.logger.Warn("reorder check failed", slog.String("item", rec.Item.String()), slog.Any("error", err))
			continue
		}
		report.Alerts = append(report.Alerts, LowStockAlert{
			Item:           rec.Item,
			AvailableStock: rec.AvailableStock,
			NeedsReorder:   reorder,
		})
		if reorder && s.audit != nil {
			_ = s.audit.Record(ctx, shared.AuditLog{
				Actor:    "jobs",
				Action:   "stock.reorder_needed",
				Entity:   string(rec.Item.Kind),
				EntityID: rec.Item.String(),
				Meta:     map[string]any{"available_stock": rec.AvailableStock},
				At:       report.RanAt,
			})
		}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, LowStockReportKey, report); err != nil {
			s.logger.Warn("low stock report cache failed", slog.Any("error", err))
		}
	}
	s.logger.Info("low stock sweep finished",
		slog.Int("scanned", report.Scanned),
		slog.Int("alerts", len(report.Alerts)))
	return nil
}
