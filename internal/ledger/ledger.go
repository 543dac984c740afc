// Package ledger keeps work orders, inventory stock and tool custody mutually
// consistent. A Ledger owns every collection in memory, exposes the business
// operations as its only mutation surface, and writes touched collections to a
// Store after each successful operation.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/northchrome/opsledger/internal/database/seed"
	"github.com/northchrome/opsledger/internal/models"
	"github.com/northchrome/opsledger/internal/util"
)

// Store is the persistence boundary: one opaque payload per collection key.
// Load returns nil and no error when the key has never been written.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, payload []byte) error
}

// BatchStore is a Store that can write several collections at once.
type BatchStore interface {
	Store
	SaveBatch(ctx context.Context, payloads map[string][]byte) error
}

// Options configures a Ledger.
type Options struct {
	// TaxRate is applied to supply receipt net amounts. Zero selects 0.19.
	TaxRate float64
	// ActivityLimit caps the retained audit entries. Defaults to 50.
	ActivityLimit int
	// ActorID is recorded on every activity entry.
	ActorID string
	Clock   util.Clock
	Logger  *slog.Logger
	IDs     *util.IDGenerator
	// Defaults supplies the fallback for missing or unreadable collections.
	// When nil, an empty dataset is used.
	Defaults func() *seed.Dataset
}

const (
	defaultTaxRate       = 0.19
	defaultActivityLimit = 50
)

// Ledger is the single writer over all operational collections.
type Ledger struct {
	mu sync.Mutex

	store         Store
	clock         util.Clock
	log           *slog.Logger
	ids           *util.IDGenerator
	taxRate       decimal.Decimal
	activityLimit int
	actor         string
	defaults      func() *seed.Dataset

	workOrders   []*models.WorkOrder
	inventory    []*models.InventoryItem
	supplyDocs   []*models.SupplyDocument
	consumptions []*models.ConsumptionRecord
	tools        []*models.Tool
	loans        []*models.ToolLoan
	maintenances []*models.ToolMaintenance
	technicians  []*models.Technician
	activity     []models.ActivityEntry
	settings     models.Settings
}

// Open loads every collection from store, substituting defaults for missing or
// corrupted ones, and returns a ready Ledger.
func Open(ctx context.Context, store Store, opts Options) (*Ledger, error) {
	if store == nil {
		return nil, fmt.Errorf("opening ledger: store is required")
	}

	l := &Ledger{
		store:         store,
		clock:         opts.Clock,
		log:           opts.Logger,
		ids:           opts.IDs,
		taxRate:       decimal.NewFromFloat(opts.TaxRate),
		activityLimit: opts.ActivityLimit,
		actor:         opts.ActorID,
		defaults:      opts.Defaults,
	}
	if l.clock == nil {
		l.clock = util.SystemClock{}
	}
	if l.log == nil {
		l.log = slog.Default()
	}
	if l.ids == nil {
		l.ids = util.NewIDGenerator()
	}
	if opts.TaxRate == 0 {
		l.taxRate = decimal.NewFromFloat(defaultTaxRate)
	}
	if l.activityLimit <= 0 {
		l.activityLimit = defaultActivityLimit
	}
	if l.defaults == nil {
		l.defaults = func() *seed.Dataset {
			cfg := seed.DefaultConfig("", l.clock.Now())
			cfg.Demo = false
			return seed.NewGenerator(cfg).Generate()
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.loadAll(ctx); err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}

	return l, nil
}

// TaxRate returns the rate applied to supply receipts.
func (l *Ledger) TaxRate() decimal.Decimal {
	return l.taxRate
}

// Reset discards every collection and replaces it with the defaults.
func (l *Ledger) Reset(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ds := l.defaults()
	l.workOrders = ds.WorkOrders
	l.inventory = ds.Inventory
	l.supplyDocs = ds.SupplyDocuments
	l.consumptions = ds.Consumptions
	l.tools = ds.Tools
	l.loans = ds.ToolLoans
	l.maintenances = ds.ToolMaintenances
	l.technicians = ds.Technicians
	l.activity = ds.Activity
	l.settings = ds.Settings

	l.appendActivity(models.ActionUpdate, models.EntitySystem, "Datos restablecidos a valores iniciales")
	l.persist(ctx, allKeys...)
}
