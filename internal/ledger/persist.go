package ledger

import (
	"context"
	"encoding/json"
	"fmt"
)

// Collection keys in the Store.
const (
	KeyWorkOrders       = "work_orders"
	KeyInventory        = "inventory"
	KeySupplyDocuments  = "supply_documents"
	KeyConsumptions     = "consumption_records"
	KeyTools            = "tools"
	KeyToolLoans        = "tool_loans"
	KeyToolMaintenances = "tool_maintenances"
	KeyTechnicians      = "technicians"
	KeyActivity         = "activity_log"
	KeySettings         = "settings"
)

var allKeys = []string{
	KeyWorkOrders,
	KeyInventory,
	KeySupplyDocuments,
	KeyConsumptions,
	KeyTools,
	KeyToolLoans,
	KeyToolMaintenances,
	KeyTechnicians,
	KeyActivity,
	KeySettings,
}

// Keys returns every collection key the ledger persists.
func Keys() []string {
	return append([]string(nil), allKeys...)
}

// loadAll reads every collection. Keys never written are seeded and saved;
// keys holding unreadable payloads fall back to defaults in memory only, so
// the stored bytes survive until the collection is next written.
func (l *Ledger) loadAll(ctx context.Context) error {
	ds := l.defaults()
	var missing []string

	var err error
	if l.workOrders, err = loadCollection(ctx, l, KeyWorkOrders, ds.WorkOrders, &missing); err != nil {
		return err
	}
	if l.inventory, err = loadCollection(ctx, l, KeyInventory, ds.Inventory, &missing); err != nil {
		return err
	}
	if l.supplyDocs, err = loadCollection(ctx, l, KeySupplyDocuments, ds.SupplyDocuments, &missing); err != nil {
		return err
	}
	if l.consumptions, err = loadCollection(ctx, l, KeyConsumptions, ds.Consumptions, &missing); err != nil {
		return err
	}
	if l.tools, err = loadCollection(ctx, l, KeyTools, ds.Tools, &missing); err != nil {
		return err
	}
	if l.loans, err = loadCollection(ctx, l, KeyToolLoans, ds.ToolLoans, &missing); err != nil {
		return err
	}
	if l.maintenances, err = loadCollection(ctx, l, KeyToolMaintenances, ds.ToolMaintenances, &missing); err != nil {
		return err
	}
	if l.technicians, err = loadCollection(ctx, l, KeyTechnicians, ds.Technicians, &missing); err != nil {
		return err
	}
	if l.activity, err = loadCollection(ctx, l, KeyActivity, ds.Activity, &missing); err != nil {
		return err
	}
	if l.settings, err = loadCollection(ctx, l, KeySettings, ds.Settings, &missing); err != nil {
		return err
	}

	l.workOrders = compact(l.workOrders)
	l.inventory = compact(l.inventory)
	l.supplyDocs = compact(l.supplyDocs)
	l.consumptions = compact(l.consumptions)
	l.tools = compact(l.tools)
	l.loans = compact(l.loans)
	l.maintenances = compact(l.maintenances)
	l.technicians = compact(l.technicians)
	if len(l.activity) > l.activityLimit {
		l.activity = l.activity[:l.activityLimit]
	}

	if len(missing) > 0 {
		l.log.Info("seeding collections", "keys", missing)
		l.persist(ctx, missing...)
	}
	return nil
}

func loadCollection[T any](ctx context.Context, l *Ledger, key string, fallback T, missing *[]string) (T, error) {
	payload, err := l.store.Load(ctx, key)
	if err != nil {
		return fallback, fmt.Errorf("loading %s: %w", key, err)
	}
	if payload == nil {
		*missing = append(*missing, key)
		return fallback, nil
	}

	var v T
	if err := json.Unmarshal(payload, &v); err != nil {
		l.log.Warn("stored collection unreadable, using defaults", "key", key, "error", err)
		return fallback, nil
	}
	return v, nil
}

// compact drops null entries a hand-edited payload may contain.
func compact[T any](s []*T) []*T {
	out := make([]*T, 0, len(s))
	for _, v := range s {
		if v != nil {
			out = append(out, v)
		}
	}
	return out
}

func (l *Ledger) collection(key string) any {
	switch key {
	case KeyWorkOrders:
		return l.workOrders
	case KeyInventory:
		return l.inventory
	case KeySupplyDocuments:
		return l.supplyDocs
	case KeyConsumptions:
		return l.consumptions
	case KeyTools:
		return l.tools
	case KeyToolLoans:
		return l.loans
	case KeyToolMaintenances:
		return l.maintenances
	case KeyTechnicians:
		return l.technicians
	case KeyActivity:
		return l.activity
	case KeySettings:
		return l.settings
	}
	return nil
}

// persist writes the named collections. Failures are logged; the in-memory
// state stays committed.
func (l *Ledger) persist(ctx context.Context, keys ...string) {
	payloads := make(map[string][]byte, len(keys))
	for _, key := range keys {
		data, err := json.Marshal(l.collection(key))
		if err != nil {
			l.log.Error("encoding collection", "key", key, "error", err)
			continue
		}
		payloads[key] = data
	}
	if len(payloads) == 0 {
		return
	}

	if bs, ok := l.store.(BatchStore); ok {
		if err := bs.SaveBatch(ctx, payloads); err != nil {
			l.log.Error("saving collections", "keys", keys, "error", err)
		}
		return
	}

	for _, key := range keys {
		data, ok := payloads[key]
		if !ok {
			continue
		}
		if err := l.store.Save(ctx, key, data); err != nil {
			l.log.Error("saving collection", "key", key, "error", err)
		}
	}
}
