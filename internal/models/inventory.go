package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// InventoryItem represents a stocked consumable or spare part.
type InventoryItem struct {
	ID       string          `json:"id"`
	SKU      string          `json:"sku"`
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Stock    float64         `json:"stock"`
	MinStock float64         `json:"minStock"`
	Unit     string          `json:"unit"`
	Location string          `json:"location"`
	Price    decimal.Decimal `json:"price"`
}

// IsCritical reports whether stock has fallen to or below the minimum.
func (i *InventoryItem) IsCritical() bool {
	return i.Stock <= i.MinStock
}

// StockValue returns stock multiplied by unit price.
func (i *InventoryItem) StockValue() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromFloat(i.Stock))
}

// NormalizeSKU trims and upper-cases a SKU for case-insensitive matching.
func NormalizeSKU(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}

// SupplyDocType is the kind of paperwork accompanying a stock receipt.
type SupplyDocType string

const (
	SupplyDocInvoice      SupplyDocType = "FACTURA"
	SupplyDocDispatchNote SupplyDocType = "GUIA_DESPACHO"
	SupplyDocReceipt      SupplyDocType = "BOLETA"
)

// IsValid reports whether t is a known supply document type.
func (t SupplyDocType) IsValid() bool {
	switch t {
	case SupplyDocInvoice, SupplyDocDispatchNote, SupplyDocReceipt:
		return true
	}
	return false
}

// SupplyItem is one received line on a supply document.
type SupplyItem struct {
	ItemID    string          `json:"itemId"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Quantity  float64         `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// LineTotal returns quantity times unit price.
func (s SupplyItem) LineTotal() decimal.Decimal {
	return s.UnitPrice.Mul(decimal.NewFromFloat(s.Quantity))
}

// SupplyDocument records an inbound stock receipt. Immutable once created.
type SupplyDocument struct {
	ID                string          `json:"id"`
	Type              SupplyDocType   `json:"type"`
	Provider          string          `json:"provider"`
	ExternalReference string          `json:"externalReference"`
	Date              time.Time       `json:"date"`
	Items             []SupplyItem    `json:"items"`
	NetAmount         decimal.Decimal `json:"netAmount"`
	Tax               decimal.Decimal `json:"tax"`
	TotalAmount       decimal.Decimal `json:"totalAmount"`
	ReceivedBy        string          `json:"receivedBy,omitempty"`
	Timestamp         time.Time       `json:"timestamp"`
}

// ConsumptionItem is one dispatched line on a consumption record.
type ConsumptionItem struct {
	ItemID    string          `json:"itemId"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Quantity  float64         `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Total     decimal.Decimal `json:"total"`
}

// ConsumptionRecord records stock dispatched to a work order. Immutable once created.
type ConsumptionRecord struct {
	ID             string            `json:"id"`
	WorkOrderID    string            `json:"workOrderId"`
	TechnicianID   string            `json:"technicianId"`
	TechnicianName string            `json:"technicianName"`
	Date           time.Time         `json:"date"`
	Items          []ConsumptionItem `json:"items"`
	TotalCost      decimal.Decimal   `json:"totalCost"`
	DispatchedBy   string            `json:"dispatchedBy,omitempty"`
	Timestamp      time.Time         `json:"timestamp"`
}

// Clone returns a copy with its own item slice.
func (d *SupplyDocument) Clone() *SupplyDocument {
	c := *d
	c.Items = append([]SupplyItem(nil), d.Items...)
	return &c
}

// Clone returns a copy with its own item slice.
func (r *ConsumptionRecord) Clone() *ConsumptionRecord {
	c := *r
	c.Items = append([]ConsumptionItem(nil), r.Items...)
	return &c
}
