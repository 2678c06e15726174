// Package catalog declares the canonical stock/invoice columns the dashboard
// understands, together with the spellings observed across source sheets.
// The catalog is the domain configuration consumed by the header resolver:
// each column carries a resolver field plus the value kind that drives cell
// coercion during ingest and column type at rest.
package catalog

import "github.com/biogene/stockdash/internal/resolve"

// Kind is the value type of a canonical column.
type Kind int

const (
	Text Kind = iota
	Date
	Numeric
)

// Canonical field names. These are the only column identities the service
// layer and report queries ever refer to; raw sheet headers stay behind the
// resolver's mapping.
const (
	InvoiceNumber  = "invoice_number"
	InvoiceDate    = "invoice_date"
	GoodsRecdDate  = "goods_recd_date"
	DispatchDate   = "dispatch_date"
	DeliveryDate   = "delivery_date"
	CustomerName   = "customer_name"
	Station        = "station"
	Brand          = "brand"
	ItemCode       = "item_code"
	Description    = "description"
	TaxableValue   = "taxable_value"
	PurchaseValue  = "purchase_value"
	ClosingBalance = "closing_balance"
	InQty          = "in_qty"
	OutQty         = "out_qty"
	UnitPrice      = "unit_price"
)

// Column couples a resolver field with its value kind.
type Column struct {
	Field resolve.Field
	Kind  Kind
}

// columns lists every canonical column in display order. Aliases come from
// the header variants seen in customer sheets, including the misspelled
// "Discription" that one recurring supplier export carries.
var columns = []Column{
	{Field: resolve.Field{Name: InvoiceNumber, Aliases: []string{"invoice number", "invoice no", "inv no", "bill no"}}, Kind: Text},
	{Field: resolve.Field{Name: InvoiceDate, Aliases: []string{"invoice date"}}, Kind: Date},
	{Field: resolve.Field{Name: GoodsRecdDate, Aliases: []string{"goods recd date", "goods recd. date", "goods received date", "grn date"}}, Kind: Date},
	{Field: resolve.Field{Name: DispatchDate, Aliases: []string{"dispatch date"}}, Kind: Date},
	{Field: resolve.Field{Name: DeliveryDate, Aliases: []string{"delivery date"}}, Kind: Date},
	{Field: resolve.Field{Name: CustomerName, Aliases: []string{"customer name", "party name", "buyer"}}, Kind: Text},
	{Field: resolve.Field{Name: Station, Aliases: []string{"city", "destination", "place"}}, Kind: Text},
	{Field: resolve.Field{Name: Brand}, Kind: Text},
	{Field: resolve.Field{Name: ItemCode, Aliases: []string{"item code", "itemcode", "sku", "product code"}}, Kind: Text},
	{Field: resolve.Field{Name: Description, Aliases: []string{"item description", "discription"}}, Kind: Text},
	{Field: resolve.Field{Name: TaxableValue, Aliases: []string{"taxable value"}}, Kind: Numeric},
	{Field: resolve.Field{Name: PurchaseValue, Aliases: []string{"purchase value", "purchase value dollar/inr"}}, Kind: Numeric},
	{Field: resolve.Field{Name: ClosingBalance, Aliases: []string{"closing balance"}}, Kind: Numeric},
	{Field: resolve.Field{Name: InQty, Aliases: []string{"in qty", "qty in", "received qty"}}, Kind: Numeric},
	{Field: resolve.Field{Name: OutQty, Aliases: []string{"out qty", "qty out", "issued qty"}}, Kind: Numeric},
	{Field: resolve.Field{Name: UnitPrice, Aliases: []string{"unit price", "unit price inr", "unit price dollar/inr", "rate"}}, Kind: Numeric},
}

// Columns returns every canonical column in display order.
// The returned slice is a copy; callers may reorder it freely.
func Columns() []Column {
	out := make([]Column, len(columns))
	copy(out, columns)
	return out
}

// Fields returns the resolver fields for all canonical columns, in catalog
// order. This is the fixed field list handed to resolve.ResolveAll for
// every uploaded sheet.
func Fields() []resolve.Field {
	out := make([]resolve.Field, len(columns))
	for i, c := range columns {
		out[i] = c.Field
	}
	return out
}

// Lookup returns the column for a canonical field name.
func Lookup(name string) (Column, bool) {
	for _, c := range columns {
		if c.Field.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// DateFields returns the canonical names of all date columns.
func DateFields() []string {
	return byKind(Date)
}

// NumericFields returns the canonical names of all numeric columns.
func NumericFields() []string {
	return byKind(Numeric)
}

// TextFields returns the canonical names of all text columns.
func TextFields() []string {
	return byKind(Text)
}

func byKind(k Kind) []string {
	var out []string
	for _, c := range columns {
		if c.Kind == k {
			out = append(out, c.Field.Name)
		}
	}
	return out
}
