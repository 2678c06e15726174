// Package ingest turns uploaded spreadsheet files into typed invoice rows.
//
// The pipeline is: read the file into a raw grid (xlsx or CSV), locate the
// header row, resolve headers to canonical columns, coerce each cell by its
// column kind, then derive the computed fields. Cells that fail coercion
// become NULLs; only unreadable files and missing header rows are errors.
package ingest

import (
	"errors"
	"fmt"

	"github.com/biogene/stockdash/internal/catalog"
	"github.com/biogene/stockdash/internal/resolve"
)

// ErrNoHeaderRow means no early row in the sheet resolved enough catalog
// columns to be the table header.
var ErrNoHeaderRow = errors.New("no header row found")

// Parse runs the full ingest pipeline over one uploaded file.
func Parse(fileName string, data []byte, opts Options) (*Result, error) {
	sheetName, rows, err := ReadRows(fileName, data)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fileName, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: file contains no rows", fileName)
	}

	fields := catalog.Fields()
	headerIdx := findHeaderRow(rows, fields)
	if headerIdx < 0 {
		return nil, fmt.Errorf("%s: %w", fileName, ErrNoHeaderRow)
	}

	headers := make([]string, len(rows[headerIdx]))
	for i, h := range rows[headerIdx] {
		headers[i] = CleanCell(h)
	}

	mapping := resolve.ResolveAll(headers, fields)

	res := &Result{
		SheetName: sheetName,
		HeaderRow: headerIdx,
		Headers:   headers,
		Mapping:   mapping,
	}
	for _, f := range fields {
		if _, ok := mapping[f.Name]; !ok {
			res.Missing = append(res.Missing, f.Name)
		}
	}

	// Column positions for each resolved field. Duplicate raw headers keep
	// their first position, matching the resolver's view of the sheet.
	pos := make(map[string]int, len(headers))
	for i, h := range headers {
		if _, seen := pos[h]; !seen {
			pos[h] = i
		}
	}
	index := make(map[string]int, len(mapping))
	for field, header := range mapping {
		index[field] = pos[header]
	}

	home := homeStationSet(opts.HomeStations)

	for _, record := range rows[headerIdx+1:] {
		if isEmptyRow(record) {
			res.Skipped++
			continue
		}
		row := buildRow(record, index)
		derive(&row, home)
		res.Rows = append(res.Rows, row)
	}

	return res, nil
}

// buildRow coerces one record into a typed row using the resolved column
// positions. Records shorter than the header row are padded with NULLs.
func buildRow(record []string, index map[string]int) Row {
	cell := func(field string) string {
		i, ok := index[field]
		if !ok || i >= len(record) {
			return ""
		}
		return record[i]
	}

	return Row{
		InvoiceNumber: ToPgText(cell(catalog.InvoiceNumber)),
		InvoiceDate:   ToPgDate(cell(catalog.InvoiceDate)),
		GoodsRecdDate: ToPgDate(cell(catalog.GoodsRecdDate)),
		DispatchDate:  ToPgDate(cell(catalog.DispatchDate)),
		DeliveryDate:  ToPgDate(cell(catalog.DeliveryDate)),
		CustomerName:  ToPgText(cell(catalog.CustomerName)),
		Station:       ToPgText(cell(catalog.Station)),
		Brand:         ToPgText(cell(catalog.Brand)),
		ItemCode:      ToPgText(cell(catalog.ItemCode)),
		Description:   ToPgText(cell(catalog.Description)),

		TaxableValue:   ToPgNumeric(cell(catalog.TaxableValue)),
		PurchaseValue:  ToPgNumeric(cell(catalog.PurchaseValue)),
		ClosingBalance: ToPgNumeric(cell(catalog.ClosingBalance)),
		InQty:          ToPgNumeric(cell(catalog.InQty)),
		OutQty:         ToPgNumeric(cell(catalog.OutQty)),
		UnitPrice:      ToPgNumeric(cell(catalog.UnitPrice)),
	}
}
