package core

// preview.go inspects an uploaded file without storing anything, so the UI
// can show the resolved column mapping and a sample before committing.

import (
	"fmt"
	"strconv"

	"github.com/biogene/stockdash/internal/ingest"
)

// PreviewSampleRows is how many parsed rows a preview includes.
const PreviewSampleRows = 10

// UploadPreview describes what an upload would produce.
type UploadPreview struct {
	FileName  string              `json:"fileName"`
	SheetName string              `json:"sheetName,omitempty"`
	HeaderRow int                 `json:"headerRow"`
	Headers   []string            `json:"headers"`
	Mapping   map[string]string   `json:"mapping"`
	Missing   []string            `json:"missing,omitempty"`
	TotalRows int                 `json:"totalRows"`
	Skipped   int                 `json:"skipped"`
	Segments  map[string]int      `json:"segments"`
	Sample    []map[string]string `json:"sample"`
}

// PreviewUpload parses a file and reports the resolved mapping plus a small
// sample of coerced rows. No data is written.
func (s *Service) PreviewUpload(fileName string, fileData []byte) (*UploadPreview, error) {
	parsed, err := ingest.Parse(fileName, fileData, s.opts)
	if err != nil {
		return nil, err
	}

	preview := &UploadPreview{
		FileName:  fileName,
		SheetName: parsed.SheetName,
		HeaderRow: parsed.HeaderRow,
		Headers:   parsed.Headers,
		Mapping:   parsed.Mapping,
		Missing:   parsed.Missing,
		TotalRows: len(parsed.Rows),
		Skipped:   parsed.Skipped,
		Segments:  make(map[string]int),
		Sample:    make([]map[string]string, 0, PreviewSampleRows),
	}

	for i, row := range parsed.Rows {
		preview.Segments[row.Segment]++
		if i < PreviewSampleRows {
			preview.Sample = append(preview.Sample, sampleRow(row))
		}
	}

	return preview, nil
}

// sampleRow renders a parsed row as display strings, omitting NULL cells.
func sampleRow(r ingest.Row) map[string]string {
	out := make(map[string]string)

	if r.InvoiceNumber.Valid {
		out["invoice_number"] = r.InvoiceNumber.String
	}
	if r.InvoiceDate.Valid {
		out["invoice_date"] = r.InvoiceDate.Time.Format("2006-01-02")
	}
	if r.DispatchDate.Valid {
		out["dispatch_date"] = r.DispatchDate.Time.Format("2006-01-02")
	}
	if r.DeliveryDate.Valid {
		out["delivery_date"] = r.DeliveryDate.Time.Format("2006-01-02")
	}
	if r.CustomerName.Valid {
		out["customer_name"] = r.CustomerName.String
	}
	if r.Station.Valid {
		out["station"] = r.Station.String
	}
	if r.Brand.Valid {
		out["brand"] = r.Brand.String
	}
	if r.ItemCode.Valid {
		out["item_code"] = r.ItemCode.String
	}
	if r.Amount.Valid {
		if v, err := r.Amount.Value(); err == nil {
			out["amount"] = fmt.Sprint(v)
		}
	}
	if r.DeliveryTimeDays.Valid {
		out["delivery_time_days"] = strconv.Itoa(int(r.DeliveryTimeDays.Int32))
	}
	out["segment"] = r.Segment

	return out
}
