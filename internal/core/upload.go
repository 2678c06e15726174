package core

// upload.go runs the background half of an upload: parse the file, insert
// the rows inside a transaction, and record the dataset once everything
// committed. Progress flows to listeners between chunks.

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/biogene/stockdash/internal/ingest"
)

// insertChunkSize is how many rows go into each COPY batch. Cancellation is
// checked and progress published between chunks.
var insertChunkSize = 1000

// rowColumns lists the invoice_rows columns in the order copyRow emits them.
var rowColumns = []string{
	"dataset_id",
	"invoice_number", "invoice_date", "goods_recd_date", "dispatch_date", "delivery_date",
	"customer_name", "station", "brand", "item_code", "description",
	"taxable_value", "purchase_value", "closing_balance", "in_qty", "out_qty", "unit_price",
	"amount", "delivery_time_days", "dispatch_day", "delivery_day", "invoice_day", "segment",
}

func copyRow(datasetID string, r ingest.Row) []interface{} {
	return []interface{}{
		datasetID,
		r.InvoiceNumber, r.InvoiceDate, r.GoodsRecdDate, r.DispatchDate, r.DeliveryDate,
		r.CustomerName, r.Station, r.Brand, r.ItemCode, r.Description,
		r.TaxableValue, r.PurchaseValue, r.ClosingBalance, r.InQty, r.OutQty, r.UnitPrice,
		r.Amount, r.DeliveryTimeDays, r.DispatchDay, r.DeliveryDay, r.InvoiceDay, r.Segment,
	}
}

// processUpload handles a direct file upload in the background.
func (s *Service) processUpload(ctx context.Context, upload *activeUpload, fileData []byte) {
	startTime := time.Now()

	defer func() {
		upload.closeListeners()
		close(upload.Done)
		s.cleanup(upload.ID, 5*time.Minute)
	}()

	fail := func(err error) {
		upload.updateProgress(func(p *UploadProgress) {
			p.Phase = PhaseFailed
			p.Error = err.Error()
		})
		upload.Result = &UploadResult{
			UploadID: upload.ID,
			FileName: upload.FileName,
			Error:    err.Error(),
			Duration: time.Since(startTime),
		}
	}

	upload.updateProgress(func(p *UploadProgress) {
		p.Phase = PhaseReading
	})

	parsed, err := ingest.Parse(upload.FileName, fileData, s.opts)
	if err != nil {
		fail(err)
		return
	}

	upload.updateProgress(func(p *UploadProgress) {
		p.Phase = PhaseResolving
		p.TotalRows = len(parsed.Rows)
	})

	if len(parsed.Rows) == 0 {
		fail(fmt.Errorf("%s: no data rows after header", upload.FileName))
		return
	}

	datasetID, inserted, err := s.insertDataset(ctx, upload, parsed)
	if err != nil {
		if ctx.Err() != nil {
			upload.updateProgress(func(p *UploadProgress) {
				p.Phase = PhaseCancelled
			})
			upload.Result = &UploadResult{
				UploadID: upload.ID,
				FileName: upload.FileName,
				Error:    "cancelled",
				Duration: time.Since(startTime),
			}
			return
		}
		fail(err)
		return
	}

	upload.updateProgress(func(p *UploadProgress) {
		p.Phase = PhaseComplete
		p.DatasetID = datasetID
		p.CurrentRow = len(parsed.Rows)
		p.Inserted = inserted
		p.Skipped = parsed.Skipped
	})

	upload.Result = &UploadResult{
		UploadID:  upload.ID,
		DatasetID: datasetID,
		FileName:  upload.FileName,
		SheetName: parsed.SheetName,
		TotalRows: len(parsed.Rows),
		Inserted:  inserted,
		Skipped:   parsed.Skipped,
		Mapping:   parsed.Mapping,
		Missing:   parsed.Missing,
		Duration:  time.Since(startTime),
	}
}

// insertDataset writes the dataset row and all invoice rows in one
// transaction. Nothing is visible until commit.
func (s *Service) insertDataset(ctx context.Context, upload *activeUpload, parsed *ingest.Result) (string, int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	datasetID := upload.ID

	_, err = tx.Exec(ctx, `
		INSERT INTO datasets (id, file_name, sheet_name, row_count, headers, mapping, missing)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7)`,
		datasetID, upload.FileName, parsed.SheetName, len(parsed.Rows),
		parsed.Headers, map[string]string(parsed.Mapping), parsed.Missing)
	if err != nil {
		return "", 0, fmt.Errorf("insert dataset: %w", err)
	}

	upload.updateProgress(func(p *UploadProgress) {
		p.Phase = PhaseInserting
	})

	inserted := 0
	for start := 0; start < len(parsed.Rows); start += insertChunkSize {
		if ctx.Err() != nil {
			return "", 0, ctx.Err()
		}

		end := start + insertChunkSize
		if end > len(parsed.Rows) {
			end = len(parsed.Rows)
		}
		chunk := parsed.Rows[start:end]

		n, err := tx.CopyFrom(ctx,
			pgx.Identifier{"invoice_rows"},
			rowColumns,
			pgx.CopyFromSlice(len(chunk), func(i int) ([]interface{}, error) {
				return copyRow(datasetID, chunk[i]), nil
			}),
		)
		if err != nil {
			return "", 0, fmt.Errorf("copy rows: %w", err)
		}

		inserted += int(n)
		upload.updateProgress(func(p *UploadProgress) {
			p.CurrentRow = end
			p.Inserted = inserted
		})
	}

	if err := tx.Commit(ctx); err != nil {
		return "", 0, fmt.Errorf("commit: %w", err)
	}

	return datasetID, inserted, nil
}
