package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/biogene/stockdash/internal/ingest"
)

// UploadTimeout is the maximum duration for an upload operation.
var UploadTimeout = 10 * time.Minute

// Service provides the core business logic for the stock dashboard.
type Service struct {
	pool    *pgxpool.Pool
	opts    ingest.Options
	limiter *UploadLimiter

	mu      sync.RWMutex
	uploads map[string]*activeUpload
}

type activeUpload struct {
	ID         string
	FileName   string
	Cancel     context.CancelFunc
	Progress   UploadProgress
	Result     *UploadResult
	Done       chan struct{}
	Listeners  []chan UploadProgress
	ListenerMu sync.Mutex
}

// NewService creates a new Service instance. The ingest options carry the
// home-station list used to segment rows.
func NewService(pool *pgxpool.Pool, opts ingest.Options, limiter *UploadLimiter) *Service {
	if limiter == nil {
		limiter = NewUploadLimiter(DefaultMaxConcurrentUploads, DefaultMaxWaitTime)
	}
	return &Service{
		pool:    pool,
		opts:    opts,
		limiter: limiter,
		uploads: make(map[string]*activeUpload),
	}
}

// Limiter exposes the upload limiter for shutdown draining and status.
func (s *Service) Limiter() *UploadLimiter {
	return s.limiter
}

// StartUpload begins an asynchronous upload operation.
// Returns the upload ID immediately. Use SubscribeProgress to get updates.
func (s *Service) StartUpload(ctx context.Context, fileName string, fileData []byte) (string, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return "", err
	}

	uploadID := uuid.New().String()
	uploadCtx, cancel := context.WithTimeout(context.Background(), UploadTimeout)

	upload := &activeUpload{
		ID:       uploadID,
		FileName: fileName,
		Cancel:   cancel,
		Progress: UploadProgress{
			UploadID: uploadID,
			Phase:    PhaseStarting,
			FileName: fileName,
		},
		Done:      make(chan struct{}),
		Listeners: make([]chan UploadProgress, 0),
	}

	s.mu.Lock()
	s.uploads[uploadID] = upload
	s.mu.Unlock()

	go func() {
		defer s.limiter.Release()
		s.processUpload(uploadCtx, upload, fileData)
	}()

	return uploadID, nil
}

// SubscribeProgress returns a channel that receives progress updates.
// The channel is closed when the upload completes.
func (s *Service) SubscribeProgress(uploadID string) (<-chan UploadProgress, error) {
	s.mu.RLock()
	upload, ok := s.uploads[uploadID]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("upload not found: %s", uploadID)
	}

	ch := make(chan UploadProgress, 10)

	upload.ListenerMu.Lock()
	upload.Listeners = append(upload.Listeners, ch)
	// Send current progress immediately
	select {
	case ch <- upload.Progress:
	default:
	}
	upload.ListenerMu.Unlock()

	return ch, nil
}

// CancelUpload cancels an in-progress upload.
func (s *Service) CancelUpload(uploadID string) error {
	s.mu.RLock()
	upload, ok := s.uploads[uploadID]
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("upload not found: %s", uploadID)
	}

	upload.Cancel()
	return nil
}

// GetUploadResult returns the result of a completed upload.
// Blocks until the upload completes if still in progress.
func (s *Service) GetUploadResult(uploadID string) (*UploadResult, error) {
	s.mu.RLock()
	upload, ok := s.uploads[uploadID]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("upload not found: %s", uploadID)
	}

	<-upload.Done

	return upload.Result, nil
}

// GetUploadProgress returns the current progress without blocking.
func (s *Service) GetUploadProgress(uploadID string) (UploadProgress, error) {
	s.mu.RLock()
	upload, ok := s.uploads[uploadID]
	s.mu.RUnlock()

	if !ok {
		return UploadProgress{}, fmt.Errorf("upload not found: %s", uploadID)
	}

	return upload.snapshotProgress(), nil
}

// updateProgress applies fn to the progress under the listener lock, then
// fans the new state out to all listeners. The worker goroutine mutates
// Progress only through here so handler reads never see a torn struct.
func (upload *activeUpload) updateProgress(fn func(*UploadProgress)) {
	upload.ListenerMu.Lock()
	defer upload.ListenerMu.Unlock()

	fn(&upload.Progress)

	for _, ch := range upload.Listeners {
		select {
		case ch <- upload.Progress:
		default:
			// Listener is slow, skip this update
		}
	}
}

// snapshotProgress returns a copy of the current progress.
func (upload *activeUpload) snapshotProgress() UploadProgress {
	upload.ListenerMu.Lock()
	defer upload.ListenerMu.Unlock()
	return upload.Progress
}

// closeListeners closes all listener channels.
func (upload *activeUpload) closeListeners() {
	upload.ListenerMu.Lock()
	defer upload.ListenerMu.Unlock()

	for _, ch := range upload.Listeners {
		close(ch)
	}
	upload.Listeners = nil
}

// cleanup removes the upload from tracking after a delay.
func (s *Service) cleanup(uploadID string, delay time.Duration) {
	time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.uploads, uploadID)
		s.mu.Unlock()
	})
}

// ListDatasets returns every stored dataset, newest first.
func (s *Service) ListDatasets(ctx context.Context) ([]Dataset, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, file_name, COALESCE(sheet_name, ''), row_count, headers, mapping, missing, uploaded_at
		FROM datasets
		ORDER BY uploaded_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	defer rows.Close()

	datasets := make([]Dataset, 0)
	for rows.Next() {
		d, err := scanDataset(rows)
		if err != nil {
			return nil, err
		}
		datasets = append(datasets, d)
	}
	return datasets, rows.Err()
}

// GetDataset returns a single dataset by ID.
func (s *Service) GetDataset(ctx context.Context, id string) (*Dataset, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, file_name, COALESCE(sheet_name, ''), row_count, headers, mapping, missing, uploaded_at
		FROM datasets
		WHERE id = $1`, id)

	d, err := scanDataset(row)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("dataset not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// DeleteDataset removes a dataset and, via cascade, all its rows.
// Returns the number of invoice rows deleted.
func (s *Service) DeleteDataset(ctx context.Context, id string) (int64, error) {
	var rowCount int64
	err := s.pool.QueryRow(ctx,
		`SELECT row_count FROM datasets WHERE id = $1`, id).Scan(&rowCount)
	if err == pgx.ErrNoRows {
		return 0, fmt.Errorf("dataset not found: %s", id)
	}
	if err != nil {
		return 0, fmt.Errorf("get dataset: %w", err)
	}

	if _, err := s.pool.Exec(ctx, `DELETE FROM datasets WHERE id = $1`, id); err != nil {
		return 0, fmt.Errorf("delete dataset: %w", err)
	}
	return rowCount, nil
}

func scanDataset(row pgx.Row) (Dataset, error) {
	var d Dataset
	if err := row.Scan(&d.ID, &d.FileName, &d.SheetName, &d.RowCount, &d.Headers, &d.Mapping, &d.Missing, &d.UploadedAt); err != nil {
		return Dataset{}, fmt.Errorf("scan dataset: %w", err)
	}
	return d, nil
}
