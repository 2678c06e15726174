package web

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

// handleListDatasets returns all stored datasets, newest first.
func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	datasets, err := s.service.ListDatasets(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, datasets)
}

// handleGetDataset returns one dataset by ID.
func (s *Server) handleGetDataset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "datasetID")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing dataset ID")
		return
	}

	dataset, err := s.service.GetDataset(r.Context(), id)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, dataset)
}

// handleDeleteDataset removes a dataset and all its rows.
func (s *Server) handleDeleteDataset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "datasetID")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing dataset ID")
		return
	}

	deleted, err := s.service.DeleteDataset(r.Context(), id)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, map[string]interface{}{
		"status":       "deleted",
		"rows_deleted": deleted,
	})
}

// handleRows returns one page of invoice rows matching the filter.
func (s *Server) handleRows(w http.ResponseWriter, r *http.Request) {
	filter := parseRowFilter(r)
	page := parseIntParam(r, "page", 1)
	pageSize := parseIntParam(r, "pageSize", 0)
	sorts := parseSorts(r)

	result, err := s.service.GetRows(r.Context(), filter, page, pageSize, sorts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, result)
}

// handleFilterOptions returns the distinct values for the filter dropdowns.
func (s *Server) handleFilterOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := s.service.GetFilterOptions(r.Context(), r.URL.Query().Get("dataset"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, opts)
}

// handleExport streams all rows matching the filter as a CSV download.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	filter := parseRowFilter(r)

	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("invoice_rows_%s.csv", timestamp)
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))

	cw := &countingWriter{w: w}
	if err := s.service.ExportCSV(r.Context(), filter, cw); err != nil {
		if cw.n == 0 {
			// Nothing sent yet, a proper error response is still possible.
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		// Mid-stream failure: the status line is gone, so appending JSON
		// would only corrupt the CSV. Log and abort the stream.
		slog.Error("csv export aborted mid-stream", "error", err, "written", cw.n)
	}
}

// countingWriter tracks how many bytes reached the client, so export errors
// can tell "nothing sent yet" apart from "stream already under way".
type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}
