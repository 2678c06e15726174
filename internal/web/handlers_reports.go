package web

// handlers_reports.go serves the dashboard aggregates: headline KPIs plus
// the chart endpoints (weekly series, top customers, delivery histogram,
// top items, brand share, day matrix). Every report also downloads as CSV
// with ?format=csv.

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/biogene/stockdash/internal/core"
)

// wantsCSV reports whether the client asked for a CSV download.
func wantsCSV(r *http.Request) bool {
	return r.URL.Query().Get("format") == "csv"
}

// writeReportCSV streams a report as a CSV attachment.
func writeReportCSV(w http.ResponseWriter, name string, header []string, records [][]string) {
	timestamp := time.Now().Format("20060102_150405")
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s_%s.csv"`, name, timestamp))

	cw := csv.NewWriter(w)
	cw.Write(header)
	for _, rec := range records {
		cw.Write(rec)
	}
	cw.Flush()
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// handleKPIs returns the headline figures for the filtered row set.
func (s *Server) handleKPIs(w http.ResponseWriter, r *http.Request) {
	kpis, err := s.service.GetKPIs(r.Context(), parseRowFilter(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, kpis)
}

// handleWeeklySeries returns invoiced amount per calendar week.
func (s *Server) handleWeeklySeries(w http.ResponseWriter, r *http.Request) {
	series, err := s.service.GetWeeklySeries(r.Context(), parseRowFilter(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if wantsCSV(r) {
		records := make([][]string, len(series))
		for i, p := range series {
			records[i] = []string{
				p.WeekStart.Format("2006-01-02"),
				formatAmount(p.Amount),
				strconv.FormatInt(p.Rows, 10),
			}
		}
		writeReportCSV(w, "weekly", []string{"week_start", "amount", "rows"}, records)
		return
	}
	writeJSON(w, series)
}

// handleTopCustomers returns the highest-amount customers.
func (s *Server) handleTopCustomers(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", core.DefaultReportLimit)
	customers, err := s.service.GetTopCustomers(r.Context(), parseRowFilter(r), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if wantsCSV(r) {
		records := make([][]string, len(customers))
		for i, c := range customers {
			records[i] = []string{c.Customer, formatAmount(c.Amount), strconv.FormatInt(c.Rows, 10)}
		}
		writeReportCSV(w, "top_customers", []string{"customer", "amount", "rows"}, records)
		return
	}
	writeJSON(w, customers)
}

// handleDeliveryHistogram returns the delivery-time distribution.
func (s *Server) handleDeliveryHistogram(w http.ResponseWriter, r *http.Request) {
	bins, err := s.service.GetDeliveryHistogram(r.Context(), parseRowFilter(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if wantsCSV(r) {
		records := make([][]string, len(bins))
		for i, b := range bins {
			records[i] = []string{b.Label, strconv.FormatInt(b.Count, 10)}
		}
		writeReportCSV(w, "delivery_histogram", []string{"days", "count"}, records)
		return
	}
	writeJSON(w, bins)
}

// handleTopItems returns the items with the most stock movement.
func (s *Server) handleTopItems(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", core.DefaultReportLimit)
	items, err := s.service.GetTopItems(r.Context(), parseRowFilter(r), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if wantsCSV(r) {
		records := make([][]string, len(items))
		for i, it := range items {
			records[i] = []string{
				it.ItemCode, it.Description,
				formatAmount(it.InQty), formatAmount(it.OutQty),
				formatAmount(it.ClosingBalance), strconv.FormatInt(it.Rows, 10),
			}
		}
		writeReportCSV(w, "top_items",
			[]string{"item_code", "description", "in_qty", "out_qty", "closing_balance", "rows"}, records)
		return
	}
	writeJSON(w, items)
}

// handleBrandShare returns each brand's share of the total amount.
func (s *Server) handleBrandShare(w http.ResponseWriter, r *http.Request) {
	shares, err := s.service.GetBrandShare(r.Context(), parseRowFilter(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if wantsCSV(r) {
		records := make([][]string, len(shares))
		for i, b := range shares {
			records[i] = []string{b.Brand, formatAmount(b.Amount), formatAmount(b.Percent)}
		}
		writeReportCSV(w, "brand_share", []string{"brand", "amount", "percent"}, records)
		return
	}
	writeJSON(w, shares)
}

// handleDayMatrix returns the dispatch-day by delivery-day count grid.
func (s *Server) handleDayMatrix(w http.ResponseWriter, r *http.Request) {
	matrix, err := s.service.GetDayMatrix(r.Context(), parseRowFilter(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if wantsCSV(r) {
		header := append([]string{"dispatch_day"}, matrix.Days...)
		records := make([][]string, len(matrix.Days))
		for i, day := range matrix.Days {
			rec := make([]string, 0, len(matrix.Days)+1)
			rec = append(rec, day)
			for _, c := range matrix.Cells[i] {
				rec = append(rec, strconv.FormatInt(c, 10))
			}
			records[i] = rec
		}
		writeReportCSV(w, "day_matrix", header, records)
		return
	}
	writeJSON(w, matrix)
}

// dateRangeResponse reports the invoice date span of the filtered rows.
type dateRangeResponse struct {
	Min *time.Time `json:"min"`
	Max *time.Time `json:"max"`
}

// handleDateRange returns the earliest and latest invoice dates, used by the
// dashboard to seed its date pickers.
func (s *Server) handleDateRange(w http.ResponseWriter, r *http.Request) {
	min, max, err := s.service.GetDateRange(r.Context(), parseRowFilter(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, dateRangeResponse{Min: min, Max: max})
}
