package server

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gridwatch/dcimpact/pkg/chart"
	"github.com/gridwatch/dcimpact/pkg/log"
	"github.com/gridwatch/dcimpact/pkg/report"
	"github.com/gridwatch/dcimpact/pkg/storage"
	"github.com/gridwatch/dcimpact/pkg/types"
)

var chartContentTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"svg":  "image/svg+xml",
	"pdf":  "application/pdf",
}

// Stored runs never change so anything addressed by ID can be cached for long.
const (
	cacheImmutable = "private, max-age=86400"
	cacheShort     = "private, max-age=60"
)

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSONError(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, maxListLimit)
	}

	runs, err := s.storage.ListRuns(ctx, limit)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to list runs", slog.Any("error", err))
		writeJSONError(w, "failed to list runs", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []types.Run{}
	}
	w.Header().Set("Cache-Control", cacheShort)
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleLatestRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	run, err := s.storage.GetLatestRun(ctx)
	if err != nil {
		s.writeStorageError(w, r, "failed to get latest run", err)
		return
	}
	w.Header().Set("Cache-Control", cacheShort)
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id, ok := runID(w, r)
	if !ok {
		return
	}
	run, err := s.storage.GetRun(r.Context(), id)
	if err != nil {
		s.writeStorageError(w, r, "failed to get run", err)
		return
	}
	w.Header().Set("Cache-Control", cacheImmutable)
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleGetRecords(w http.ResponseWriter, r *http.Request) {
	records, ok := s.loadRecords(w, r)
	if !ok {
		return
	}
	if records == nil {
		records = []types.TimeSeriesRecord{}
	}
	w.Header().Set("Cache-Control", cacheImmutable)
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleForecastCSV(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	records, ok := s.loadRecords(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := report.WriteForecastCSV(&buf, records); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to write forecast csv", slog.Any("error", err))
		writeJSONError(w, "failed to write forecast csv", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="forecast-%s.csv"`, r.PathValue("id")))
	w.Header().Set("Cache-Control", cacheImmutable)
	if _, err := buf.WriteTo(w); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	kind, format, err := chart.ParseKind(r.PathValue("chart"))
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusNotFound)
		return
	}
	contentType, ok := chartContentTypes[format]
	if !ok {
		writeJSONError(w, "unsupported chart format", http.StatusBadRequest)
		return
	}
	records, ok := s.loadRecords(w, r)
	if !ok {
		return
	}
	if len(records) == 0 {
		writeJSONError(w, "run has no records", http.StatusNotFound)
		return
	}

	var buf bytes.Buffer
	if err := chart.Write(&buf, kind, records, forecastStart(records), format); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to render chart", slog.String("chart", string(kind)), slog.Any("error", err))
		writeJSONError(w, "failed to render chart", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", cacheImmutable)
	if _, err := buf.WriteTo(w); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) loadRecords(w http.ResponseWriter, r *http.Request) ([]types.TimeSeriesRecord, bool) {
	id, ok := runID(w, r)
	if !ok {
		return nil, false
	}
	records, err := s.storage.GetRecords(r.Context(), id)
	if err != nil {
		s.writeStorageError(w, r, "failed to get records", err)
		return nil, false
	}
	return records, true
}

func runID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if err := storage.ValidateRunID(id); err != nil {
		writeJSONError(w, "invalid run id", http.StatusBadRequest)
		return "", false
	}
	return id, true
}

func (s *Server) writeStorageError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if errors.Is(err, storage.ErrRunNotFound) {
		writeJSONError(w, "run not found", http.StatusNotFound)
		return
	}
	ctx := r.Context()
	log.Ctx(ctx).ErrorContext(ctx, msg, slog.Any("error", err))
	writeJSONError(w, msg, http.StatusInternalServerError)
}

// forecastStart is the date of the first forecast record, or zero when every
// record is historical.
func forecastStart(records []types.TimeSeriesRecord) time.Time {
	for _, r := range records {
		if r.Forecast {
			return r.Date
		}
	}
	return time.Time{}
}
