package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gridwatch/dcimpact/pkg/forecast"
	"github.com/gridwatch/dcimpact/pkg/log"
	"github.com/gridwatch/dcimpact/pkg/scenario"
	"github.com/gridwatch/dcimpact/pkg/storage"
	"github.com/gridwatch/dcimpact/pkg/types"
)

// handleCreateRun runs a forecast with the posted overrides applied to the
// server's base scenario and stores the result. An empty body runs the base
// scenario unchanged.
func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var overrides scenario.Overrides
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&overrides); err != nil && !errors.Is(err, io.EOF) {
		log.Ctx(ctx).WarnContext(ctx, "failed to decode overrides", slog.Any("error", err))
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sc, err := s.base.Apply(overrides)
	if err != nil {
		writeScenarioError(w, r, err)
		return
	}

	start := time.Now()
	res, err := forecast.Run(ctx, sc)
	if err != nil {
		writeScenarioError(w, r, err)
		return
	}
	elapsed := time.Since(start)

	run := types.Run{
		ID:        storage.NewRunID(),
		CreatedAt: s.now().UTC(),
		Version:   types.CurrentRunVersion,
		Scenario:  sc.Config,
		PriceFit:  res.PriceFit,
		Annual:    res.Annual,
		Headlines: res.Headlines,
	}
	if err := s.storage.SaveRun(ctx, run, res.Records); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to save run", slog.String("runID", run.ID), slog.Any("error", err))
		writeJSONError(w, "failed to save run", http.StatusInternalServerError)
		return
	}
	observeRun(run, elapsed)

	log.Ctx(ctx).InfoContext(ctx, "run created",
		slog.String("runID", run.ID),
		slog.String("by", getIdentity(r).Email),
		slog.Float64("utilization", run.Scenario.Utilization),
		slog.Float64("efficiencyImprovement", run.Scenario.EfficiencyImprovement),
		slog.Float64("trendAdjustment", run.Scenario.TrendAdjustment),
		slog.Duration("elapsed", elapsed),
	)

	w.Header().Set("Location", fmt.Sprintf("/api/runs/%s", run.ID))
	writeJSON(w, http.StatusCreated, run)
}

func writeScenarioError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, scenario.ErrValidation) {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	log.Ctx(ctx).ErrorContext(ctx, "forecast failed", slog.Any("error", err))
	writeJSONError(w, "forecast failed", http.StatusInternalServerError)
}
