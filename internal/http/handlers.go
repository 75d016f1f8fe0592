package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	applog "snstotal/internal/log"
	"snstotal/internal/pipeline"
	"snstotal/internal/render"
)

// maxPageBytes bounds the delivery page accepted by the totals endpoint.
const maxPageBytes = 5 << 20

type totalsResponse struct {
	RunID string            `json:"run_id"`
	Cards []render.CardView `json:"cards"`
}

// handleTotals runs one pass over the delivery page posted as the body.
func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPageBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "page exceeds 5 MiB")
			return
		}
		writeError(w, http.StatusBadRequest, "could not read request body")
		return
	}
	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, "request body must contain the delivery page")
		return
	}

	report, err := s.runner.Run(ctx, pipeline.BytesSource(body))
	if err != nil {
		logger.Failure(ctx, "Processing pass failed", err, applog.FieldOperation, applog.OpAggregate)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	resp := totalsResponse{RunID: report.RunID, Cards: make([]render.CardView, 0, len(report.Outcomes))}
	for _, o := range report.Outcomes {
		resp.Cards = append(resp.Cards, render.NewCardView(o))
	}
	logger.InfoContext(ctx, "Totals computed",
		applog.FieldRunID, report.RunID,
		applog.FieldCardCount, len(report.Outcomes),
		"failed", report.Failed())
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
