package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/MLeehwa/lhswms/internal/printer"
	"github.com/MLeehwa/lhswms/internal/reconcile"
	"github.com/MLeehwa/lhswms/internal/websocket"
)

// ScanRequest carries one scanner read
type ScanRequest struct {
	Code string `json:"code"`
}

// CorrectionRequest pairs a missing code with the unmatched scan believed to
// be its misread
type CorrectionRequest struct {
	Missing   string `json:"missing"`
	Unmatched string `json:"unmatched"`
}

// createSession opens a working session against the current expected set.
// The body may carry an options override; an empty body uses server defaults.
func (r *Router) createSession(w http.ResponseWriter, req *http.Request) {
	var override *reconcile.Options
	if req.Body != nil && req.ContentLength != 0 {
		override = &reconcile.Options{}
		if err := json.NewDecoder(req.Body).Decode(override); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request payload")
			return
		}
	}

	sess, err := r.registry.Open(req.Context(), override)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to load expected set: "+err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"session": sess.View(),
		"options": sess.Options(),
	})
}

// getSession returns the current partition view
func (r *Router) getSession(w http.ResponseWriter, req *http.Request) {
	sess, ok := r.registry.Get(mux.Vars(req)["id"])
	if !ok {
		respondError(w, http.StatusNotFound, "Session not found")
		return
	}
	respondJSON(w, http.StatusOK, sess.View())
}

// closeSession drops the session state; durable rows are untouched
func (r *Router) closeSession(w http.ResponseWriter, req *http.Request) {
	r.registry.Close(mux.Vars(req)["id"])
	respondJSON(w, http.StatusOK, map[string]string{"message": "Session closed"})
}

// refreshSession reloads the expected set from the row store and reclassifies
// the scans already recorded in this session
func (r *Router) refreshSession(w http.ResponseWriter, req *http.Request) {
	sess, ok := r.registry.Get(mux.Vars(req)["id"])
	if !ok {
		respondError(w, http.StatusNotFound, "Session not found")
		return
	}
	if err := sess.LoadExpected(req.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to reload expected set: "+err.Error())
		return
	}
	respondJSON(w, http.StatusOK, sess.View())
}

// clearSession empties the in-memory partitions only
func (r *Router) clearSession(w http.ResponseWriter, req *http.Request) {
	sess, ok := r.registry.Get(mux.Vars(req)["id"])
	if !ok {
		respondError(w, http.StatusNotFound, "Session not found")
		return
	}
	sess.Clear()
	respondJSON(w, http.StatusOK, sess.View())
}

// uploadSession batch-commits the session's scans as scan_items rows
func (r *Router) uploadSession(w http.ResponseWriter, req *http.Request) {
	sess, ok := r.registry.Get(mux.Vars(req)["id"])
	if !ok {
		respondError(w, http.StatusNotFound, "Session not found")
		return
	}

	view := sess.View()
	if err := sess.UploadBatch(req.Context()); err != nil {
		// Queued for retry; the station keeps working
		respondJSON(w, http.StatusAccepted, map[string]interface{}{
			"warning": err.Error(),
			"session": sess.View(),
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"uploaded": len(view.Matched) + len(view.Unmatched),
		"session":  sess.View(),
	})
}

// scanSession classifies one scanner read and pushes the outcome to the live
// feed. A store failure does not reject the scan; it is queued and surfaced
// through the unsynced list.
func (r *Router) scanSession(w http.ResponseWriter, req *http.Request) {
	sess, ok := r.registry.Get(mux.Vars(req)["id"])
	if !ok {
		respondError(w, http.StatusNotFound, "Session not found")
		return
	}

	var scanReq ScanRequest
	if err := json.NewDecoder(req.Body).Decode(&scanReq); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	outcome, err := sess.AddScan(req.Context(), scanReq.Code)
	view := sess.View()

	r.hub.BroadcastScan(websocket.ScanEvent{
		SessionID: sess.ID,
		Code:      scanReq.Code,
		Outcome:   string(outcome),
		Unsynced:  len(view.Unsynced),
		At:        time.Now(),
	})

	resp := map[string]interface{}{
		"outcome": outcome,
		"session": view,
	}
	if err != nil {
		resp["warning"] = err.Error()
	}
	respondJSON(w, http.StatusOK, resp)
}

// sessionCandidates returns ranked correction candidates for every unmatched
// code. extended=true also ranks against already-scanned expected codes.
func (r *Router) sessionCandidates(w http.ResponseWriter, req *http.Request) {
	sess, ok := r.registry.Get(mux.Vars(req)["id"])
	if !ok {
		respondError(w, http.StatusNotFound, "Session not found")
		return
	}
	extended := req.URL.Query().Get("extended") == "true"
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"candidates": sess.Candidates(extended),
	})
}

// applyCorrection merges a probable misread into the expected set
func (r *Router) applyCorrection(w http.ResponseWriter, req *http.Request) {
	sess, ok := r.registry.Get(mux.Vars(req)["id"])
	if !ok {
		respondError(w, http.StatusNotFound, "Session not found")
		return
	}

	var corrReq CorrectionRequest
	if err := json.NewDecoder(req.Body).Decode(&corrReq); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	err := sess.ApplyCorrection(req.Context(), corrReq.Missing, corrReq.Unmatched)
	switch {
	case errors.Is(err, reconcile.ErrNotMissing),
		errors.Is(err, reconcile.ErrNotUnmatched),
		errors.Is(err, reconcile.ErrBelowThreshold):
		respondError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		// Partial persistence failure; in-memory state already reflects
		// the correction
		respondJSON(w, http.StatusAccepted, map[string]interface{}{
			"warning": err.Error(),
			"session": sess.View(),
		})
		return
	}
	respondJSON(w, http.StatusOK, sess.View())
}

// recheckPDF renders a printable QR sheet of this session's missing codes
func (r *Router) recheckPDF(w http.ResponseWriter, req *http.Request) {
	sess, ok := r.registry.Get(mux.Vars(req)["id"])
	if !ok {
		respondError(w, http.StatusNotFound, "Session not found")
		return
	}

	pdf, err := printer.GenerateRecheckPDF(printer.DefaultRecheckConfig(), sess.ID, sess.Missing())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to generate PDF: "+err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="recheck.pdf"`)
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}
