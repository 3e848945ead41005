package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MLeehwa/lhswms/internal/inventory"
)

// InventoryRequest carries one pallet barcode
type InventoryRequest struct {
	Code string `json:"code"`
}

// receiveInventory marks a pallet as received
func (r *Router) receiveInventory(w http.ResponseWriter, req *http.Request) {
	var invReq InventoryRequest
	if err := json.NewDecoder(req.Body).Decode(&invReq); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	rec, err := r.inventory.Receive(req.Context(), invReq.Code)
	switch {
	case errors.Is(err, inventory.ErrEmptyCode), errors.Is(err, inventory.ErrPrefixMismatch):
		respondError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, inventory.ErrAlreadyReceived):
		respondError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, rec)
}

// disposeInventory marks a received pallet as disposed
func (r *Router) disposeInventory(w http.ResponseWriter, req *http.Request) {
	var invReq InventoryRequest
	if err := json.NewDecoder(req.Body).Decode(&invReq); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	rec, err := r.inventory.Dispose(req.Context(), invReq.Code)
	switch {
	case errors.Is(err, inventory.ErrEmptyCode), errors.Is(err, inventory.ErrPrefixMismatch):
		respondError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, inventory.ErrNotReceived), errors.Is(err, inventory.ErrAlreadyDisposed):
		respondError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

// inventoryReport returns the aging report as JSON
func (r *Router) inventoryReport(w http.ResponseWriter, req *http.Request) {
	report, err := r.inventory.Report(req.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to build report: "+err.Error())
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// inventoryReportCSV streams the aging report as an Excel-friendly CSV
func (r *Router) inventoryReportCSV(w http.ResponseWriter, req *http.Request) {
	report, err := r.inventory.Report(req.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to build report: "+err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="inventory_report.csv"`)
	w.WriteHeader(http.StatusOK)
	if err := inventory.WriteCSV(w, report.Rows); err != nil {
		// Headers already sent; nothing useful left to do
		return
	}
}
