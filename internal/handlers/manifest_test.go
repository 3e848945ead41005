package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"github.com/MLeehwa/lhswms/internal/barcode"
	"github.com/MLeehwa/lhswms/internal/config"
)

func newManifestRouter() *Router {
	return &Router{
		Router: mux.NewRouter(),
		cfg: &config.Config{
			Reconcile: config.ReconcileConfig{
				Prefixes:   []string{"2M"},
				CodeLength: 14,
			},
		},
	}
}

func previewCodes(t *testing.T, r *Router, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/manifest/replace", strings.NewReader(body))
	w := httptest.NewRecorder()
	r.replaceManifest(w, req)
	return w
}

func TestReplaceManifestCodesCleanup(t *testing.T) {
	r := newManifestRouter()

	// Duplicate spellings, whitespace-only and off-prefix entries must all
	// collapse or drop before rows are built, or the unique text index
	// rejects the confirmed replace.
	w := previewCodes(t, r, `{
		"codes": ["2M-000000000001", "2m 000000000001", "   ", "XX000000000001", "2M000000000002"],
		"confirm": false
	}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d (%s)", w.Code, w.Body.String())
	}

	var resp struct {
		ConfirmRequired bool                `json:"confirm_required"`
		Count           int                 `json:"count"`
		Candidates      []barcode.Candidate `json:"candidates"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if !resp.ConfirmRequired {
		t.Error("Preview should require confirmation")
	}
	if resp.Count != 2 {
		t.Errorf("Expected 2 candidates, got %d (%v)", resp.Count, resp.Candidates)
	}

	want := map[string]bool{"2M000000000001": true, "2M000000000002": true}
	seen := map[string]bool{}
	for _, cand := range resp.Candidates {
		if !want[cand.Text] {
			t.Errorf("Unexpected candidate %q", cand.Text)
		}
		if seen[cand.Text] {
			t.Errorf("Candidate %q appears twice", cand.Text)
		}
		seen[cand.Text] = true
	}
}

func TestReplaceManifestCodesAllFiltered(t *testing.T) {
	r := newManifestRouter()

	w := previewCodes(t, r, `{"codes": ["   ", "XX000000000001"], "confirm": false}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected status 422 when every code is filtered out, got %d", w.Code)
	}
}

func TestReplaceManifestRequiresInput(t *testing.T) {
	r := newManifestRouter()

	w := previewCodes(t, r, `{"confirm": true}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 without image or codes, got %d", w.Code)
	}
}
