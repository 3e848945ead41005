package handlers

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"gorm.io/datatypes"

	"github.com/MLeehwa/lhswms/internal/barcode"
	"github.com/MLeehwa/lhswms/internal/models"
	"github.com/MLeehwa/lhswms/internal/recognize"
)

// ReplaceManifestRequest starts a new manifest epoch. Either a photographed
// manifest page (base64 image) or an explicit code list is accepted. The
// replace is destructive and only runs with confirm=true; without it the
// extracted codes are returned for review.
type ReplaceManifestRequest struct {
	Image   string   `json:"image,omitempty"`
	Format  string   `json:"format,omitempty"`
	Codes   []string `json:"codes,omitempty"`
	Name    string   `json:"name,omitempty"`
	Confirm bool     `json:"confirm"`
}

// replaceManifest recognizes a manifest image, extracts the expected codes
// and atomically replaces the ocr_results table with them.
func (r *Router) replaceManifest(w http.ResponseWriter, req *http.Request) {
	var replaceReq ReplaceManifestRequest
	if err := json.NewDecoder(req.Body).Decode(&replaceReq); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	var candidates []barcode.Candidate
	switch {
	case replaceReq.Image != "":
		img, err := base64.StdEncoding.DecodeString(replaceReq.Image)
		if err != nil {
			respondError(w, http.StatusBadRequest, "image is not valid base64")
			return
		}

		prepared, err := recognize.Preprocess(img, r.cfg.Recognize.Contrast)
		if err != nil {
			respondError(w, http.StatusBadRequest, "could not decode image: "+err.Error())
			return
		}

		result, err := r.engine.Recognize(req.Context(), recognize.Input{
			Image:     prepared,
			Format:    recognize.ImageFormatPNG,
			Languages: r.cfg.Recognize.Languages,
		})
		if err != nil {
			respondError(w, http.StatusUnprocessableEntity, "recognition failed: "+err.Error())
			return
		}

		candidates = r.extractor.Extract(result)

	case len(replaceReq.Codes) > 0:
		// Hand-entered lists get the same cleanup the extractor applies:
		// normalize, drop blanks and off-prefix codes, dedupe on the
		// normalized value. Otherwise two spellings of one code collide on
		// the unique text index during the replace.
		seen := make(map[string]bool, len(replaceReq.Codes))
		for _, code := range replaceReq.Codes {
			text := barcode.Normalize(code)
			if text == "" || seen[text] {
				continue
			}
			if !hasAllowedPrefix(text, r.cfg.Reconcile.Prefixes) {
				continue
			}
			seen[text] = true
			candidates = append(candidates, barcode.Candidate{Text: text, Confidence: 100})
		}

	default:
		respondError(w, http.StatusBadRequest, "either image or codes is required")
		return
	}

	if len(candidates) == 0 {
		respondError(w, http.StatusUnprocessableEntity, "no codes found in manifest")
		return
	}

	if !replaceReq.Confirm {
		// Preview only; nothing is written
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"confirm_required": true,
			"count":            len(candidates),
			"candidates":       candidates,
		})
		return
	}

	prefixTag := strings.Join(r.cfg.Reconcile.Prefixes, ",")
	rows := make([]models.OCRResult, 0, len(candidates))
	for _, cand := range candidates {
		raw, _ := json.Marshal(cand)
		rows = append(rows, models.OCRResult{
			Name:       replaceReq.Name,
			Prefixes:   prefixTag,
			Text:       cand.Text,
			Confidence: cand.Confidence,
			Raw:        datatypes.JSON(raw),
		})
	}

	if err := r.store.ReplaceExpected(req.Context(), rows); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to replace expected set: "+err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"replaced": len(rows),
		"message":  "Expected set replaced. Refresh open sessions to pick it up.",
	})
}

// hasAllowedPrefix reports whether the code starts with one of the configured
// prefixes. An empty prefix list admits everything.
func hasAllowedPrefix(code string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, p := range prefixes {
		if strings.HasPrefix(code, p) {
			return true
		}
	}
	return false
}
