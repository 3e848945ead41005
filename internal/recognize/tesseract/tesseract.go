package tesseract

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/MLeehwa/lhswms/internal/recognize"
)

// Engine runs recognition locally through the gosseract Tesseract binding.
// Unlike the Gemini engine it produces line- and word-level geometry with
// confidences, which the extractor's structured strategies rely on.
type Engine struct {
	clientFactory func() *gosseract.Client
}

// New constructs a Tesseract-backed engine.
func New() *Engine {
	return &Engine{clientFactory: gosseract.NewClient}
}

// Name implements recognize.Engine.
func (e *Engine) Name() string { return "tesseract" }

// Recognize performs OCR on a single image.
func (e *Engine) Recognize(ctx context.Context, in recognize.Input) (recognize.Result, error) {
	select {
	case <-ctx.Done():
		return recognize.Result{}, ctx.Err()
	default:
	}

	c := e.clientFactory()
	defer c.Close()

	if err := c.SetImageFromBytes(in.Image); err != nil {
		return recognize.Result{}, fmt.Errorf("set image: %w", err)
	}
	if len(in.Languages) > 0 {
		if err := c.SetLanguage(in.Languages...); err != nil {
			return recognize.Result{}, fmt.Errorf("set languages: %w", err)
		}
	}

	text, err := c.Text()
	if err != nil {
		return recognize.Result{}, fmt.Errorf("recognize text: %w", err)
	}
	plain := strings.TrimSpace(text)
	if plain == "" {
		return recognize.Result{}, recognize.ErrNoText
	}

	result := recognize.Result{
		PlainText: plain,
		Lines:     extractLines(c),
		Words:     extractWords(c),
	}
	return result, nil
}

func extractLines(c *gosseract.Client) []recognize.Line {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil || len(boxes) == 0 {
		return nil
	}
	lines := make([]recognize.Line, 0, len(boxes))
	for _, b := range boxes {
		lines = append(lines, recognize.Line{
			Text:       strings.TrimSpace(b.Word),
			Confidence: b.Confidence,
		})
	}
	return lines
}

func extractWords(c *gosseract.Client) []recognize.Word {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return nil
	}
	words := make([]recognize.Word, 0, len(boxes))
	for _, b := range boxes {
		words = append(words, recognize.Word{
			Text: b.Word,
			Bounds: recognize.Region{
				X:      float64(b.Box.Min.X),
				Y:      float64(b.Box.Min.Y),
				Width:  float64(b.Box.Dx()),
				Height: float64(b.Box.Dy()),
			},
			Confidence: b.Confidence,
		})
	}
	return words
}
