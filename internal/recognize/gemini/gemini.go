package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/MLeehwa/lhswms/internal/recognize"
)

const defaultPrompt = "Read every line of printed text in this image. " +
	"Return the raw text only, one line per physical line, no commentary."

// Engine performs text recognition through the Google Gemini API using the
// official SDK. It returns plain lines without word-level geometry, so the
// extractor falls back to its line-scan and raw-split strategies.
type Engine struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// New creates a Gemini-backed recognition engine.
func New(ctx context.Context, apiKey, modelName string) (*Engine, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is empty")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}

	return &Engine{
		client: client,
		model:  client.GenerativeModel(modelName),
	}, nil
}

// Name implements recognize.Engine.
func (e *Engine) Name() string { return "gemini" }

// Close closes the underlying client connection.
func (e *Engine) Close() {
	if e.client != nil {
		e.client.Close()
	}
}

// Recognize sends the image to Gemini and converts the response into lines.
// Gemini does not report per-line confidence, so lines carry confidence 0 and
// downstream consumers treat them as unverified.
func (e *Engine) Recognize(ctx context.Context, input recognize.Input) (recognize.Result, error) {
	format := "png"
	if input.Format == recognize.ImageFormatJPEG {
		format = "jpeg"
	}

	resp, err := e.model.GenerateContent(ctx,
		genai.ImageData(format, input.Image),
		genai.Text(defaultPrompt),
	)
	if err != nil {
		return recognize.Result{}, fmt.Errorf("gemini generation error: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return recognize.Result{}, recognize.ErrNoText
	}

	var fullText string
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			fullText += string(txt)
		}
	}

	fullText = strings.TrimSpace(fullText)
	if fullText == "" {
		return recognize.Result{}, recognize.ErrNoText
	}

	result := recognize.Result{PlainText: fullText}
	for _, line := range strings.Split(fullText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		result.Lines = append(result.Lines, recognize.Line{Text: line})
	}

	return result, nil
}
