package recognize

import (
	"context"
	"errors"
)

// ErrNoText is returned when the engine produced no usable text for an image.
var ErrNoText = errors.New("no text recognized")

// ImageFormat identifies the content type of an input image.
type ImageFormat string

const (
	ImageFormatPNG  ImageFormat = "image/png"
	ImageFormatJPEG ImageFormat = "image/jpeg"
)

// Region is a rectangle in pixel coordinates, origin in the upper-left corner.
type Region struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Word is a single recognized token with its bounding box.
type Word struct {
	Text       string  `json:"text"`
	Bounds     Region  `json:"bounds"`
	Confidence float64 `json:"confidence"`
}

// Line groups words that share a baseline. Engines that cannot produce
// word-level geometry leave Words empty.
type Line struct {
	Text       string  `json:"text"`
	Words      []Word  `json:"words,omitempty"`
	Confidence float64 `json:"confidence"`
}

// Input is a single image submitted for recognition.
type Input struct {
	Image     []byte
	Format    ImageFormat
	Languages []string
}

// Result is the engine output for one image. Lines and Words are optional;
// PlainText is always populated when any text was found.
type Result struct {
	PlainText string `json:"plain_text"`
	Lines     []Line `json:"lines,omitempty"`
	Words     []Word `json:"words,omitempty"`
	Language  string `json:"language,omitempty"`
}

// Engine is the recognition provider contract: one image in, one result out.
// The core treats the provider as opaque.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, input Input) (Result, error)
}
