package printer

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"
)

// RecheckConfig holds layout configuration for the recheck sheet
type RecheckConfig struct {
	Title      string  `json:"title"`
	Cols       int     `json:"cols"`
	Rows       int     `json:"rows"`
	MarginTop  float64 `json:"marginTop"`
	MarginLeft float64 `json:"marginLeft"`
	GapX       float64 `json:"gapX"`
	GapY       float64 `json:"gapY"`
}

// DefaultRecheckConfig is a 3x8 A4 grid that fits a clipboard
func DefaultRecheckConfig() RecheckConfig {
	return RecheckConfig{
		Title:      "Recheck List",
		Cols:       3,
		Rows:       8,
		MarginTop:  20,
		MarginLeft: 10,
		GapX:       3,
		GapY:       3,
	}
}

// GenerateRecheckPDF creates a printable sheet for the codes still missing
// from a session. Each cell carries the code as a QR so the operator can
// confirm a recheck with a single scan.
func GenerateRecheckPDF(cfg RecheckConfig, sessionID string, codes []string) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetFont("Arial", "B", 10)

	// A4 dimensions
	pageWidth, pageHeight := 210.0, 297.0

	totalGapX := float64(cfg.Cols-1) * cfg.GapX
	totalGapY := float64(cfg.Rows-1) * cfg.GapY

	availW := pageWidth - (cfg.MarginLeft * 2)
	availH := pageHeight - (cfg.MarginTop * 2)

	cellW := (availW - totalGapX) / float64(cfg.Cols)
	cellH := (availH - totalGapY) / float64(cfg.Rows)

	cellsPerPage := cfg.Cols * cfg.Rows

	header := func() {
		pdf.SetXY(cfg.MarginLeft, 6)
		pdf.SetFontSize(12)
		pdf.CellFormat(availW, 6, cfg.Title, "", 0, "L", false, 0, "")
		pdf.SetXY(cfg.MarginLeft, 12)
		pdf.SetFontSize(8)
		sub := fmt.Sprintf("Session %s  |  %d missing  |  %s",
			sessionID, len(codes), time.Now().Format("2006-01-02 15:04"))
		pdf.CellFormat(availW, 4, sub, "", 0, "L", false, 0, "")
	}

	if len(codes) == 0 {
		pdf.AddPage()
		header()
		pdf.SetXY(cfg.MarginLeft, cfg.MarginTop+10)
		pdf.SetFontSize(10)
		pdf.CellFormat(availW, 6, "Nothing to recheck.", "", 0, "L", false, 0, "")
	}

	for i, code := range codes {
		if i%cellsPerPage == 0 {
			pdf.AddPage()
			header()
		}

		indexOnPage := i % cellsPerPage
		col := indexOnPage % cfg.Cols
		row := indexOnPage / cfg.Cols

		x := cfg.MarginLeft + float64(col)*(cellW+cfg.GapX)
		y := cfg.MarginTop + float64(row)*(cellH+cfg.GapY)

		qrPng, err := qrcode.Encode(code, qrcode.Low, 256)
		if err != nil {
			return nil, err
		}

		imgName := fmt.Sprintf("qr_%d", i)
		imgOptions := gofpdf.ImageOptions{
			ImageType: "PNG",
			ReadDpi:   true,
		}
		reader := bytes.NewReader(qrPng)
		_ = pdf.RegisterImageOptionsReader(imgName, imgOptions, reader)

		qrSize := cellH * 0.65
		if qrSize > cellW {
			qrSize = cellW * 0.9
		}

		qrX := x + (cellW-qrSize)/2
		qrY := y + (cellH-qrSize)/2 - 2

		pdf.ImageOptions(imgName, qrX, qrY, qrSize, qrSize, false, imgOptions, 0, "")

		// Code text below the QR
		pdf.SetXY(x, y+cellH-6)
		pdf.SetFontSize(8)
		pdf.CellFormat(cellW, 5, code, "", 0, "C", false, 0, "")

		// Checkbox corner for a pen tick
		pdf.Rect(x+1, y+1, 4, 4, "D")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
