package barcode

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/MLeehwa/lhswms/internal/recognize"
)

const (
	// Vertical tolerance (px) when grouping loose words into lines.
	defaultLineTolerance = 5.0
	// Rolling-window size for the cross-word-boundary pass.
	defaultWindow = 3
	// Recognizer confidence (0-100) at or above which the aggressive repair
	// pass is suppressed.
	defaultRepairGate = 85.0
)

// Candidate is a code found in recognizer output. Confidence is carried over
// from the source line when available, otherwise 0.
type Candidate struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Extractor pulls fixed-format codes (alphabetic prefix + fixed-length digit
// run) out of noisy recognizer output.
type Extractor struct {
	prefixes      []string
	length        int
	re            *regexp.Regexp
	lineTolerance float64
	window        int
	repairGate    float64
}

// NewExtractor builds an extractor for the given allowed prefixes and total
// code length.
func NewExtractor(prefixes []string, length int) (*Extractor, error) {
	if len(prefixes) == 0 {
		return nil, fmt.Errorf("at least one prefix is required")
	}

	alts := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p == "" || len(p) >= length {
			return nil, fmt.Errorf("invalid prefix %q for code length %d", p, length)
		}
		// Digit run may be longer than the target; OCR frequently appends a
		// trailing garbage character. Over-length matches are truncated.
		alts = append(alts, fmt.Sprintf("%s[0-9]{%d,}", regexp.QuoteMeta(p), length-len(p)))
	}

	re, err := regexp.Compile("(?:" + strings.Join(alts, "|") + ")")
	if err != nil {
		return nil, fmt.Errorf("compile code pattern: %w", err)
	}

	return &Extractor{
		prefixes:      prefixes,
		length:        length,
		re:            re,
		lineTolerance: defaultLineTolerance,
		window:        defaultWindow,
		repairGate:    defaultRepairGate,
	}, nil
}

// Extract runs the fallback strategies over one recognized page and returns
// the unique candidates in discovery order. Strategy priority: structured
// lines, proximity-grouped words, then naive newline splitting of the plain
// text. A secondary rolling-window pass over consecutive word tokens catches
// codes split across recognizer word boundaries.
func (e *Extractor) Extract(page recognize.Result) []Candidate {
	var found []Candidate

	switch {
	case len(page.Lines) > 0:
		for _, line := range page.Lines {
			found = append(found, e.scan(line.Text, line.Confidence)...)
		}
	case len(page.Words) > 0:
		for _, group := range groupWordsByRow(page.Words, e.lineTolerance) {
			found = append(found, e.scan(group.text, group.confidence)...)
		}
	default:
		for _, line := range strings.Split(page.PlainText, "\n") {
			found = append(found, e.scan(line, 0)...)
		}
	}

	// Codes split across word boundaries ("2M0000 00000001") escape the
	// line strategies when the recognizer segments aggressively.
	found = append(found, e.scanWordWindows(page.Words)...)

	return dedupe(found)
}

func (e *Extractor) scan(text string, confidence float64) []Candidate {
	normalized := Normalize(text)
	if normalized == "" {
		return nil
	}
	repaired := RepairWithConfidence(normalized, confidence, e.repairGate)

	var out []Candidate
	for _, m := range e.re.FindAllString(repaired, -1) {
		if len(m) > e.length {
			m = m[:e.length]
		}
		out = append(out, Candidate{Text: m, Confidence: confidence})
	}
	return out
}

func (e *Extractor) scanWordWindows(words []recognize.Word) []Candidate {
	var out []Candidate
	for i := range words {
		var sb strings.Builder
		for j := i; j < len(words) && j < i+e.window; j++ {
			sb.WriteString(words[j].Text)
			if j == i {
				continue
			}
			out = append(out, e.scan(sb.String(), 0)...)
		}
	}
	return out
}

type wordRow struct {
	text       string
	confidence float64
	y          float64
}

// groupWordsByRow clusters words whose vertical positions are within
// tolerance of each other, then orders each cluster left to right.
func groupWordsByRow(words []recognize.Word, tolerance float64) []wordRow {
	sorted := make([]recognize.Word, len(words))
	copy(sorted, words)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Bounds.Y != sorted[j].Bounds.Y {
			return sorted[i].Bounds.Y < sorted[j].Bounds.Y
		}
		return sorted[i].Bounds.X < sorted[j].Bounds.X
	})

	var rows []wordRow
	var current []recognize.Word
	flush := func() {
		if len(current) == 0 {
			return
		}
		sort.SliceStable(current, func(i, j int) bool {
			return current[i].Bounds.X < current[j].Bounds.X
		})
		var parts []string
		var confSum float64
		for _, w := range current {
			parts = append(parts, w.Text)
			confSum += w.Confidence
		}
		rows = append(rows, wordRow{
			text:       strings.Join(parts, " "),
			confidence: confSum / float64(len(current)),
			y:          current[0].Bounds.Y,
		})
		current = nil
	}

	for _, w := range sorted {
		if len(current) > 0 && w.Bounds.Y-current[len(current)-1].Bounds.Y > tolerance {
			flush()
		}
		current = append(current, w)
	}
	flush()
	return rows
}

func dedupe(cands []Candidate) []Candidate {
	seen := make(map[string]bool, len(cands))
	out := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		key := Normalize(c.Text)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		c.Text = key
		out = append(out, c)
	}
	return out
}
