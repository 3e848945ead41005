package barcode

import (
	"regexp"
	"strings"
)

// Contextual misread rules. Each fixes one recognizer confusion, but only
// when the letter is embedded in a digit run, so legitimate alphabetic
// prefixes survive.
var repairRules = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`([0-9])B([0-9])`), "${1}8${2}"},
	{regexp.MustCompile(`B([0-9])`), "8${1}"},
	{regexp.MustCompile(`([0-9])B`), "${1}8"},
	{regexp.MustCompile(`([0-9])S([0-9])`), "${1}5${2}"},
	{regexp.MustCompile(`S([0-9]{2,})`), "5${1}"},
	{regexp.MustCompile(`([0-9])O([0-9])`), "${1}0${2}"},
	{regexp.MustCompile(`([0-9])O`), "${1}0"},
}

// codeShape gates the aggressive pass: the token already looks like a pure
// alphanumeric code of minimum length.
var codeShape = regexp.MustCompile(`^[A-Z0-9]{6,}$`)

// Repair applies the ordered digit-substitution sequence that corrects common
// recognizer confusions (B/8, S/5, O/0) in a raw OCR line. A final aggressive
// pass replaces every remaining B with 8 when the whole token already matches
// the code shape. Best effort: false positives are accepted.
func Repair(line string) string {
	return repair(line, true)
}

// RepairWithConfidence is Repair with the aggressive pass additionally gated
// on recognizer confidence: tokens the engine was sure about (confidence at
// or above threshold, 0-100 scale) keep their letters instead of being
// blanket-rewritten.
func RepairWithConfidence(line string, confidence, threshold float64) string {
	return repair(line, confidence < threshold)
}

func repair(line string, allowAggressive bool) string {
	out := line
	for _, rule := range repairRules {
		// Rules can expose new digit adjacencies; run each until stable.
		for {
			next := rule.re.ReplaceAllString(out, rule.repl)
			if next == out {
				break
			}
			out = next
		}
	}

	if allowAggressive && codeShape.MatchString(out) {
		out = strings.ReplaceAll(out, "B", "8")
	}
	return out
}
