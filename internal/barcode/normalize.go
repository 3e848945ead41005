package barcode

import "strings"

// zeroWidthReplacer strips zero-width characters and byte-order marks that
// camera OCR and some scanner firmwares inject into the payload.
var zeroWidthReplacer = strings.NewReplacer(
	"\u200B", "", // zero-width space
	"\u200C", "", // zero-width non-joiner
	"\u200D", "", // zero-width joiner
	"\uFEFF", "", // BOM
)

// Normalize canonicalizes raw scanned or recognized text into a comparable
// code: trims, strips zero-width characters, removes internal whitespace and
// hyphens, and uppercases. It performs no prefix or length validation; that
// is the extractor's job. Idempotent and pure.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	s = zeroWidthReplacer.Replace(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r', '-':
			continue
		}
		b.WriteRune(r)
	}
	return strings.ToUpper(b.String())
}
