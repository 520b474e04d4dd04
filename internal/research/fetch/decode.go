package fetch

import (
	"unicode/utf8"

	"github.com/gogs/chardet"
	"golang.org/x/net/html/charset"
)

// minConfidence is the chardet score below which the guess is ignored.
const minConfidence = 40

// decodeBody converts raw page bytes to UTF-8. Valid UTF-8 is kept as is,
// otherwise chardet guesses the charset. The declared Content-Type only helps
// when detection is unsure.
func decodeBody(raw []byte, contentType string) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	if utf8.Valid(raw) {
		return string(raw), nil
	}

	if res, err := chardet.NewHtmlDetector().DetectBest(raw); err == nil && res.Confidence >= minConfidence {
		if enc, _ := charset.Lookup(res.Charset); enc != nil {
			decoded, err := enc.NewDecoder().Bytes(raw)
			if err == nil && utf8.Valid(decoded) {
				return string(decoded), nil
			}
		}
	}

	enc, _, _ := charset.DetermineEncoding(raw, contentType)
	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
