package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"unicode"
)

// hashText hashes trimmed text. Used for document content, chunk content,
// and normalized questions.
func hashText(s string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(s)))
	return hex.EncodeToString(sum[:])
}

// hashMetadata hashes a canonical serialization of chunk metadata, or the
// empty string when there is none. encoding/json sorts map keys, so the
// serialization is stable regardless of insertion order.
func hashMetadata(meta map[string]interface{}) string {
	if len(meta) == 0 {
		return hashText("")
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		// Unmarshalable metadata (func values etc.) cannot come out of
		// storage; treat it as absent rather than failing the pass.
		return hashText("")
	}
	return hashText(string(raw))
}

// quoteReplacer unifies curly quotes with their straight forms before
// normalization strips punctuation.
var quoteReplacer = strings.NewReplacer(
	"‘", "'", "’", "'",
	"“", `"`, "”", `"`,
)

// NormalizeQuestion reduces a question to its comparable core: lowercase,
// straight quotes, alphanumerics and spaces only, single spaces. "What's
// your remote policy?" and "what is your remote policy" normalize apart,
// but punctuation and casing variants of the same wording collide.
func NormalizeQuestion(q string) string {
	q = strings.ToLower(quoteReplacer.Replace(q))
	var b strings.Builder
	for _, r := range q {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// mergeAnswers combines a duplicate FAQ's answer into the canonical one.
//
// An empty answer loses to a non-empty one. If either normalized answer
// contains the other, the longer answer wins outright. Otherwise the
// canonical answer keeps its text and gains every line of the incoming
// answer it does not already contain verbatim, separated by a blank line.
func mergeAnswers(canonical, incoming string) string {
	if strings.TrimSpace(canonical) == "" {
		return incoming
	}
	if strings.TrimSpace(incoming) == "" {
		return canonical
	}

	normCanonical := NormalizeQuestion(canonical)
	normIncoming := NormalizeQuestion(incoming)
	if strings.Contains(normCanonical, normIncoming) || strings.Contains(normIncoming, normCanonical) {
		if len(incoming) > len(canonical) {
			return incoming
		}
		return canonical
	}

	existing := make(map[string]struct{})
	for _, line := range strings.Split(canonical, "\n") {
		existing[line] = struct{}{}
	}
	merged := canonical
	for _, line := range strings.Split(incoming, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if _, ok := existing[line]; ok {
			continue
		}
		merged += "\n\n" + line
		existing[line] = struct{}{}
	}
	return merged
}
