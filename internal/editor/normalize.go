package editor

import (
	"strconv"
	"strings"
	"unicode"
)

// NormalizeKey reduces an answer or edge label to its canonical port key:
// trimmed, case-folded, with every run of whitespace/punctuation collapsed
// to a single underscore. Returns "" when nothing survives, which callers
// treat as "drop the entry" (answers) or "use the fallback port" (labels).
func NormalizeKey(label string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(strings.TrimSpace(label)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}

// dedupeKey returns key, suffixed with _2, _3... until it is absent from
// taken, and records the result. Port keys derived from the same normalized
// label must stay unique per node.
func dedupeKey(key string, taken map[string]bool) string {
	candidate := key
	for n := 2; taken[candidate]; n++ {
		candidate = key + "_" + strconv.Itoa(n)
	}
	taken[candidate] = true
	return candidate
}
