package storage

import (
	"path"
	"strings"
)

// SanitizeFileName reduces an arbitrary client-supplied name to a safe
// object key component: the basename only, lowercased, with anything
// outside [a-z0-9._-] replaced by a dash and runs collapsed. The result
// is never empty.
func SanitizeFileName(name string) string {
	// Normalize separators so path.Base strips Windows paths too.
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)

	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_':
			b.WriteRune(r)
			lastDash = false
		case r == '-':
			if !lastDash {
				b.WriteRune('-')
			}
			lastDash = true
		default:
			if !lastDash {
				b.WriteRune('-')
			}
			lastDash = true
		}
	}

	out := strings.Trim(b.String(), "-.")
	if out == "" {
		return "file"
	}
	return out
}
