// Package strings normalizes identifier lists typed by operators.
package strings

import (
	"strings"
)

// Identifiers trims each value and drops blanks and repeats, keeping the
// first occurrence. Registrar ids and tokens are case sensitive.
//
//	Identifiers([]string{" TheRegistrar", "TheRegistrar", ""}) // ["TheRegistrar"]
func Identifiers(values []string) []string {
	return normalize(values, false)
}

// Hostnames is Identifiers with lowercasing, for TLDs and domain names.
func Hostnames(values []string) []string {
	return normalize(values, true)
}

func normalize(values []string, fold bool) []string {
	if values == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if fold {
			v = strings.ToLower(v)
		}
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
