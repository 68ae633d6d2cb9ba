package lawtree

import "strings"

// splitOrdinal separates the "제N항: " marker from a paragraph.
func splitOrdinal(p string) (string, string) {
	if !strings.HasPrefix(p, "제") {
		return "", p
	}
	idx := strings.Index(p, "항: ")
	if idx < 0 {
		return "", p
	}
	return p[:idx+len("항")], p[idx+len("항: "):]
}

func truncateRunes(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
