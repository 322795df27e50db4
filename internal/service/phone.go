package service

import "strings"

// NormalizePhone turns Kenyan mobile numbers in any common form (+2547..., 07..., 7...)
// into 2547XXXXXXXX. It returns "" for anything else.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	p := b.String()
	switch {
	case len(p) == 12 && strings.HasPrefix(p, "254"):
	case len(p) == 10 && strings.HasPrefix(p, "0"):
		p = "254" + p[1:]
	case len(p) == 9 && (p[0] == '7' || p[0] == '1'):
		p = "254" + p
	default:
		return ""
	}
	if p[3] != '7' && p[3] != '1' {
		return ""
	}
	return p
}
