package excel

import (
	"regexp"
	"strings"
)

// TyreSize is the structured decomposition of a tyre size string.
// "175/70R13" → width=175, aspect=70, rim=13. Speed rating and the LT/C
// suffix are parsed but ignored for matching.
type TyreSize struct {
	Width  string
	Aspect string
	Speed  string
	Rim    string
	Suffix string
}

// MatchKey is (width, aspect, rim); speed and suffix never disqualify.
type MatchKey struct {
	Width  string
	Aspect string
	Rim    string
}

func (s TyreSize) Key() MatchKey {
	return MatchKey{Width: s.Width, Aspect: s.Aspect, Rim: s.Rim}
}

// Compatible reports whether two keys refer to the same size. Width and rim
// must match exactly; aspect matches only when both sides carry one — a size
// string lacking an aspect group does not disqualify a match against a size
// that has one.
func (k MatchKey) Compatible(other MatchKey) bool {
	if k.Width != other.Width || k.Rim != other.Rim {
		return false
	}
	if k.Aspect == "" || other.Aspect == "" {
		return true
	}
	return k.Aspect == other.Aspect
}

var (
	speedRe    = regexp.MustCompile(`(\d)([ZWYVH])([\d/R])`)
	nonDigitRe = regexp.MustCompile(`[^0-9]`)
	suffixCRe  = regexp.MustCompile(`\dC$`)
)

// ParseTyreSize decomposes a human-entered size string into digit groups.
// Handles variations like "175/70/R13", "17570R13", "175 70 R13",
// "155/R12C", "235/45Z/R18", "265/65R17LT". Returns false when the string
// does not contain a recognizable 7- or 5-digit size.
func ParseTyreSize(raw string) (TyreSize, bool) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return TyreSize{}, false
	}

	var suffix string
	if strings.HasSuffix(s, "LT") {
		suffix = "LT"
		s = s[:len(s)-2]
	} else if suffixCRe.MatchString(s) {
		suffix = "C"
		s = s[:len(s)-1]
	}

	var speed string
	if m := speedRe.FindStringSubmatchIndex(s); m != nil {
		speed = s[m[4]:m[5]]
		s = s[:m[4]] + s[m[5]:]
	}

	digits := nonDigitRe.ReplaceAllString(s, "")
	switch len(digits) {
	case 7:
		// WIDTH(3) + ASPECT(2) + RIM(2), e.g. 1757013
		return TyreSize{Width: digits[:3], Aspect: digits[3:5], Speed: speed, Rim: digits[5:7], Suffix: suffix}, true
	case 5:
		// WIDTH(3) + RIM(2), no aspect, e.g. 15512
		return TyreSize{Width: digits[:3], Aspect: "", Speed: speed, Rim: digits[3:5], Suffix: suffix}, true
	}
	return TyreSize{}, false
}

var spaceRe = regexp.MustCompile(`\s+`)

// NormalizeString case-folds, trims, and collapses whitespace.
func NormalizeString(v string) string {
	return spaceRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(v)), " ")
}

// NormalizeSize flattens a size string for substring comparison: lowercase,
// no spaces, a "/" inserted before "r" when it directly follows a digit.
func NormalizeSize(v string) string {
	s := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(v)), " ", "")
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == 'r' && i > 0 && s[i-1] >= '0' && s[i-1] <= '9' {
			b.WriteByte('/')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
