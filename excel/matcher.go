package excel

import "strings"

// TyreRef is the slice of the tyre master a matcher needs.
type TyreRef struct {
	ID       int
	Size     string
	Type     string
	Brand    string
	Pattern  string
	Category string
}

// TyreMatcher matches externally-sourced sale/loss rows against the tyre
// master. First structurally-matching SKU wins; no best-of-N scoring.
type TyreMatcher struct {
	tyres  []TyreRef
	bySize map[MatchKey][]TyreRef
}

func NewTyreMatcher(tyres []TyreRef) *TyreMatcher {
	m := &TyreMatcher{tyres: tyres, bySize: make(map[MatchKey][]TyreRef)}
	for _, t := range tyres {
		parsed, ok := ParseTyreSize(t.Size)
		if !ok {
			continue
		}
		key := parsed.Key()
		m.bySize[key] = append(m.bySize[key], t)
	}
	return m
}

// Match resolves a candidate (size, type, brand) to a tyre id.
//
// Structured comparison first: the candidate size is decomposed and compared
// by (width, aspect, rim) with absent aspect treated as compatible. When
// several SKUs share the size, the category derived from the candidate's
// type/brand disambiguates; otherwise the first candidate wins. When the
// size cannot be decomposed, falls back to substring containment over the
// concatenated size+brand+type+pattern of each SKU.
func (m *TyreMatcher) Match(size, typeStr, brand string) (int, bool) {
	parsed, ok := ParseTyreSize(size)
	if !ok {
		return m.matchBySubstring(size)
	}

	key := parsed.Key()
	candidates := m.bySize[key]
	if len(candidates) == 0 {
		// Partial sizes (no aspect) index under a different key; scan for
		// compatibility.
		for k, refs := range m.bySize {
			if key.Compatible(k) {
				candidates = append(candidates, refs...)
			}
		}
	}
	if len(candidates) == 0 {
		return 0, false
	}
	if len(candidates) == 1 {
		return candidates[0].ID, true
	}

	if typeStr != "" || brand != "" {
		target := ClassifyTyre(typeStr, brand)
		for _, t := range candidates {
			if t.Category == target {
				return t.ID, true
			}
		}
	}
	return candidates[0].ID, true
}

func (m *TyreMatcher) matchBySubstring(size string) (int, bool) {
	needle := NormalizeSize(size)
	if needle == "" {
		return 0, false
	}
	for _, t := range m.tyres {
		haystack := NormalizeSize(t.Size) + "|" +
			NormalizeString(t.Brand) + "|" +
			NormalizeString(t.Type) + "|" +
			NormalizeString(t.Pattern)
		if strings.Contains(haystack, needle) {
			return t.ID, true
		}
	}
	return 0, false
}

// Tyre categories as stored on the master record.
const (
	CategoryBrandedNew   = "branded_new"
	CategoryBrandlessNew = "brandless_new"
	CategorySecondHand   = "second_hand"
)

// ClassifyTyre derives the master category from free-text type/brand fields.
func ClassifyTyre(typeStr, brand string) string {
	t := NormalizeString(typeStr)
	if strings.Contains(t, "second") {
		return CategorySecondHand
	}
	if strings.Contains(t, "brandless") {
		return CategoryBrandlessNew
	}
	if strings.TrimSpace(brand) != "" {
		return CategoryBrandedNew
	}
	return CategoryBrandlessNew
}

// PhoneRef is the slice of the phone master a matcher needs.
type PhoneRef struct {
	ID     int
	Brand  string
	Model  string
	Config string
}

// PhoneMatcher matches stock rows on the exact normalized
// (brand, model, config) triple. An empty config is a valid, distinct value,
// not a wildcard: the brand+model fallback applies only when the candidate
// itself carries no config.
type PhoneMatcher struct {
	phones []PhoneRef
}

func NewPhoneMatcher(phones []PhoneRef) *PhoneMatcher {
	return &PhoneMatcher{phones: phones}
}

func (m *PhoneMatcher) Match(brand, model, configStr string) (int, bool) {
	nb := NormalizeString(brand)
	nm := NormalizeString(model)
	nc := NormalizeString(configStr)

	for _, p := range m.phones {
		if NormalizeString(p.Brand) == nb &&
			NormalizeString(p.Model) == nm &&
			NormalizeString(p.Config) == nc {
			return p.ID, true
		}
	}

	if nc == "" {
		for _, p := range m.phones {
			if NormalizeString(p.Brand) == nb && NormalizeString(p.Model) == nm {
				return p.ID, true
			}
		}
	}
	return 0, false
}
