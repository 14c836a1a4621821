package ticket

import "strings"

// ModifierKind tells the cook what a modifier does to the item.
type ModifierKind int

const (
	Addition ModifierKind = iota
	Removal
	Substitution
)

func (k ModifierKind) String() string {
	switch k {
	case Removal:
		return "removal"
	case Substitution:
		return "substitution"
	default:
		return "addition"
	}
}

// Keywords are matched on word boundaries of the lowercased modifier text.
// Substitution is checked first: "sin pan, cambiar por lechuga" swaps.
var (
	substitutionKeywords = []string{"instead of", "en vez de", "en lugar de", "cambiar", "cambio", "substitute", "sub", "swap", "replace"}
	removalKeywords      = []string{"sin", "no", "without", "remove", "quitar", "hold"}
)

// ModifierKindOf classifies a modifier by keyword. Anything that is not a
// substitution or removal is an addition.
func ModifierKindOf(text string) ModifierKind {
	normalized := " " + strings.Join(strings.FieldsFunc(strings.ToLower(text), isSeparator), " ") + " "
	if containsAny(normalized, substitutionKeywords) {
		return Substitution
	}
	if containsAny(normalized, removalKeywords) {
		return Removal
	}
	return Addition
}

func containsAny(normalized string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(normalized, " "+k+" ") {
			return true
		}
	}
	return false
}

func isSeparator(r rune) bool {
	switch r {
	case ' ', '\t', ',', '.', ';', ':', '(', ')', '-', '/', '!':
		return true
	default:
		return false
	}
}
