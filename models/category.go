package models

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Categories is the closed set of listing tags.
var Categories = []string{
	// livestock
	"COW", "BUFFALO", "BULL", "CALF", "GOAT", "SHEEP", "HORSE", "CAMEL", "PIG", "POULTRY", "DOG", "FISH",
	// farm equipment
	"TRACTOR", "HARVESTER", "ROTAVATOR", "PLOUGH", "CULTIVATOR", "SEED_DRILL", "THRESHER", "SPRAYER",
	"WATER_PUMP", "TROLLEY", "IRRIGATION", "FARM_TOOLS",
	// vehicles
	"CAR", "BIKE", "TRUCK", "TEMPO",
	// produce and inputs
	"GRAINS", "VEGETABLES", "FRUITS", "SEEDS", "FERTILIZER", "FODDER", "DAIRY_PRODUCTS",
	"LAND", "OTHER",
}

var categorySet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(Categories))
	for _, c := range Categories {
		m[c] = struct{}{}
	}
	return m
}()

// NormalizeCategory trims and upper-cases raw. Whitespace-only input yields "".
func NormalizeCategory(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	// Casers carry state; each call gets its own.
	return cases.Upper(language.Und).String(raw)
}

// IsCategory reports whether c, already normalized, is in the enumeration.
func IsCategory(c string) bool {
	_, ok := categorySet[c]
	return ok
}
