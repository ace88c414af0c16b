package media

import (
	"encoding/json"
	"strings"

	"farmsetu/models"
)

// addressSource yields a candidate value for one address field.
type addressSource func(field string) string

var addressAliases = map[string][]string{
	"village":  {"village", "villageName"},
	"taluko":   {"taluko"},
	"district": {"district"},
	"state":    {"state"},
}

// ResolveAddress picks each address field independently from, in order: the
// top-level request field, the "address" object, the user's stored address.
func ResolveAddress(fields map[string]any, stored models.UserAddress) models.ListingAddress {
	sources := []addressSource{
		mapSource(fields),
		mapSource(addressObject(fields["address"])),
		storedSource(stored),
	}
	pick := func(field string) string {
		for _, src := range sources {
			if v := strings.TrimSpace(src(field)); v != "" {
				return v
			}
		}
		return ""
	}
	return models.ListingAddress{
		Village:  pick("village"),
		Taluko:   pick("taluko"),
		District: pick("district"),
		State:    pick("state"),
	}
}

func mapSource(m map[string]any) addressSource {
	return func(field string) string {
		for _, key := range addressAliases[field] {
			if v := strings.TrimSpace(StringValue(m[key])); v != "" {
				return v
			}
		}
		return ""
	}
}

func storedSource(a models.UserAddress) addressSource {
	return func(field string) string {
		switch field {
		case "village":
			return a.VillageName
		case "taluko":
			return a.Taluko
		case "district":
			return a.District
		case "state":
			return a.State
		}
		return ""
	}
}

// addressObject accepts an already structured object or a JSON string.
// Anything unparseable is treated as absent.
func addressObject(v any) map[string]any {
	switch val := v.(type) {
	case map[string]any:
		return val
	case map[string]string:
		out := make(map[string]any, len(val))
		for k, s := range val {
			out[k] = s
		}
		return out
	case string:
		var decoded map[string]any
		if err := json.Unmarshal([]byte(val), &decoded); err != nil {
			return nil
		}
		return decoded
	}
	return nil
}
