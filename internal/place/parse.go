package place

import (
	"strings"

	"github.com/cityboard/listings/internal/models"
)

// ParseAddress splits a formatted address into street/city/state/zip
// purely by comma position. This mirrors what the listing forms do
// with an autocomplete result and is a known-fragile heuristic: it
// assumes "street, city, state, zip" ordering and breaks on addresses
// with extra or missing segments.
func ParseAddress(formatted string) models.Place {
	p := models.Place{Address: formatted}

	parts := strings.Split(formatted, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	if len(parts) > 0 {
		p.Street = parts[0]
	}
	if len(parts) > 1 {
		p.City = parts[1]
	}
	if len(parts) > 2 {
		p.State = parts[2]
	}
	if len(parts) > 3 {
		p.PostalCode = parts[3]
	}

	return p
}
