package model

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// dateKeyLayout is the layout of the calendar-day component of cache keys.
const dateKeyLayout = "20060102"

// Listing is a property currently for sale, as returned by an agent's active
// listings. Listings are values: once parsed they are never modified, only
// filed into area indexes and persisted in batches.
type Listing struct {
	// Address is the display address ("line1 line2").
	Address string `json:"formattedAddress"`

	// Area is the postal code the property is located in.
	// An agent's listings may span several areas.
	Area string `json:"zip"`

	Beds  float64 `json:"beds"`
	Baths float64 `json:"baths"`
	Price float64 `json:"price"`

	// PropertyID is the upstream property identifier (zpid).
	PropertyID string `json:"zpid"`

	// HomeType is the upstream property-type tag (e.g. SINGLE_FAMILY, CONDO).
	HomeType string `json:"homeType"`

	// ListingURL links to the upstream detail page.
	ListingURL string `json:"listingURL"`
}

// Key returns the identity key of the listing: its normalized address.
func (l Listing) Key() string {
	return NormalizeAddress(l.Address)
}

// foldString case-folds s. A fresh Caser is created per call because
// cases.Caser keeps internal state between Transform invocations.
func foldString(s string) string {
	return cases.Fold().String(s)
}

// NormalizeAddress returns the identity form of an address: case-folded,
// trimmed, with runs of whitespace collapsed to a single space.
// "12 Main St  Apt 4" and "12 MAIN ST apt 4" normalize to the same key.
func NormalizeAddress(address string) string {
	return strings.Join(strings.Fields(foldString(address)), " ")
}

// NormalizeHomeType returns the comparison form of a property-type tag.
func NormalizeHomeType(homeType string) string {
	return foldString(strings.TrimSpace(homeType))
}

// SanitizeAddress makes an address usable as a file name component by
// replacing path separators.
func SanitizeAddress(address string) string {
	return strings.NewReplacer("/", "_", "\\", "_").Replace(address)
}

// DateKey returns the calendar-day key used to date cache entries.
func DateKey(t time.Time) string {
	return t.Format(dateKeyLayout)
}

// ParseDateKey parses a calendar-day key produced by DateKey.
func ParseDateKey(key string) (time.Time, error) {
	return time.Parse(dateKeyLayout, key)
}

// ExclusionSet is a case-insensitive set of property types to leave out of
// ranking results.
type ExclusionSet map[string]struct{}

// NewExclusionSet builds an ExclusionSet from raw property-type tags.
// Empty tags are ignored.
func NewExclusionSet(homeTypes []string) ExclusionSet {
	set := make(ExclusionSet, len(homeTypes))
	for _, ht := range homeTypes {
		n := NormalizeHomeType(ht)
		if n == "" {
			continue
		}
		set[n] = struct{}{}
	}
	return set
}

// Excludes reports whether the listing's property type is in the set.
func (s ExclusionSet) Excludes(l Listing) bool {
	_, ok := s[NormalizeHomeType(l.HomeType)]
	return ok
}

// Filter returns the listings whose property type is not excluded,
// preserving order.
func (s ExclusionSet) Filter(listings []Listing) []Listing {
	out := make([]Listing, 0, len(listings))
	for _, l := range listings {
		if s.Excludes(l) {
			continue
		}
		out = append(out, l)
	}
	return out
}

// FilterScored is Filter for scored listings.
func (s ExclusionSet) FilterScored(listings []ScoredListing) []ScoredListing {
	if len(s) == 0 {
		return listings
	}
	out := make([]ScoredListing, 0, len(listings))
	for _, l := range listings {
		if s.Excludes(l.Listing) {
			continue
		}
		out = append(out, l)
	}
	return out
}
