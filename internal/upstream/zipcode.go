package upstream

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// ZipcodeBaseURL is the base URL of the zipcodeapi REST service. The API
// key is a path segment, see ZipcodeClientURL.
const ZipcodeBaseURL = "https://www.zipcodeapi.com/rest"

// ZipcodeClientURL returns the client base URL for an API key, so that
// endpoint paths passed to Call never contain the key.
func ZipcodeClientURL(baseURL, apiKey string) string {
	return strings.TrimRight(baseURL, "/") + "/" + url.PathEscape(apiKey)
}

// RadiusEndpoint returns the radius search path for an area and a distance in miles.
func RadiusEndpoint(area string, distanceMiles float64) string {
	return fmt.Sprintf("radius.json/%s/%s/mile",
		url.PathEscape(area),
		strconv.FormatFloat(distanceMiles, 'f', -1, 64),
	)
}

// DecodeRadius parses a radius search response and returns the area codes
// ordered by ascending distance. Entries with equal distance keep the
// response order.
func DecodeRadius(body []byte) ([]string, error) {
	var resp struct {
		ZipCodes []struct {
			ZipCode  ID     `json:"zip_code"`
			Distance Number `json:"distance"`
		} `json:"zip_codes"`
	}
	if err := decode(body, &resp); err != nil {
		return nil, err
	}

	entries := resp.ZipCodes
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Distance.OrZero() < entries[j].Distance.OrZero()
	})

	areas := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.ZipCode == "" {
			continue
		}
		areas = append(areas, e.ZipCode.String())
	}
	return areas, nil
}
