package upstream

import (
	"fmt"
	"net/url"
)

const (
	// GeocodeBaseURL is the base URL of the Google Maps web services.
	GeocodeBaseURL = "https://maps.googleapis.com/maps/api"

	// EndpointGeocode is the geocoding endpoint.
	EndpointGeocode = "geocode/json"
)

// LatLng is a geographic coordinate.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// GeocodeParams builds the query of a geocoding request.
func GeocodeParams(address, apiKey string) url.Values {
	return url.Values{
		"address": {address},
		"key":     {apiKey},
	}
}

// DecodeGeocode returns the location of the first geocoding result.
func DecodeGeocode(body []byte) (LatLng, error) {
	var resp struct {
		Status  string `json:"status"`
		Results []struct {
			Geometry struct {
				Location LatLng `json:"location"`
			} `json:"geometry"`
		} `json:"results"`
	}
	if err := decode(body, &resp); err != nil {
		return LatLng{}, err
	}
	if len(resp.Results) == 0 {
		return LatLng{}, fmt.Errorf("%w: no geocoding results (status %q)", ErrUnexpectedPayload, resp.Status)
	}
	return resp.Results[0].Geometry.Location, nil
}
