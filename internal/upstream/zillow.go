package upstream

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/nao1215/rentscan/internal/model"
)

// RapidAPI Zillow endpoints.
const (
	// ZillowBaseURL is the base URL of the RapidAPI Zillow service.
	ZillowBaseURL = "https://zillow-com1.p.rapidapi.com"

	// ZillowHost is sent as X-RapidAPI-Host.
	ZillowHost = "zillow-com1.p.rapidapi.com"

	// EndpointFindAgent is the agent directory search.
	EndpointFindAgent = "findAgent"

	// EndpointAgentListings returns an agent's active listings.
	EndpointAgentListings = "agentActiveListings"

	// EndpointTaxHistory returns a property's price and tax history.
	EndpointTaxHistory = "priceAndTaxHistory"

	// EndpointRentEstimate returns a rent estimate from comparable rentals.
	EndpointRentEstimate = "rentEstimate"

	// rentSearchRadius is the comparable-rental search radius in miles.
	rentSearchRadius = "0.5"
)

// ZillowOptions returns the client options carrying RapidAPI credentials.
func ZillowOptions(apiKey string) []Option {
	return []Option{
		WithHeader("X-RapidAPI-Key", apiKey),
		WithHeader("X-RapidAPI-Host", ZillowHost),
	}
}

// FindAgentParams builds the query of an agent directory page.
func FindAgentParams(area string, page int) url.Values {
	return url.Values{
		"locationText": {area},
		"page":         {strconv.Itoa(page)},
	}
}

// AgentListingsParams builds the query of an agent's first listings page.
func AgentListingsParams(agentID string) url.Values {
	return url.Values{
		"zuid": {agentID},
		"page": {"1"},
	}
}

// TaxHistoryParams builds the query of a tax history lookup.
func TaxHistoryParams(propertyID string) url.Values {
	return url.Values{"zpid": {propertyID}}
}

// RentEstimateParams builds the query of a rent estimate.
func RentEstimateParams(propertyType, address string) url.Values {
	return url.Values{
		"propertyType": {propertyType},
		"address":      {address},
		"d":            {rentSearchRadius},
	}
}

// AgentPage is one page of the agent directory.
type AgentPage struct {
	Agents          []AgentEntry     `json:"agents"`
	PageInformation *PageInformation `json:"pageInformation"`
}

// AgentEntry is one agent of a directory page.
type AgentEntry struct {
	ZUID ID `json:"zuid"`
}

// PageInformation is the pagination block of a directory page.
type PageInformation struct {
	LastPage Number `json:"lastPage"`
}

// DecodeAgentPage parses an agent directory response.
func DecodeAgentPage(body []byte) (AgentPage, error) {
	var page AgentPage
	if err := decode(body, &page); err != nil {
		return AgentPage{}, err
	}
	return page, nil
}

// AgentIDs returns the non-empty agent ids of the page in order.
func (p AgentPage) AgentIDs() []string {
	ids := make([]string, 0, len(p.Agents))
	for _, a := range p.Agents {
		if a.ZUID == "" {
			continue
		}
		ids = append(ids, a.ZUID.String())
	}
	return ids
}

// LastPage returns the last directory page, if the response reported one.
func (p AgentPage) LastPage() (int, bool) {
	if p.PageInformation == nil || !p.PageInformation.LastPage.Valid {
		return 0, false
	}
	return int(p.PageInformation.LastPage.Value), true
}

// listingPayload is one entry of an agent's active listings.
type listingPayload struct {
	Address struct {
		Line1      string `json:"line1"`
		Line2      string `json:"line2"`
		PostalCode ID     `json:"postalCode"`
	} `json:"address"`
	Bedrooms   Number `json:"bedrooms"`
	Bathrooms  Number `json:"bathrooms"`
	Price      Number `json:"price"`
	ZPID       ID     `json:"zpid"`
	HomeType   string `json:"home_type"`
	ListingURL string `json:"listing_url"`
}

// DecodeListings parses an agent listings response into listings.
// Entries without an address line are skipped.
func DecodeListings(body []byte) ([]model.Listing, error) {
	var resp struct {
		Listings []listingPayload `json:"listings"`
	}
	if err := decode(body, &resp); err != nil {
		return nil, err
	}

	listings := make([]model.Listing, 0, len(resp.Listings))
	for _, p := range resp.Listings {
		address := strings.TrimSpace(p.Address.Line1 + " " + p.Address.Line2)
		if address == "" {
			continue
		}
		listings = append(listings, model.Listing{
			Address:    address,
			Area:       p.Address.PostalCode.String(),
			Beds:       p.Bedrooms.OrZero(),
			Baths:      p.Bathrooms.OrZero(),
			Price:      p.Price.OrZero(),
			PropertyID: p.ZPID.String(),
			HomeType:   p.HomeType,
			ListingURL: p.ListingURL,
		})
	}
	return listings, nil
}

// DecodeTaxPaid returns the first non-null paid-tax value of a tax history
// response. The boolean is false when no entry carries one.
func DecodeTaxPaid(body []byte) (float64, bool, error) {
	var resp struct {
		TaxHistory []struct {
			TaxPaid Number `json:"taxPaid"`
		} `json:"taxHistory"`
	}
	if err := decode(body, &resp); err != nil {
		return 0, false, err
	}
	for _, entry := range resp.TaxHistory {
		if entry.TaxPaid.Valid {
			return entry.TaxPaid.Value, true, nil
		}
	}
	return 0, false, nil
}

// DecodeRentEstimate parses a rent estimate response. Null numeric fields
// become zero; the estimate is known only when a median was reported.
func DecodeRentEstimate(body []byte) (model.RentalEstimate, error) {
	var resp struct {
		Median            Number          `json:"median"`
		LowRent           Number          `json:"lowRent"`
		HighRent          Number          `json:"highRent"`
		Percentile25      Number          `json:"percentile_25"`
		Percentile75      Number          `json:"percentile_75"`
		ComparableRentals json.RawMessage `json:"comparableRentals"`
	}
	if err := decode(body, &resp); err != nil {
		return model.RentalEstimate{}, err
	}

	comparables := resp.ComparableRentals
	if string(comparables) == "null" {
		comparables = nil
	}
	return model.RentalEstimate{
		Median:       resp.Median.OrZero(),
		Low:          resp.LowRent.OrZero(),
		High:         resp.HighRent.OrZero(),
		Percentile25: resp.Percentile25.OrZero(),
		Percentile75: resp.Percentile75.OrZero(),
		Comparables:  comparables,
		Known:        resp.Median.Valid,
	}, nil
}
