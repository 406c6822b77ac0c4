// Package upstream issues calls to the external data services rentscan
// depends on: the RapidAPI Zillow endpoints (agent directory, agent listings,
// tax history, rent estimate), the zipcodeapi radius search and the Google
// geocoding API.
//
// Every call goes through Call, which enforces a minimum spacing between
// requests to the same host and retries non-success responses with
// exponential backoff. The spacing state lives in a Limiter owned by the
// Client, so it is shared by every call made through that Client for as long
// as the Client lives. Construct one Client per upstream host and keep it
// for the lifetime of the process.
//
// The package also holds the response shapes of each endpoint together with
// tolerant decoders, because the upstream payloads mix numbers, strings and
// nulls for the same fields.
package upstream
