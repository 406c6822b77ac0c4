// Package log provides secure logging built on top of the standard slog
// package.
//
// The SecureHandler masks upstream credentials before records reach the
// underlying handler:
//   - attributes whose key names a credential (x-rapidapi-key, api_key, token, ...)
//   - values that look like a credential (Google API keys, bearer tokens)
//   - keys embedded in longer values, such as the key segment of a
//     zipcodeapi URL or a key= query parameter inside an error message
//
// Even in verbose mode the keys stay masked, so logs can be shared.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Debug("upstream call",
//	    "x-rapidapi-key", apiKey, // logged as ***REDACTED***
//	    "url", "https://www.zipcodeapi.com/rest/abc123/radius.json/90210/5/mile",
//	)
//	slog.SetDefault(logger)
package log
