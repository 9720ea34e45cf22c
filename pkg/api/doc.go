// Package api holds the HTTP surface shared by every handler package:
// error mapping (HandleError), the error-returning HandlerFunc adapter, and
// the middleware and admin handlers in its sub-packages.
//
// # Error Flow
//
// Handlers return errors instead of writing failure responses themselves:
//
//	mux.Handle("GET /v1/tides", api.Wrap(func(w http.ResponseWriter, r *http.Request) error {
//	    q, err := parseTidesQuery(r)
//	    if err != nil {
//	        return err // *types.APIError, written as 400
//	    }
//	    ...
//	}))
//
// Unknown errors are logged with the request id and become a generic 500.
package api
