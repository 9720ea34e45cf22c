// Package types defines the wire-level types shared by every HTTP surface of
// the gateway: the error envelope and the dataset response envelope.
//
// Every error leaves the server in the same shape:
//
//	{"error": {"code": "RATE_LIMIT_EXCEEDED",
//	           "message": "Rate limit exceeded for free plan",
//	           "hint": "Limit: 30 requests per 60s. Remaining: 0"}}
//
// Handlers construct an *APIError with one of the New* helpers and pass it
// to WriteError. Internal failures always use NewInternalError so no detail
// of the failure reaches the client.
package types
