/*
Package security groups the gateway's credential handling.

# API Key Authentication

The auth sub-package issues keys, digests them with the server-held salt
and resolves a presented credential to its stored record:

	authn := auth.NewMiddleware(auth.NewAuthenticator(store, salt, collector), "X-Api-Key")
	mux.Handle("GET /v1/tides", authn.Handle(handler))

Plaintext keys exist only in the response that issues them. Stores keep
the HMAC-SHA256 digest and the public prefix.
*/
package security
