/*
Package auth authenticates API keys for the BlueTrace gateway.

A credential has the form "<prefix>.<secret>", for example

	bt_sk_Ab3-x_9Q.kP0yq6m0J3tQ2bCw7vG8s1nLr5fXoZ4eH9uDiYaWcTk

The prefix is public and appears in logs. The whole credential is digested
with HMAC-SHA256 under the server salt (security.api_key_salt) and only the
digest is stored.

# Issuing keys

	gen, err := auth.GenerateKey(cfg.Security.APIKeySalt)
	if err != nil {
	    return err
	}
	key := &keystore.APIKey{Name: "ingest", KeyHash: gen.Hash, Prefix: gen.Prefix, ...}
	err = store.Create(ctx, key)
	fmt.Println(gen.Plaintext) // shown once

# Authenticating requests

	authenticator := auth.NewAuthenticator(store, cfg.Security.APIKeySalt, collector)
	mw := auth.NewMiddleware(authenticator, cfg.Security.APIKeyHeader)
	mux.Handle("GET /v1/tides", mw.Handle(tidesHandler))

Inside a handler:

	key, ok := auth.GetAPIKey(r.Context())

# Failure reporting

Missing, unknown and revoked keys all produce the same 401 response with
message "Invalid or missing API key". The distinction is only visible in
the "reason" attribute of the warning log and in the auth failure metric.
Key store errors produce a generic 500.

Concurrent requests presenting the same credential share one store lookup.
*/
package auth
