// Package handlers implements the gateway's own HTTP endpoints: the service
// root and admin key management. Dataset, billing and health endpoints live
// with their packages.
//
// Handlers return errors instead of writing them; api.Wrap renders the
// error envelope.
package handlers
