// Package billing reconciles billing-provider subscription webhooks with
// API key plans.
//
// A delivery is verified with an HMAC-SHA256 signature over
// "{timestamp}.{body}" before its body is parsed. Subscription created and
// updated events set the plan mapped from the subscription's first product
// on every key of the customer; deleted events downgrade the
// subscription's keys to free. Every other event type is accepted and
// ignored.
package billing
