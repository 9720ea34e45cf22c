package billing

import (
	"encoding/json"
	"errors"
)

// EventKind is the closed set of billing events the gateway reacts to.
type EventKind int

const (
	// Unknown covers every event type the gateway ignores.
	Unknown EventKind = iota
	SubscriptionCreated
	SubscriptionUpdated
	SubscriptionDeleted
)

var eventTypes = map[string]EventKind{
	"customer.subscription.created": SubscriptionCreated,
	"customer.subscription.updated": SubscriptionUpdated,
	"customer.subscription.deleted": SubscriptionDeleted,
}

// ParseEventKind maps a provider event type to its kind.
func ParseEventKind(eventType string) EventKind {
	return eventTypes[eventType]
}

// String returns the metric label for k.
func (k EventKind) String() string {
	switch k {
	case SubscriptionCreated:
		return "subscription_created"
	case SubscriptionUpdated:
		return "subscription_updated"
	case SubscriptionDeleted:
		return "subscription_deleted"
	default:
		return "unknown"
	}
}

// Event is the subset of the provider's event envelope the gateway reads.
// Data.Object is decoded only once the kind is known, since its shape
// depends on the event type.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// Subscription decodes Data.Object as a subscription.
func (e Event) Subscription() (Subscription, error) {
	var sub Subscription
	if len(e.Data.Object) == 0 {
		return sub, errors.New("missing data.object")
	}
	err := json.Unmarshal(e.Data.Object, &sub)
	return sub, err
}

// Subscription is the subset of a subscription object the gateway reads.
type Subscription struct {
	ID       string `json:"id"`
	Customer string `json:"customer"`
	Items    struct {
		Data []SubscriptionItem `json:"data"`
	} `json:"items"`
}

// SubscriptionItem is one line of a subscription.
type SubscriptionItem struct {
	Price struct {
		Product string `json:"product"`
	} `json:"price"`
}

// Product returns the product of the first item, or "".
func (s Subscription) Product() string {
	if len(s.Items.Data) == 0 {
		return ""
	}
	return s.Items.Data[0].Price.Product
}
