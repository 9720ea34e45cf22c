package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"bluetrace-hq/gateway/pkg/config"
	"bluetrace-hq/gateway/pkg/keystore"
)

var (
	// ErrMissingSignature is returned when the signature header or the
	// webhook secret is absent.
	ErrMissingSignature = errors.New("missing webhook signature")

	// ErrInvalidSignature is returned when no signature candidate matches.
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrInvalidEvent is returned when a verified body is not a valid event.
	ErrInvalidEvent = errors.New("invalid event data")
)

// Outcomes reported to the Observer.
const (
	OutcomeApplied  = "applied"
	OutcomeIgnored  = "ignored"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Observer receives one call per webhook delivery.
type Observer interface {
	RecordWebhookEvent(kind, outcome string)
}

// Result describes how a delivery was applied.
type Result struct {
	Kind EventKind

	// Type is the provider's raw event type.
	Type string

	// Plan is the tier applied, empty for deletions and ignored events.
	Plan keystore.Plan

	// Updated is the number of key records changed.
	Updated int64
}

// Reconciler applies verified subscription events to key plans. Each event
// is applied in a single store statement, so duplicate or reordered
// deliveries converge to the last one applied.
type Reconciler struct {
	store    keystore.Store
	provider func() *config.Config
	observer Observer
	logger   *slog.Logger
}

// NewReconciler creates a reconciler. The webhook secret and product table
// are read from provider on every delivery; nil selects config.GetConfig.
func NewReconciler(store keystore.Store, provider func() *config.Config, observer Observer) *Reconciler {
	if provider == nil {
		provider = config.GetConfig
	}
	return &Reconciler{
		store:    store,
		provider: provider,
		observer: observer,
		logger:   slog.Default().With("component", "billing"),
	}
}

// Handle verifies and applies one webhook delivery.
func (r *Reconciler) Handle(ctx context.Context, body []byte, signature string) (Result, error) {
	cfg := r.provider().Billing

	if err := r.precheck(signature); err != nil {
		return Result{}, err
	}
	if !VerifySignature(body, signature, cfg.WebhookSecret) {
		r.logger.WarnContext(ctx, "webhook signature verification failed")
		r.observe(Unknown, OutcomeRejected)
		return Result{}, ErrInvalidSignature
	}

	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		r.observe(Unknown, OutcomeRejected)
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	kind := ParseEventKind(event.Type)
	res := Result{Kind: kind, Type: event.Type}
	r.logger.InfoContext(ctx, "billing event received",
		"event_id", event.ID,
		"event_type", event.Type,
	)

	if kind == Unknown {
		r.observe(kind, OutcomeIgnored)
		return res, nil
	}

	sub, err := event.Subscription()
	if err != nil {
		r.observe(kind, OutcomeRejected)
		return res, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	switch kind {
	case SubscriptionCreated, SubscriptionUpdated:
		res.Plan = r.planFor(ctx, sub.Product(), cfg.Products)
		res.Updated, err = r.applyPlan(ctx, kind, sub, res.Plan)
	case SubscriptionDeleted:
		res.Updated, err = r.store.ClearSubscription(ctx, sub.ID)
	}
	if err != nil {
		r.observe(kind, OutcomeFailed)
		return res, fmt.Errorf("failed to apply %s: %w", event.Type, err)
	}

	r.logger.InfoContext(ctx, "billing event applied",
		"event_type", event.Type,
		"customer_id", sub.Customer,
		"subscription_id", sub.ID,
		"plan", string(res.Plan),
		"keys_updated", res.Updated,
	)
	r.observe(kind, OutcomeApplied)
	return res, nil
}

// precheck rejects a delivery with no signature, or arriving while no
// webhook secret is configured, before its body is looked at.
func (r *Reconciler) precheck(signature string) error {
	if signature == "" || r.provider().Billing.WebhookSecret == "" {
		r.observe(Unknown, OutcomeRejected)
		return ErrMissingSignature
	}
	return nil
}

// applyPlan sets plan on the customer's keys. An update for a customer with
// no linked keys falls back to keys already carrying the subscription.
func (r *Reconciler) applyPlan(ctx context.Context, kind EventKind, sub Subscription, plan keystore.Plan) (int64, error) {
	n, err := r.store.UpdatePlanByCustomerID(ctx, sub.Customer, plan, sub.ID)
	if err != nil || n > 0 || kind != SubscriptionUpdated {
		return n, err
	}
	return r.store.UpdatePlanBySubscriptionID(ctx, sub.ID, plan)
}

// planFor maps a product to a tier; unmapped or invalid entries yield free.
func (r *Reconciler) planFor(ctx context.Context, product string, products map[string]string) keystore.Plan {
	name, ok := products[product]
	if !ok || product == "" {
		return keystore.PlanFree
	}
	plan, err := keystore.ParsePlan(name)
	if err != nil {
		r.logger.WarnContext(ctx, "billing product mapped to unknown plan",
			"product", product,
			"plan", name,
		)
		return keystore.PlanFree
	}
	return plan
}

func (r *Reconciler) observe(kind EventKind, outcome string) {
	if r.observer != nil {
		r.observer.RecordWebhookEvent(kind.String(), outcome)
	}
}
