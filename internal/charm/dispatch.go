package charm

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-logr/logr"

	"github.com/reductstore/reductstore-operator/internal/constants"
	"github.com/reductstore/reductstore-operator/internal/hookenv"
	"github.com/reductstore/reductstore-operator/internal/relation/ingress"
	"github.com/reductstore/reductstore-operator/internal/state"
	"github.com/reductstore/reductstore-operator/internal/tracing"
)

// HookTools is the subset of hook tools the dispatcher calls directly.
type HookTools interface {
	ConfigGet(ctx context.Context, out any) error
	StatusSet(ctx context.Context, status, message string) error
	IngressAddress(ctx context.Context, endpoint string) (string, error)
}

// StateStore persists State and the deferred event queue.
type StateStore interface {
	LoadUnit(ctx context.Context) (state.Unit, error)
	SaveUnit(ctx context.Context, u state.Unit) error
	DeferredEvents(ctx context.Context) ([]state.DeferredEvent, error)
	Defer(ctx context.Context, ev state.DeferredEvent) error
	Remove(ctx context.Context, id int64) error
}

// IngressRelation reads the URL published by the ingress provider and rewrites
// the request databags.
type IngressRelation interface {
	PublishRequest(ctx context.Context, req ingress.Request) error
	URL(ctx context.Context, relationID, provider string) (string, error)
	CurrentURL(ctx context.Context) (string, error)
}

// Dispatcher runs one hook invocation: it re-emits deferred events, then the
// current hook, commits the last status produced and persists the unit state.
type Dispatcher struct {
	Env     hookenv.Environment
	Tools   HookTools
	Store   StateStore
	Charm   *Charm
	Ingress IngressRelation
	Log     logr.Logger
}

// hookCall identifies one hook run, current or re-emitted.
type hookCall struct {
	Hook         string
	Workload     string
	RelationName string
	RelationID   string
	RemoteApp    string
}

func (h hookCall) deferred() state.DeferredEvent {
	return state.DeferredEvent{
		Kind:         h.Hook,
		Workload:     h.Workload,
		RelationName: h.RelationName,
		RelationID:   h.RelationID,
		RemoteApp:    h.RemoteApp,
	}
}

// Dispatch handles the hook described by d.Env. A returned error fails the hook,
// in which case nothing is persisted and Juju retries it.
func (d *Dispatcher) Dispatch(ctx context.Context) (err error) {
	ctx, span := tracing.StartHookSpan(ctx, d.Env.Hook, d.Env.UnitName, d.Env.ModelName)
	defer func() {
		tracing.RecordError(span, err)
		span.End()
	}()

	unit, err := d.Store.LoadUnit(ctx)
	if err != nil {
		return err
	}
	st := State{IngressURL: unit.IngressURL}

	queued, err := d.Store.DeferredEvents(ctx)
	if err != nil {
		return err
	}

	var (
		final   *Status
		handled []int64
	)
	for _, q := range queued {
		call := hookCall{Hook: q.Kind, Workload: q.Workload, RelationName: q.RelationName, RelationID: q.RelationID, RemoteApp: q.RemoteApp}
		d.Log.V(1).Info("Re-emitting deferred event", "hook", q.Kind, "deferred_at", q.DeferredAt)
		next, out, err := d.run(ctx, call, st)
		if err != nil {
			return fmt.Errorf("deferred %s: %w", q.Kind, err)
		}
		st = next
		if out.Status != nil {
			final = out.Status
		}
		if !out.Defer {
			handled = append(handled, q.ID)
		}
	}

	current := hookCall{
		Hook:         d.Env.Hook,
		Workload:     d.Env.WorkloadName,
		RelationName: d.Env.RelationName,
		RelationID:   d.Env.RelationID,
		RemoteApp:    d.Env.RemoteApp,
	}
	next, out, err := d.run(ctx, current, st)
	if err != nil {
		return err
	}
	st = next
	if out.Status != nil {
		final = out.Status
	}

	// Handled rows go first: the current hook may share their key.
	for _, id := range handled {
		if err := d.Store.Remove(ctx, id); err != nil {
			return err
		}
	}
	if out.Defer {
		d.Log.Info("Deferring event", "hook", current.Hook)
		if err := d.Store.Defer(ctx, current.deferred()); err != nil {
			return err
		}
	}
	if final != nil {
		if err := d.Tools.StatusSet(ctx, final.Name, final.Message); err != nil {
			return err
		}
	}
	return d.Store.SaveUnit(ctx, state.Unit{IngressURL: st.IngressURL})
}

func (d *Dispatcher) run(ctx context.Context, call hookCall, st State) (State, Outcome, error) {
	ev, err := d.translate(ctx, call, st)
	if err != nil {
		return st, Outcome{}, err
	}
	if ev.Kind == EventNone {
		d.Log.V(1).Info("No handler for hook", "hook", call.Hook)
		return st, Outcome{}, nil
	}

	next, out := d.Charm.Handle(ctx, ev, st)
	d.Log.V(1).Info("Handled event", "hook", call.Hook, "event", string(ev.Kind), "status", out.Status.String(), "defer", out.Defer)
	if out.Err != nil {
		return st, out, fmt.Errorf("%s: %w", call.Hook, out.Err)
	}
	return next, out, nil
}

// translate turns a hook into an Event, reading the configuration and any
// relation data the event needs.
func (d *Dispatcher) translate(ctx context.Context, call hookCall, st State) (Event, error) {
	kind := hookKind(call.Hook)
	var providerURL string
	if call.Hook == constants.RelationIngress+"-relation-changed" {
		var err error
		if kind, providerURL, err = d.ingressChange(ctx, call, st); err != nil {
			return Event{}, err
		}
	}
	if kind == EventNone {
		return Event{Kind: EventNone, Hook: call.Hook}, nil
	}

	var cfg Config
	if err := d.Tools.ConfigGet(ctx, &cfg); err != nil {
		return Event{}, err
	}
	ev := Event{Kind: kind, Hook: call.Hook, Config: cfg}

	switch kind {
	case EventIngressReady:
		ev.IngressURL = providerURL
	case EventUpgradeCharm:
		u, err := d.Ingress.CurrentURL(ctx)
		if err != nil {
			return Event{}, err
		}
		ev.IngressURL = u
	case EventIngressRequest, EventLeaderElected:
		ev.Request = d.ingressRequest(ctx)
	}
	return ev, nil
}

// ingressChange republishes the request, then decides whether relation-changed
// carries a new URL, a removed one, or nothing the charm cares about.
func (d *Dispatcher) ingressChange(ctx context.Context, call hookCall, st State) (EventKind, string, error) {
	if err := d.Ingress.PublishRequest(ctx, d.ingressRequest(ctx)); err != nil {
		return EventNone, "", fmt.Errorf("failed to publish ingress request: %w", err)
	}
	u, err := d.Ingress.URL(ctx, call.RelationID, call.RemoteApp)
	if err != nil {
		return EventNone, "", err
	}
	switch {
	case u != "" && u != st.IngressURL:
		return EventIngressReady, u, nil
	case u == "" && st.IngressURL != "":
		return EventIngressRevoked, "", nil
	default:
		return EventNone, "", nil
	}
}

func (d *Dispatcher) ingressRequest(ctx context.Context) ingress.Request {
	ip, err := d.Tools.IngressAddress(ctx, constants.RelationIngress)
	if err != nil {
		d.Log.Info("Ingress address unavailable, publishing host only", "error", err.Error())
		ip = ""
	}
	return ingress.NewRequest(d.Env.ModelName, d.Env.AppName, UnitHost(d.Env), ip)
}

// UnitHost is the in-cluster DNS name of this unit's pod.
func UnitHost(env hookenv.Environment) string {
	pod := strings.ReplaceAll(env.UnitName, "/", "-")
	return fmt.Sprintf("%s.%s%s.%s.svc.cluster.local", pod, env.AppName, constants.SuffixHeadlessService, env.ModelName)
}
