package charm

import (
	"strings"

	"github.com/reductstore/reductstore-operator/internal/constants"
	"github.com/reductstore/reductstore-operator/internal/relation/ingress"
)

// EventKind is what the charm reacts to, after hook names have been translated.
type EventKind string

const (
	EventNone             EventKind = ""
	EventPebbleReady      EventKind = "pebble-ready"
	EventConfigChanged    EventKind = "config-changed"
	EventUpdateStatus     EventKind = "update-status"
	EventUpgradeCharm     EventKind = "upgrade-charm"
	EventIngressReady     EventKind = "ingress-ready"
	EventIngressRevoked   EventKind = "ingress-revoked"
	EventIngressRequest   EventKind = "ingress-request"
	EventCatalogueRefresh EventKind = "catalogue-refresh"
	EventLeaderElected    EventKind = "leader-elected"
)

// Event is one input of Handle.
type Event struct {
	Kind EventKind
	// Hook is the Juju hook the event was translated from.
	Hook   string
	Config Config

	// IngressURL is the provider URL for EventIngressReady and the URL currently in
	// the relation for EventUpgradeCharm.
	IngressURL string
	// Request is published for EventIngressRequest and EventLeaderElected.
	Request ingress.Request
}

// State is the durable per-unit state threaded through Handle.
type State struct {
	IngressURL string
}

// Outcome is what the caller must do after Handle returns.
type Outcome struct {
	// Status to commit; nil leaves the current status unchanged.
	Status *Status
	// Defer asks for the triggering hook to be re-run at the next dispatch.
	Defer bool
	// Err fails the hook; the caller must not persist State.
	Err error
}

// hookKind maps hooks that need no relation data to their event kind.
func hookKind(hook string) EventKind {
	switch {
	case hook == constants.ContainerNameReductStore+"-pebble-ready":
		return EventPebbleReady
	case hook == "config-changed":
		return EventConfigChanged
	case hook == "update-status":
		return EventUpdateStatus
	case hook == "upgrade-charm":
		return EventUpgradeCharm
	case hook == "leader-elected":
		return EventLeaderElected
	case hook == constants.RelationIngress+"-relation-joined":
		return EventIngressRequest
	case hook == constants.RelationIngress+"-relation-broken":
		return EventIngressRevoked
	case strings.HasPrefix(hook, constants.RelationCatalogue+"-relation-") && !strings.HasSuffix(hook, "-broken"):
		return EventCatalogueRefresh
	default:
		return EventNone
	}
}
