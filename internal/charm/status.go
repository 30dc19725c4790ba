package charm

import "github.com/reductstore/reductstore-operator/internal/hookenv"

// Status is a unit workload status.
type Status struct {
	Name    string
	Message string
}

// Active returns an active status.
func Active(message string) *Status {
	return &Status{Name: hookenv.StatusActive, Message: message}
}

// Blocked returns a blocked status.
func Blocked(message string) *Status {
	return &Status{Name: hookenv.StatusBlocked, Message: message}
}

// Maintenance returns a maintenance status.
func Maintenance(message string) *Status {
	return &Status{Name: hookenv.StatusMaintenance, Message: message}
}

// Waiting returns a waiting status.
func Waiting(message string) *Status {
	return &Status{Name: hookenv.StatusWaiting, Message: message}
}

// IsActive reports whether s is an active status.
func (s *Status) IsActive() bool {
	return s != nil && s.Name == hookenv.StatusActive
}

func (s *Status) String() string {
	if s == nil {
		return "<unchanged>"
	}
	if s.Message == "" {
		return s.Name
	}
	return s.Name + ": " + s.Message
}

// Status messages.
const (
	MessageWaitingForWorkload = "waiting for workload API"
	MessageWaitingForIngress  = "Waiting for ingress"
)

// IngressAtMessage is the active status message once an ingress URL is known.
func IngressAtMessage(url string) string {
	return "Ingress at " + url
}
