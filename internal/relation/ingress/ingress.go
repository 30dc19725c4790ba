// Package ingress implements the requirer side of the ingress v2 relation: it
// publishes the request for a per-application route and reads back the URL the
// provider assigned.
package ingress

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/go-logr/logr"

	"github.com/reductstore/reductstore-operator/internal/constants"
	"github.com/reductstore/reductstore-operator/internal/relation"
	"github.com/reductstore/reductstore-operator/internal/urls"
)

// Request is what the requirer asks of the provider.
type Request struct {
	Model         string
	Name          string
	Port          int
	StripPrefix   bool
	RedirectHTTPS bool
	Scheme        string

	// Unit-level fields.
	Host string
	IP   string
}

// NewRequest returns the request for the ReductStore application: port 8383, no
// prefix stripping, plain HTTP towards the workload.
func NewRequest(model, app, host, ip string) Request {
	return Request{
		Model:  model,
		Name:   app,
		Port:   int(constants.PortHTTP),
		Scheme: "http",
		Host:   host,
		IP:     ip,
	}
}

// AppDatabag renders the application-level request. Every value is JSON-encoded.
func (r Request) AppDatabag() map[string]string {
	return map[string]string{
		"model":          quote(r.Model),
		"name":           quote(r.Name),
		"port":           strconv.Itoa(r.Port),
		"strip-prefix":   strconv.FormatBool(r.StripPrefix),
		"redirect-https": strconv.FormatBool(r.RedirectHTTPS),
		"scheme":         quote(r.Scheme),
	}
}

// UnitDatabag renders the unit-level request. Every value is JSON-encoded.
func (r Request) UnitDatabag() map[string]string {
	data := map[string]string{"host": quote(r.Host)}
	if r.IP != "" {
		data["ip"] = quote(r.IP)
	}
	return data
}

// ParseProviderData extracts the normalized ingress URL from the provider's
// application databag. A databag without the "ingress" key yields "".
func ParseProviderData(data map[string]string) (string, error) {
	raw, ok := data["ingress"]
	if !ok || raw == "" {
		return "", nil
	}
	var payload struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return "", fmt.Errorf("failed to decode ingress provider data: %w", err)
	}
	if payload.URL == "" {
		return "", nil
	}
	return urls.NormalizeIngressURL(payload.URL)
}

// Requirer drives the ingress relation through hook tools.
type Requirer struct {
	Databags relation.Databags
	Leader   relation.Leadership
	Log      logr.Logger
}

// PublishRequest writes the request to every ingress relation. The application
// databag is only written by the leader.
func (r *Requirer) PublishRequest(ctx context.Context, req Request) error {
	ids, err := r.Databags.RelationIDs(ctx, constants.RelationIngress)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	leader, err := r.Leader.IsLeader(ctx)
	if err != nil {
		return err
	}

	for _, id := range ids {
		if err := r.Databags.RelationSet(ctx, id, false, req.UnitDatabag()); err != nil {
			return err
		}
		if !leader {
			continue
		}
		if err := r.Databags.RelationSet(ctx, id, true, req.AppDatabag()); err != nil {
			return err
		}
		r.Log.V(1).Info("Published ingress request", "relation", id, "port", req.Port)
	}
	return nil
}

// URL returns the URL the provider published on relationID, or "" when it has not
// published one yet.
func (r *Requirer) URL(ctx context.Context, relationID, provider string) (string, error) {
	data, err := r.Databags.RelationGet(ctx, relationID, provider, true)
	if err != nil {
		return "", err
	}
	return ParseProviderData(data)
}

// CurrentURL returns the URL of the first ingress relation that has one.
func (r *Requirer) CurrentURL(ctx context.Context) (string, error) {
	ids, err := r.Databags.RelationIDs(ctx, constants.RelationIngress)
	if err != nil {
		return "", err
	}
	for _, id := range ids {
		provider, err := r.Databags.RemoteApp(ctx, id)
		if err != nil {
			return "", err
		}
		if provider == "" {
			continue
		}
		u, err := r.URL(ctx, id, provider)
		if err != nil {
			return "", err
		}
		if u != "" {
			return u, nil
		}
	}
	return "", nil
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
