// Package charm is the ReductStore charm's event state machine. Handle maps one
// event and the unit's durable state onto side effects against the workload and
// the relations, and returns the status to commit.
package charm

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/reductstore/reductstore-operator/internal/constants"
	operatorerrors "github.com/reductstore/reductstore-operator/internal/errors"
	"github.com/reductstore/reductstore-operator/internal/license"
	"github.com/reductstore/reductstore-operator/internal/logging"
	"github.com/reductstore/reductstore-operator/internal/relation/catalogue"
	"github.com/reductstore/reductstore-operator/internal/relation/ingress"
	"github.com/reductstore/reductstore-operator/internal/urls"
	"github.com/reductstore/reductstore-operator/internal/workload"
)

// LicenseEnsurer places the license inside the workload.
type LicenseEnsurer interface {
	Ensure(ctx context.Context, container workload.Container, destination string) license.Result
}

// CataloguePublisher publishes the catalogue item.
type CataloguePublisher interface {
	Publish(ctx context.Context, item catalogue.Item) error
}

// IngressRequester publishes the ingress request.
type IngressRequester interface {
	PublishRequest(ctx context.Context, req ingress.Request) error
}

// Charm holds the collaborators of Handle. It keeps no state between calls.
type Charm struct {
	Model string
	App   string

	Container workload.Container
	License   LicenseEnsurer
	Catalogue CataloguePublisher
	Ingress   IngressRequester
	Log       logr.Logger
}

// Handle reacts to ev given the current state. Calling it twice with the same
// event, state and external world yields the same state, outcome and layer.
func (c *Charm) Handle(ctx context.Context, ev Event, st State) (State, Outcome) {
	log := c.Log.WithValues("event", string(ev.Kind))

	switch ev.Kind {
	case EventPebbleReady:
		return st, c.configure(ctx, ev.Config, log)

	case EventConfigChanged:
		out := c.configure(ctx, ev.Config, log)
		if !out.Status.IsActive() {
			return st, out
		}
		out.Err = c.publishCatalogue(ctx, st, ev.Config, log)
		return st, out

	case EventIngressReady:
		u, err := urls.NormalizeIngressURL(ev.IngressURL)
		if err != nil {
			log.Error(err, "Ignoring ingress URL from provider")
			return st, Outcome{Err: err}
		}
		log.V(1).Info("Ingress ready", "raw", ev.IngressURL)
		st.IngressURL = u
		logging.LogAuditEvent(log, "IngressStored", map[string]string{"url": u})
		if err := c.publishCatalogue(ctx, st, ev.Config, log); err != nil {
			return st, Outcome{Err: err}
		}
		log.Info("Ingress is ready", "url", u)
		return st, Outcome{Status: Active(IngressAtMessage(u))}

	case EventIngressRevoked:
		log.V(1).Info("Clearing stored ingress URL", "was", st.IngressURL)
		st.IngressURL = ""
		logging.LogAuditEvent(log, "IngressCleared", nil)
		if err := c.publishCatalogue(ctx, st, ev.Config, log); err != nil {
			return st, Outcome{Err: err}
		}
		log.Info("Ingress revoked")
		return st, Outcome{Status: Maintenance(MessageWaitingForIngress)}

	case EventUpdateStatus:
		return st, c.ensureLicense(ctx, ev.Config)

	case EventUpgradeCharm:
		restored := ""
		if ev.IngressURL != "" {
			u, err := urls.NormalizeIngressURL(ev.IngressURL)
			if err != nil {
				log.Error(err, "Ignoring ingress URL found in relation data")
			} else {
				restored = u
			}
		}
		if restored != st.IngressURL {
			log.V(1).Info("Restored ingress URL from relation data", "url", restored, "was", st.IngressURL)
			st.IngressURL = restored
		}
		if err := c.publishCatalogue(ctx, st, ev.Config, log); err != nil {
			return st, Outcome{Err: err}
		}
		return st, c.ensureLicense(ctx, ev.Config)

	case EventIngressRequest:
		return st, Outcome{Err: c.Ingress.PublishRequest(ctx, ev.Request)}

	case EventLeaderElected:
		if err := c.Ingress.PublishRequest(ctx, ev.Request); err != nil {
			return st, Outcome{Err: err}
		}
		return st, Outcome{Err: c.publishCatalogue(ctx, st, ev.Config, log)}

	case EventCatalogueRefresh:
		return st, Outcome{Err: c.publishCatalogue(ctx, st, ev.Config, log)}

	default:
		return st, Outcome{}
	}
}

// configure validates the configuration, ensures the license and declares the run
// layer. Only a fully successful pass yields Active.
func (c *Charm) configure(ctx context.Context, cfg Config, log logr.Logger) Outcome {
	settings, level, err := cfg.Settings(c.Model, c.App)
	if err != nil {
		log.V(1).Info("Rejected configuration", "log-level", level)
		return Outcome{Status: Blocked(workload.InvalidLogLevelMessage(level))}
	}
	log.V(1).Info("Computed api base path", "path", settings.APIBasePath)

	if out, ok := c.licenseOutcome(ctx, settings.LicensePath); !ok {
		return out
	}

	layer := workload.BuildLayer(settings)
	if err := c.Container.AddLayer(ctx, constants.LayerNameReductStore, layer, true); err != nil {
		return c.workloadFailure(err, log)
	}
	if err := c.Container.Replan(ctx); err != nil {
		return c.workloadFailure(err, log)
	}
	logging.LogAuditEvent(log, "LayerReplanned", map[string]string{
		"layer":     constants.LayerNameReductStore,
		"log_level": settings.LogLevel,
		"base_path": settings.APIBasePath,
	})
	return Outcome{Status: Active("")}
}

// ensureLicense only refreshes the license; success leaves the status alone.
func (c *Charm) ensureLicense(ctx context.Context, cfg Config) Outcome {
	path := cfg.WithDefaults(c.Model, c.App).LicensePath
	out, ok := c.licenseOutcome(ctx, path)
	if ok {
		return Outcome{}
	}
	return out
}

// licenseOutcome defers on every transient workload failure, whatever the event.
func (c *Charm) licenseOutcome(ctx context.Context, path string) (Outcome, bool) {
	res := c.License.Ensure(ctx, c.Container, path)
	switch res.Kind {
	case license.OK:
		return Outcome{}, true
	case license.WorkloadUnavailable:
		return Outcome{Status: Maintenance(MessageWaitingForWorkload), Defer: true}, false
	case license.WorkloadWriteFailed:
		return Outcome{Defer: true}, false
	default:
		return Outcome{Status: Blocked(res.BlockedMessage())}, false
	}
}

func (c *Charm) workloadFailure(err error, log logr.Logger) Outcome {
	if operatorerrors.IsWorkloadUnavailable(err) {
		log.Info("Workload API unavailable, deferring", "error", err.Error())
		return Outcome{Status: Maintenance(MessageWaitingForWorkload), Defer: true}
	}
	log.Error(err, "Failed to declare run layer, deferring")
	return Outcome{Defer: true}
}

func (c *Charm) publishCatalogue(ctx context.Context, st State, cfg Config, log logr.Logger) error {
	base := cfg.BasePath(c.Model, c.App)
	item := catalogue.ItemFor(st.IngressURL, base)
	log.V(1).Info("Derived external URLs",
		"ingress_url", st.IngressURL,
		"api_base_path", base,
		"external_api_url", urls.ExternalAPIURL(st.IngressURL, base),
		"external_ui_url", item.URL,
	)
	if err := c.Catalogue.Publish(ctx, item); err != nil {
		return fmt.Errorf("failed to publish catalogue item: %w", err)
	}
	return nil
}
