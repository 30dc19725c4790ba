package dispatch

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-logr/logr"

	"github.com/reductstore/reductstore-operator/internal/charm"
	"github.com/reductstore/reductstore-operator/internal/constants"
	"github.com/reductstore/reductstore-operator/internal/hookenv"
	"github.com/reductstore/reductstore-operator/internal/license"
	"github.com/reductstore/reductstore-operator/internal/logging"
	"github.com/reductstore/reductstore-operator/internal/relation/catalogue"
	"github.com/reductstore/reductstore-operator/internal/relation/ingress"
	"github.com/reductstore/reductstore-operator/internal/state"
	"github.com/reductstore/reductstore-operator/internal/workload"
)

// Run handles the Juju hook described by the process environment. Juju invokes
// the charm's dispatch script once per hook; a non-nil error makes the hook fail.
func Run(args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("dispatch takes no arguments, got %v", args)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := hookenv.LoadEnvironment(os.Getenv)
	if err != nil {
		return err
	}

	tools := hookenv.NewTools(hookenv.ExecRunner{})
	log := logging.NewJujuLogger(ctx, tools, os.Stderr).WithName("reductstore")

	store, err := state.Open(ctx, state.Path(env.CharmDir))
	if err != nil {
		return fmt.Errorf("failed to open unit state: %w", err)
	}
	defer func() { _ = store.Close() }()

	container, err := workload.NewPebbleContainer(constants.ContainerNameReductStore)
	if err != nil {
		return fmt.Errorf("failed to create Pebble client: %w", err)
	}

	if err := NewDispatcher(env, tools, store, container, log).Dispatch(ctx); err != nil {
		log.Error(err, "Hook failed", "hook", env.Hook)
		return err
	}
	return nil
}

// NewDispatcher assembles the charm and its relation adapters around tools.
func NewDispatcher(
	env hookenv.Environment,
	tools *hookenv.Tools,
	store charm.StateStore,
	container workload.Container,
	log logr.Logger,
) *charm.Dispatcher {
	requirer := &ingress.Requirer{Databags: tools, Leader: tools, Log: log.WithName("ingress")}

	return &charm.Dispatcher{
		Env:   env,
		Tools: tools,
		Store: store,
		Charm: &charm.Charm{
			Model:     env.ModelName,
			App:       env.AppName,
			Container: container,
			License:   license.NewPusher(tools, log.WithName("license")),
			Catalogue: &catalogue.Consumer{Databags: tools, Leader: tools, Log: log.WithName("catalogue")},
			Ingress:   requirer,
			Log:       log,
		},
		Ingress: requirer,
		Log:     log,
	}
}
