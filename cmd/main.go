/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	// Import all Kubernetes client auth plugins (e.g. Azure, GCP, OIDC, etc.)
	// to ensure that exec-entrypoint and run can make use of them.
	_ "k8s.io/client-go/plugin/pkg/client/auth"

	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/reductstore/reductstore-operator/cmd/controller"
	"github.com/reductstore/reductstore-operator/cmd/dispatch"
	"github.com/reductstore/reductstore-operator/internal/constants"
	"github.com/reductstore/reductstore-operator/internal/probe"
)

var (
	setupLog = ctrl.Log.WithName("setup")
)

const validCommands = "dispatch, controller, probe"

// command picks the role. Juju runs the charm's dispatch entry point without
// arguments, so a binary installed or linked as "dispatch", or started with
// JUJU_DISPATCH_PATH set, defaults to the dispatch role.
func command(argv []string, getenv func(string) string) (string, []string) {
	if filepath.Base(argv[0]) == "dispatch" {
		return "dispatch", argv[1:]
	}
	if len(argv) < 2 {
		if getenv(constants.EnvJujuDispatchPath) != "" {
			return "dispatch", nil
		}
		return "", nil
	}
	return argv[1], argv[2:]
}

func run() error {
	// Shift args so flag parsing works inside sub-functions (e.g., --leader-elect)
	cmd, args := command(os.Args, os.Getenv)

	switch cmd {
	case "dispatch":
		return dispatch.Run(args)
	case "controller":
		return controller.Run(args)
	case "probe":
		os.Exit(probe.Main(context.Background(), args, os.Stderr))
	case "":
		return fmt.Errorf("missing command (valid commands: %s)", validCommands)
	default:
		return fmt.Errorf("unknown command %q (valid commands: %s)", cmd, validCommands)
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		setupLog.Error(err, "command failed")
		os.Exit(1)
	}
}
