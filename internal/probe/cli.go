package probe

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/reductstore/reductstore-operator/internal/constants"
)

const (
	ModeStartup   = "startup"
	ModeLiveness  = "liveness"
	ModeReadiness = "readiness"
)

// Exit codes returned by Main.
const (
	ExitHealthy   = 0
	ExitUnhealthy = 1
	ExitUsage     = 2
)

// Main parses probe flags from args (without the program name), runs one check
// and returns the process exit code.
func Main(ctx context.Context, args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("probe", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		mode string
		cfg  ProberConfig
	)
	fs.StringVar(&mode, "mode", ModeReadiness, "Probe mode: startup, liveness or readiness")
	fs.StringVar(&cfg.Addr, "addr", fmt.Sprintf("http://localhost:%d", constants.PortHTTP),
		"Base address of the ReductStore listener (must be reachable from inside the pod)")
	fs.StringVar(&cfg.BasePath, "base-path", "", "API base path configured on the server (RS_API_BASE_PATH)")
	fs.StringVar(&cfg.CAFile, "ca-file", "", "CA certificate used to verify https listeners")
	fs.StringVar(&cfg.Token, "token", "", "API token for servers with authentication enabled")
	fs.DurationVar(&cfg.Timeout, "timeout", 4*time.Second,
		"Timeout for the HTTP request (should be less than the Kubernetes probe timeoutSeconds)")

	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}

	switch mode {
	case ModeStartup, ModeLiveness, ModeReadiness:
	default:
		_, _ = fmt.Fprintf(stderr, "invalid -mode %q (expected %q, %q, or %q)\n",
			mode, ModeStartup, ModeLiveness, ModeReadiness)
		return ExitUsage
	}

	prober, err := NewProber(cfg)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "%v\n", err)
		return ExitUsage
	}

	var checkErr error
	switch mode {
	case ModeStartup:
		checkErr = prober.CheckStartup(ctx)
	case ModeLiveness:
		checkErr = prober.CheckLiveness(ctx)
	default:
		checkErr = prober.CheckReadiness(ctx)
	}
	if checkErr != nil {
		_, _ = fmt.Fprintf(stderr, "%s check failed: %v\n", mode, checkErr)
		return ExitUnhealthy
	}
	return ExitHealthy
}
