package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/vk/modhost/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("modhost", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
modhost - A dependency-aware module orchestrator for game-server hosts.

Usage:
  modhost [options] [MODULES_PATH]

Arguments:
  MODULES_PATH
    Path to a directory containing .hcl module manifests.

Options:
`)
		flagSet.PrintDefaults()
	}

	modulesFlag := flagSet.String("modules-path", "", "Path to the directory containing module manifests.")
	mFlag := flagSet.String("m", "", "Path to the directory containing module manifests (shorthand).")
	policyFlag := flagSet.String("policy", "", "Path to the enable/disable policy file. Empty means attempt all modules.")
	adminPortFlag := flagSet.Int("admin-port", 0, "Port for the HTTP admin server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	intervalFlag := flagSet.Duration("interval", 5*time.Second, "Health sampling interval.")
	degradeFlag := flagSet.Float64("degrade-below", 18.0, "TPS threshold under which modules are degraded.")
	recoverFlag := flagSet.Float64("recover-at", 19.5, "TPS threshold at which degraded modules recover.")
	nominalFlag := flagSet.Float64("nominal-tps", 0, "TPS an idle host reports. 0 uses the built-in default.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *modulesFlag != "" {
		path = *modulesFlag
	} else if *mFlag != "" {
		path = *mFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Manifest path determined.", "path", path)

	if path == "" {
		slog.Debug("No manifest path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		ManifestPath:   path,
		PolicyPath:     *policyFlag,
		AdminPort:      *adminPortFlag,
		LogFormat:      logFormat,
		LogLevel:       logLevel,
		SampleInterval: *intervalFlag,
		DegradeBelow:   *degradeFlag,
		RecoverAt:      *recoverFlag,
		NominalTPS:     *nominalFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
