package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/tellevo/tellevo-sdk-go/internal/appconfig"
)

var (
	Version   = "dev"     // Overridden by ldflags
	BuildTime = "unknown" // Overridden by ldflags
)

// app carries what every subcommand needs once the root has loaded
// configuration.
type app struct {
	configFile string
	envFile    string
	debug      bool
	// lookup replaces os.LookupEnv in tests.
	lookup func(string) (string, bool)

	cfg    appconfig.Config
	logger *slog.Logger
}

// NewRootCommand builds the tellevo-admin command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&app{})
}

func newRootCommand(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tellevo-admin",
		Short: "TeLlevo admin tooling",
		Long: `tellevo-admin watches the live ventas feed, serves the admin frontend,
manages empresas through the backend API and answers operator questions.

Configuration is read from an optional YAML file, then .env, then the
process environment (TELLEVO_* variables).`,
		Version:      Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.logger = newLogger(cmd.ErrOrStderr(), a.debug)
			cfg, err := appconfig.Load(appconfig.Options{
				File:    a.configFile,
				EnvFile: a.envFile,
				Lookup:  a.lookup,
			})
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			a.cfg = cfg
			return nil
		},
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf("{{.Name}} version {{.Version}}\nBuild time: %s\nGo version: %s\nPlatform: %s/%s\n",
		BuildTime, goVersion(), runtime.GOOS, runtime.GOARCH))

	rootCmd.PersistentFlags().StringVar(&a.configFile, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&a.envFile, "env-file", "", "dotenv file (default .env, optional)")
	rootCmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newWatchCommand(a))
	rootCmd.AddCommand(newServeCommand(a))
	rootCmd.AddCommand(newLoginCommand(a))
	rootCmd.AddCommand(newEmpresasCommand(a))
	rootCmd.AddCommand(newHealthCommand(a))
	rootCmd.AddCommand(newDashboardCommand(a))
	rootCmd.AddCommand(newGuideCommand())

	return rootCmd
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	if w == nil {
		w = os.Stderr
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// goVersion returns the Go version used to build the binary
func goVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		return info.GoVersion
	}
	return "unknown"
}
