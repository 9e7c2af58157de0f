package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/amosWeiskopf/auditsmith/internal/config"
	"github.com/amosWeiskopf/auditsmith/internal/logging"
	"github.com/amosWeiskopf/auditsmith/pkg/audit"
	"github.com/amosWeiskopf/auditsmith/pkg/history"
	"github.com/amosWeiskopf/auditsmith/pkg/reporter"
	"github.com/amosWeiskopf/auditsmith/pkg/server"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// set by loadEnvironment before any subcommand runs
var (
	cfg       *config.Config
	log       *logrus.Logger
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "auditsmith",
	Short: "Auditsmith - SEO audit engine",
	Long: `Auditsmith crawls a website, checks every page against a fixed battery
of SEO checks, scores the site and produces a prioritized remediation plan
with a simulated impact of applying it.`,
	Version:            fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:       true,
	PersistentPreRunE:  loadEnvironment,
	PersistentPostRunE: closeLog,
}

var auditCmd = &cobra.Command{
	Use:   "audit [URL]",
	Short: "Crawl and audit a website",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		depth, _ := cmd.Flags().GetInt("depth")
		autoFix, _ := cmd.Flags().GetBool("auto-fix")
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")
		quiet, _ := cmd.Flags().GetBool("quiet")

		engine, err := audit.New(cfg, log)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		s := spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
		s.Suffix = fmt.Sprintf(" auditing %s (depth %d)", args[0], depth)
		if !quiet {
			s.Start()
		}
		result, err := engine.Audit(ctx, audit.Request{URL: args[0], Depth: depth, AutoFix: autoFix})
		s.Stop()
		if err != nil {
			return fmt.Errorf("audit failed (%s): %w", audit.ErrorKind(err), err)
		}

		return writeOutput(output, func(w io.Writer) error {
			return reporter.New().Render(w, result, format)
		})
	},
}

var checkCmd = &cobra.Command{
	Use:   "check [URL]",
	Short: "Check a single page without crawling",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := audit.New(cfg, log)
		if err != nil {
			return err
		}

		check, err := engine.QuickCheck(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("check failed (%s): %w", audit.ErrorKind(err), err)
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(check)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the audit HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if port, _ := cmd.Flags().GetInt("port"); port != 0 {
			cfg.Server.Port = port
		}

		engine, err := audit.New(cfg, log)
		if err != nil {
			return err
		}
		store := history.NewStore(cfg.History.Capacity)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return server.NewForEngine(engine, store, cfg.Server, log.WithField("component", "server")).ListenAndServe(ctx)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), rootCmd.Version)
	},
}

// loadEnvironment reads .env, the config file and the logger settings
func loadEnvironment(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	configPath, _ := cmd.Flags().GetString("config")
	c, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		c.Logging.Level = "debug"
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	l, closer, err := logging.New(c.Logging)
	if err != nil {
		return err
	}
	cfg, log, logCloser = c, l, closer
	return nil
}

func closeLog(cmd *cobra.Command, args []string) error {
	if logCloser != nil {
		return logCloser.Close()
	}
	return nil
}

// writeOutput renders into the named file, or stdout when path is empty
func writeOutput(path string, render func(io.Writer) error) error {
	if path == "" {
		return render(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := render(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Report saved to %s\n", path)
	return nil
}

func init() {
	// Audit command flags
	auditCmd.Flags().Int("depth", 2, fmt.Sprintf("Crawl depth (%d-%d)", audit.MinDepth, audit.MaxDepth))
	auditCmd.Flags().Bool("auto-fix", false, "Apply auto-fixable recommendations as patch files")
	auditCmd.Flags().String("format", reporter.FormatJSON, "Report format ("+strings.Join(reporter.Formats, ", ")+")")
	auditCmd.Flags().String("output", "", "Output file for the report")
	auditCmd.Flags().Bool("quiet", false, "Do not show progress")

	// Serve command flags
	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides server.port)")

	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "Config file path")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable verbose output")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
