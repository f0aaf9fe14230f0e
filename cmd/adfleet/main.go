package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"adfleet/internal/config"
	"adfleet/internal/directory"
	"adfleet/internal/dispatch"
	"adfleet/internal/errors"
	"adfleet/internal/history"
	"adfleet/internal/inventory"
	"adfleet/internal/logging"
	"adfleet/internal/progress"
	"adfleet/internal/remote"
	"adfleet/internal/report"
	"adfleet/internal/target"
	"adfleet/internal/template"
)

var (
	// Build-time variables (set via -ldflags)
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"

	// Global configuration
	cfg *config.Config

	// Connection flags
	server   string
	port     int
	useTLS   bool
	domain   string
	username string

	// Dispatch flags
	hostSelector    string
	ouSelector      string
	patternSelector string
	inventoryFile   string
	inventoryGroup  string
	transport       string
	remotePort      int
	concurrency     int
	cmdTimeout      time.Duration
	roundTimeout    time.Duration
	templateName    string
	dryRun          bool
	noExport        bool

	// Output flags
	exportDir    string
	historyPath  string
	quiet        bool
	logLevel     string
	logFormat    string
	progressMode string

	// history flags
	historyLimit int
	historyRound string
	historyDB    string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(getExitCode(err))
	}
}

var rootCmd = &cobra.Command{
	Use:   "adfleet",
	Short: "Query a directory-backed fleet and dispatch commands to many machines",
	Long: `adfleet is an operator console for a directory-service-backed fleet. It
queries the directory for user and computer inventory and dispatches remote
commands to many machines concurrently, selected by exact hostname,
organizational unit, or wildcard name pattern.

The session password is read from ADFLEET_PASSWORD (environment or .env),
never from a flag.

Examples:
  # Run a command on every computer in an OU
  adfleet run --ou "OU=Databases,DC=CORP,DC=LOCAL" -- "Get-Service MSSQLSERVER"

  # Run on computers matching a name pattern
  adfleet run --pattern "DB-OP1-0**" -- hostname

  # Run on one host with a bounded worker pool and a round ceiling
  adfleet run --host DB-OP1-001 --concurrency 16 --round-timeout 5m -- hostname

  # Inventory queries with CSV export
  adfleet users
  adfleet computers`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "history" {
			return nil
		}

		configManager := config.NewManager()
		loadedCfg, err := configManager.Load()
		if err != nil {
			return &SetupError{Message: fmt.Sprintf("failed to load configuration: %v", err)}
		}
		cfg = loadedCfg

		if err := overrideConfigWithFlags(cmd); err != nil {
			return err
		}

		if cfg.Server == "" {
			return &SetupError{Message: "directory server is required (--server or ADFLEET_SERVER)"}
		}
		if cfg.Username == "" {
			return &SetupError{Message: "username is required (--username or ADFLEET_USERNAME)"}
		}
		if cfg.Password == "" {
			return &SetupError{Message: "password is required (ADFLEET_PASSWORD via environment or .env)"}
		}

		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&server, "server", "", "Directory server hostname or IP")
	pf.IntVar(&port, "port", 389, "Directory server port")
	pf.BoolVar(&useTLS, "tls", false, "Connect to the directory over LDAPS")
	pf.StringVar(&domain, "domain", "", "AD domain (e.g. CORP.LOCAL); also derives the search base")
	pf.StringVar(&username, "username", "", "Account name without domain prefix")
	pf.StringVar(&exportDir, "export-dir", ".", "Directory for CSV exports")
	pf.BoolVar(&quiet, "quiet", false, "Suppress non-error output")
	pf.StringVar(&logLevel, "log-level", "info", "Log level (info, error)")
	pf.StringVar(&logFormat, "log-format", "text", "Log format (json, text)")

	runCmd.Flags().StringVar(&hostSelector, "host", "", "Select a single computer by name")
	runCmd.Flags().StringVar(&ouSelector, "ou", "", "Select every computer in an OU (distinguished name)")
	runCmd.Flags().StringVar(&patternSelector, "pattern", "", "Select computers by wildcard name pattern")
	runCmd.Flags().StringVar(&inventoryFile, "inventory", "", "Select from a static fleet file instead of the directory")
	runCmd.Flags().StringVar(&inventoryGroup, "group", "", "Fleet file group to select (requires --inventory)")
	runCmd.Flags().StringVar(&transport, "transport", "winrm", "Remote transport (winrm, ssh)")
	runCmd.Flags().IntVar(&remotePort, "remote-port", 0, "Remote transport port (0 for transport default)")
	runCmd.Flags().IntVar(&concurrency, "concurrency", 0, "Worker cap (0 = one worker per target)")
	runCmd.Flags().DurationVar(&cmdTimeout, "cmd-timeout", 60*time.Second, "Per-target command timeout")
	runCmd.Flags().DurationVar(&roundTimeout, "round-timeout", 0, "Ceiling for the whole round (0 = none)")
	runCmd.Flags().StringVar(&templateName, "template", "", "Render the command as a per-target template")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Resolve and list targets without connecting")
	runCmd.Flags().BoolVar(&noExport, "no-export", false, "Skip the CSV export of round results")
	runCmd.Flags().StringVar(&historyPath, "history", "", "Round history database path (empty disables)")
	runCmd.Flags().StringVar(&progressMode, "progress", "auto", "Progress display (auto, on, off)")

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of rounds to list")
	historyCmd.Flags().StringVar(&historyRound, "round", "", "Show the stored outcomes of one round ID")
	historyCmd.Flags().StringVar(&historyDB, "history", "adfleet_history.db", "Round history database path")

	rootCmd.AddCommand(runCmd, usersCmd, computersCmd, ousCmd, testDCsCmd, historyCmd, versionCmd)
}

func overrideConfigWithFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	root := cmd.Root().PersistentFlags()

	if root.Changed("server") {
		cfg.Server = server
	}
	if root.Changed("port") {
		cfg.Port = port
	}
	if root.Changed("tls") {
		cfg.UseTLS = useTLS
	}
	if root.Changed("domain") {
		cfg.Domain = domain
	}
	if root.Changed("username") {
		cfg.Username = username
	}
	if root.Changed("export-dir") {
		cfg.ExportDir = exportDir
	}
	if root.Changed("quiet") {
		cfg.Quiet = quiet
	}
	if root.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if root.Changed("log-format") {
		cfg.LogFormat = logFormat
	}

	if flags.Changed("transport") {
		cfg.Transport = transport
	}
	if flags.Changed("remote-port") {
		cfg.RemotePort = remotePort
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency = concurrency
	}
	if flags.Changed("cmd-timeout") {
		cfg.CmdTimeout = cmdTimeout
	}
	if flags.Changed("round-timeout") {
		cfg.RoundTimeout = roundTimeout
	}
	if flags.Changed("inventory") {
		cfg.Inventory = inventoryFile
	}
	if flags.Changed("history") {
		cfg.HistoryPath = historyPath
	}
	if flags.Changed("progress") {
		cfg.Progress = progressMode
	}

	configManager := config.NewManager()
	if err := configManager.Validate(cfg); err != nil {
		return &SetupError{Message: fmt.Sprintf("configuration validation failed: %v", err)}
	}
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("adfleet %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", buildTime)
	},
}

var runCmd = &cobra.Command{
	Use:   "run [flags] -- <command>",
	Short: "Dispatch a command to the selected computers concurrently",
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return &SetupError{Message: "command is required after '--'"}
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		command := strings.Join(args, " ")
		return executeRun(command, os.Stdout)
	},
}

func executeRun(command string, writer io.Writer) error {
	logger := logging.NewLoggerFromConfig(cfg.LogLevel, cfg.LogFormat, cfg.Quiet)
	logger.LogConfigLoad("CLI flags and configuration files")

	targets, err := resolveTargets(logger)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return &SetupError{Message: "selector matched no computers"}
	}

	fmt.Fprintf(writer, "Resolved %d computer(s):\n", len(targets))
	for _, t := range targets {
		address := t.Address
		if address == "" {
			address = "N/A"
		}
		fmt.Fprintf(writer, "  %s (%s)\n", t.Name, address)
	}

	if dryRun {
		fmt.Fprintln(writer, "Dry run: no connections were made.")
		return nil
	}

	creds := remote.Credentials{
		Domain:   cfg.Domain,
		Username: cfg.Username,
		Password: cfg.Password,
	}

	runner, err := buildRunner(creds, command, logger)
	if err != nil {
		return err
	}

	coordinator := dispatch.NewCoordinator(runner, dispatch.Config{
		Concurrency:  cfg.Concurrency,
		CmdTimeout:   cfg.CmdTimeout,
		RoundTimeout: cfg.RoundTimeout,
	}, logger)

	tracker := progress.NewTracker(len(targets), os.Stderr, progressEnabled())
	coordinator.OnProgress(func(p dispatch.Progress) {
		tracker.Observe(p.Completed, p.Failed)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received shutdown signal, canceling dispatch", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	defer signal.Stop(sigChan)

	round := coordinator.Dispatch(ctx, targets, command)
	tracker.Finish()

	if err := report.WriteRound(writer, round); err != nil {
		logger.Error("failed to write results table", "error", err.Error())
	}

	if !noExport {
		headers, rows := report.RoundRows(round)
		path, err := report.ExportCSV(cfg.ExportDir, "command_results", headers, rows)
		if err != nil {
			logger.Error("failed to export round results", "error", err.Error())
		} else {
			logger.LogExport(path, len(rows))
			fmt.Fprintf(writer, "Results exported to %s\n", path)
		}
	}

	if cfg.HistoryPath != "" {
		if store, err := history.Open(cfg.HistoryPath); err != nil {
			logger.Error("failed to open history database", "error", err.Error())
		} else {
			hw := history.NewWriter(store, logger)
			hw.Write(round)
			hw.Close()
			store.Close()
		}
	}

	collector := errors.NewErrorCollector()
	for _, o := range round.Outcomes {
		if !o.OK() {
			collector.Add(errors.ClassifyError(fmt.Errorf("%s", o.Output)))
		}
	}

	successes, failures := round.Counts()
	logger.Info("run completed",
		"round_id", round.ID,
		"targets", len(round.Targets),
		"successes", successes,
		"failures", failures,
		"error_summary", collector.Summary())

	if failures > 0 {
		return &ExecutionError{
			Message: fmt.Sprintf("dispatch failed on %d/%d computers - %s", failures, len(round.Targets), collector.Summary()),
		}
	}
	return nil
}

// resolveTargets picks the target source: a fleet file when --inventory is
// set, otherwise exactly one directory selector.
func resolveTargets(logger *logging.Logger) ([]target.Target, error) {
	if cfg.Inventory != "" {
		fleet, err := inventory.Load(cfg.Inventory)
		if err != nil {
			return nil, &SetupError{Message: fmt.Sprintf("failed to load fleet file: %v", err)}
		}
		if inventoryGroup != "" {
			targets, err := fleet.TargetsByGroup(inventoryGroup)
			if err != nil {
				return nil, &SetupError{Message: err.Error()}
			}
			return targets, nil
		}
		return fleet.Targets(), nil
	}

	sel, err := buildSelector()
	if err != nil {
		return nil, err
	}

	client, err := connectDirectory(logger)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	resolver := target.NewResolver(client, logger)
	targets, err := resolver.Resolve(sel)
	if err != nil {
		return nil, &ExecutionError{Message: fmt.Sprintf("target resolution failed: %v", err)}
	}
	return targets, nil
}

func buildSelector() (target.Selector, error) {
	set := 0
	sel := target.Selector{}
	if hostSelector != "" {
		set++
		sel = target.Selector{Kind: target.HostSelector, Value: hostSelector}
	}
	if ouSelector != "" {
		set++
		sel = target.Selector{Kind: target.OUSelector, Value: ouSelector}
	}
	if patternSelector != "" {
		set++
		sel = target.Selector{Kind: target.PatternSelector, Value: patternSelector}
	}
	if set != 1 {
		return sel, &SetupError{Message: "exactly one of --host, --ou or --pattern is required (or --inventory)"}
	}
	return sel, nil
}

func connectDirectory(logger *logging.Logger) (*directory.Client, error) {
	client := directory.NewClient(directory.Options{
		Server:   cfg.Server,
		Port:     cfg.Port,
		UseTLS:   cfg.UseTLS,
		Domain:   cfg.Domain,
		Username: cfg.Username,
		Password: cfg.Password,
		BaseDN:   cfg.BaseDN(),
	}, logger)

	if err := client.Connect(); err != nil {
		return nil, &SetupError{Message: fmt.Sprintf("directory connection failed: %v", err)}
	}
	return client, nil
}

// buildRunner selects the transport and wraps it for templating when the
// command is a per-target template.
func buildRunner(creds remote.Credentials, command string, logger *logging.Logger) (remote.Runner, error) {
	var runner remote.Runner
	switch cfg.Transport {
	case "winrm":
		runner = remote.NewWinRMRunner(creds, cfg.RemotePort, false, logger)
	case "ssh":
		runner = remote.NewSSHRunner(creds, cfg.RemotePort, logger)
	default:
		return nil, &SetupError{Message: fmt.Sprintf("invalid transport: %s", cfg.Transport)}
	}

	if templateName == "" && !template.IsTemplate(command) {
		return runner, nil
	}

	engine := template.NewEngine(cfg.Domain)
	if err := engine.LoadPredefined(); err != nil {
		return nil, &SetupError{Message: fmt.Sprintf("failed to load templates: %v", err)}
	}
	return &templatedRunner{inner: runner, engine: engine, name: templateName}, nil
}

// templatedRunner renders the command per target before delegating. A render
// failure is a Failure Outcome like any other per-target failure.
type templatedRunner struct {
	inner  remote.Runner
	engine *template.Engine
	name   string
}

func (r *templatedRunner) Run(ctx context.Context, t target.Target, command string) remote.Outcome {
	var (
		rendered string
		err      error
	)
	if r.name != "" {
		if _, ok := template.PredefinedTemplates[r.name]; ok {
			rendered, err = r.engine.Execute(r.name, t)
		} else {
			rendered, err = r.engine.ExecuteInline(r.name, t)
		}
	} else {
		rendered, err = r.engine.ExecuteInline(command, t)
	}
	if err != nil {
		return remote.Failure(t.Name, fmt.Sprintf("template rendering failed: %v", err), 0)
	}
	return r.inner.Run(ctx, t, rendered)
}

func progressEnabled() bool {
	switch cfg.Progress {
	case "on":
		return true
	case "off":
		return false
	default:
		return !cfg.Quiet && isatty.IsTerminal(os.Stderr.Fd())
	}
}

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Query all users and export them to CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := logging.NewLoggerFromConfig(cfg.LogLevel, cfg.LogFormat, cfg.Quiet)
		client, err := connectDirectory(logger)
		if err != nil {
			return err
		}
		defer client.Close()

		users, err := client.Users()
		if err != nil {
			return &ExecutionError{Message: fmt.Sprintf("user query failed: %v", err)}
		}

		if err := report.WriteUsers(os.Stdout, users); err != nil {
			return &ExecutionError{Message: fmt.Sprintf("failed to write user table: %v", err)}
		}

		headers, rows := report.UserRows(users)
		path, err := report.ExportCSV(cfg.ExportDir, "users", headers, rows)
		if err != nil {
			return &ExecutionError{Message: fmt.Sprintf("user export failed: %v", err)}
		}
		logger.LogExport(path, len(rows))
		fmt.Printf("Data exported to %s\n", path)
		return nil
	},
}

var computersCmd = &cobra.Command{
	Use:   "computers",
	Short: "Query all computers and export them to CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := logging.NewLoggerFromConfig(cfg.LogLevel, cfg.LogFormat, cfg.Quiet)
		client, err := connectDirectory(logger)
		if err != nil {
			return err
		}
		defer client.Close()

		computers, err := client.Computers()
		if err != nil {
			return &ExecutionError{Message: fmt.Sprintf("computer query failed: %v", err)}
		}

		if err := report.WriteComputers(os.Stdout, computers); err != nil {
			return &ExecutionError{Message: fmt.Sprintf("failed to write computer table: %v", err)}
		}

		headers, rows := report.ComputerRows(computers)
		path, err := report.ExportCSV(cfg.ExportDir, "computers", headers, rows)
		if err != nil {
			return &ExecutionError{Message: fmt.Sprintf("computer export failed: %v", err)}
		}
		logger.LogExport(path, len(rows))
		fmt.Printf("Data exported to %s\n", path)
		return nil
	},
}

var ousCmd = &cobra.Command{
	Use:   "ous",
	Short: "List organizational units",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := logging.NewLoggerFromConfig(cfg.LogLevel, cfg.LogFormat, cfg.Quiet)
		client, err := connectDirectory(logger)
		if err != nil {
			return err
		}
		defer client.Close()

		ous, err := client.OrganizationalUnits()
		if err != nil {
			return &ExecutionError{Message: fmt.Sprintf("OU query failed: %v", err)}
		}
		return report.WriteOUs(os.Stdout, ous)
	},
}

var testDCsCmd = &cobra.Command{
	Use:   "test-dcs",
	Short: "Probe connectivity to every domain controller",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := logging.NewLoggerFromConfig(cfg.LogLevel, cfg.LogFormat, cfg.Quiet)
		client, err := connectDirectory(logger)
		if err != nil {
			return err
		}
		defer client.Close()

		dcs, err := client.DomainControllers()
		if err != nil {
			return &ExecutionError{Message: fmt.Sprintf("domain controller query failed: %v", err)}
		}
		if len(dcs) == 0 {
			return &ExecutionError{Message: "no domain controllers found"}
		}

		probes := make([]report.DCProbeRow, 0, len(dcs))
		for i, dc := range dcs {
			if dc.DNSHostName == "" {
				continue
			}
			status := "Success"
			if err := client.Probe(dc.DNSHostName); err != nil {
				status = fmt.Sprintf("Failed: %v", err)
			}
			fmt.Printf("Tested DC %d/%d: %s - %s\n", i+1, len(dcs), dc.DNSHostName, status)
			probes = append(probes, report.DCProbeRow{Name: dc.Name, Hostname: dc.DNSHostName, Status: status})
		}

		if len(probes) == 0 {
			return &ExecutionError{Message: "no domain controller connectivity tests were performed"}
		}

		headers, rows := report.DCProbeRows(probes)
		path, err := report.ExportCSV(cfg.ExportDir, "dc_connection_test_results", headers, rows)
		if err != nil {
			return &ExecutionError{Message: fmt.Sprintf("export failed: %v", err)}
		}
		logger.LogExport(path, len(rows))
		fmt.Printf("Domain controller connection test results exported to %s\n", path)
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored dispatch rounds",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := history.Open(historyDB)
		if err != nil {
			return &SetupError{Message: fmt.Sprintf("failed to open history database: %v", err)}
		}
		defer store.Close()

		if historyRound != "" {
			outcomes, err := store.RoundOutcomes(historyRound)
			if err != nil {
				return &ExecutionError{Message: fmt.Sprintf("failed to read round outcomes: %v", err)}
			}
			for _, o := range outcomes {
				fmt.Printf("%s\t%s\t%s\n", o.Computer, o.Status, report.Truncate(o.Output, 200))
			}
			return nil
		}

		rounds, err := store.RecentRounds(historyLimit)
		if err != nil {
			return &ExecutionError{Message: fmt.Sprintf("failed to read history: %v", err)}
		}
		for _, r := range rounds {
			fmt.Printf("%s  %s  targets=%d ok=%d failed=%d  %s\n",
				r.StartedAt.Format(time.RFC3339), r.ID, r.TargetCount, r.SuccessCount, r.FailureCount,
				report.Truncate(r.Command, 60))
		}
		return nil
	},
}

// ExecutionError represents an error during dispatch or query (exit code 1)
type ExecutionError struct {
	Message string
}

func (e *ExecutionError) Error() string {
	return e.Message
}

// SetupError represents an error during setup/configuration (exit code 2)
type SetupError struct {
	Message string
}

func (e *SetupError) Error() string {
	return e.Message
}

// getExitCode determines the appropriate exit code based on error type
// Returns:
//   - 0: Success
//   - 1: Execution failure (resolution, query, or one or more targets failed)
//   - 2: Setup error (invalid arguments, configuration issues, etc.)
func getExitCode(err error) int {
	if err == nil {
		return 0
	}

	switch err.(type) {
	case *SetupError:
		return 2
	case *ExecutionError:
		return 1
	default:
		return 2
	}
}
