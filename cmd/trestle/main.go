package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/google/uuid"
	"github.com/hylla/trestle/internal/adapters/storage/sqlite"
	"github.com/hylla/trestle/internal/app"
	"github.com/hylla/trestle/internal/config"
	"github.com/hylla/trestle/internal/dnd"
	"github.com/hylla/trestle/internal/domain"
	"github.com/hylla/trestle/internal/platform"
	"github.com/hylla/trestle/internal/tui"
	"github.com/spf13/cobra"
)

var version = "dev"

// program is the slice of tea.Program the CLI drives.
type program interface {
	Run() (tea.Model, error)
}

var programFactory = func(m tea.Model) program {
	return tea.NewProgram(m)
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

// run executes the command tree against args.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	root := newRootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return fang.Execute(ctx, root, fang.WithVersion(version))
}

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	dbPath     string
	appName    string
	devMode    bool
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{
		appName: platform.DefaultAppName,
		devMode: version == "dev",
	}
	if envDev, ok := parseBoolEnv("TRESTLE_DEV_MODE"); ok {
		opts.devMode = envDev
	}
	if envApp := strings.TrimSpace(os.Getenv("TRESTLE_APP_NAME")); envApp != "" {
		opts.appName = envApp
	}

	root := &cobra.Command{
		Use:   "trestle",
		Short: "A drag-and-drop grid of rows, columns and elements",
		Long: `trestle opens a terminal grid of rows, columns and elements.

Drag elements between cells with the mouse or the keyboard, or drag row and
column handles to reorder them. Every committed drop is saved to a local
sqlite database.`,
		Example: `  # open the grid
  trestle

  # use a throwaway database
  trestle --db /tmp/grid.db

  # export the grid as YAML
  trestle export --format yaml --out grid.yaml

  # resolve a recorded drag tick
  trestle resolve --in tick.json`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), opts, cmd.ErrOrStderr())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config TOML")
	flags.StringVar(&opts.dbPath, "db", "", "path to sqlite database")
	flags.StringVar(&opts.appName, "app", opts.appName, "application name for config/data path resolution")
	flags.BoolVar(&opts.devMode, "dev", opts.devMode, "use dev mode paths (<app>-dev)")

	root.AddCommand(
		newPathsCommand(opts),
		newExportCommand(opts),
		newImportCommand(opts),
		newHistoryCommand(opts),
		newResolveCommand(),
	)
	return root
}

func newPathsCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config, data and log paths",
		Long: `paths prints where trestle reads its config and writes its database.
log_dir is the effective logging.dev_file.dir; dev_log is the file written
today, or "off" when dev file logging is disabled.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rc, err := resolveRuntime(opts)
			if err != nil {
				return err
			}
			devLog := "off"
			if opts.devMode && rc.cfg.Logging.DevFile.Enabled {
				devLog = platform.LogFile(rc.cfg.Logging.DevFile.Dir, rc.paths.AppName, time.Now())
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "app: %s\n", opts.appName)
			_, _ = fmt.Fprintf(out, "dev_mode: %t\n", opts.devMode)
			_, _ = fmt.Fprintf(out, "config: %s\n", rc.configPath)
			_, _ = fmt.Fprintf(out, "data_dir: %s\n", rc.paths.DataDir)
			_, _ = fmt.Fprintf(out, "db: %s\n", rc.cfg.Database.Path)
			_, _ = fmt.Fprintf(out, "log_dir: %s\n", rc.cfg.Logging.DevFile.Dir)
			_, _ = fmt.Fprintf(out, "dev_log: %s\n", devLog)
			return nil
		},
	}
}

func newExportCommand(opts *globalOptions) *cobra.Command {
	var (
		format  string
		outPath string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the grid as a JSON or YAML snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := openRuntime(opts, "export", cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer env.Close()

			env.logger.Info("command flow start", "command", "export")
			if err := runExport(cmd.Context(), env.svc, format, outPath, cmd.OutOrStdout()); err != nil {
				env.logger.Error("command flow failed", "command", "export", "err", err)
				return fmt.Errorf("run export command: %w", err)
			}
			env.logger.Info("command flow complete", "command", "export")
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "snapshot format: json or yaml (default from --out extension, else json)")
	cmd.Flags().StringVar(&outPath, "out", "-", "output file path ('-' for stdout)")
	return cmd
}

func newImportCommand(opts *globalOptions) *cobra.Command {
	var inPath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace the grid with a JSON or YAML snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(inPath) == "" {
				return fmt.Errorf("--in is required")
			}
			env, err := openRuntime(opts, "import", cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer env.Close()

			env.logger.Info("command flow start", "command", "import")
			if err := runImport(cmd.Context(), env.svc, inPath); err != nil {
				env.logger.Error("command flow failed", "command", "import", "err", err)
				return fmt.Errorf("run import command: %w", err)
			}
			env.logger.Info("command flow complete", "command", "import")
			return nil
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "input snapshot file")
	return cmd
}

func newHistoryCommand(opts *globalOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent grid changes, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := openRuntime(opts, "history", cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer env.Close()

			events, err := env.svc.ListChangeEvents(cmd.Context(), limit)
			if err != nil {
				env.logger.Error("command flow failed", "command", "history", "err", err)
				return fmt.Errorf("list change events: %w", err)
			}
			return writeHistory(cmd.OutOrStdout(), events)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", app.DefaultHistoryLimit, "maximum number of events to print")
	return cmd
}

func newResolveCommand() *cobra.Command {
	var inPath string
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve recorded drag ticks to drop targets",
		Long: `resolve reads one drag tick, or a JSON array of ticks sharing one drag
session, and prints the resolved drop target of each tick on its own line.
Ticks that resolve to nothing print (empty).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := cmd.InOrStdin()
			if inPath != "" && inPath != "-" {
				f, err := os.Open(inPath)
				if err != nil {
					return fmt.Errorf("open ticks: %w", err)
				}
				defer func() { _ = f.Close() }()
				in = f
			}
			return runResolve(in, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "-", "input tick file ('-' for stdin)")
	return cmd
}

// runtimeEnv is the resolved config, logger and service for one command.
type runtimeEnv struct {
	cfg        config.Config
	configPath string
	logger     *runtimeLogger
	repo       *sqlite.Repository
	svc        *app.Service
}

// runtimeConfig is the resolved paths and config shared by every command.
type runtimeConfig struct {
	paths      platform.Paths
	configPath string
	cfg        config.Config
}

// resolveRuntime applies flags and env overrides to the platform paths and
// loads the config. A relative logging.dev_file.dir resolves against the
// config file's directory.
func resolveRuntime(opts *globalOptions) (runtimeConfig, error) {
	paths, err := platform.DefaultPathsWithOptions(platform.Options{
		AppName: opts.appName,
		DevMode: opts.devMode,
	})
	if err != nil {
		return runtimeConfig{}, err
	}

	configPath := strings.TrimSpace(opts.configPath)
	if configPath == "" {
		if envPath := strings.TrimSpace(os.Getenv("TRESTLE_CONFIG")); envPath != "" {
			configPath = envPath
		} else {
			configPath = paths.ConfigPath
		}
	}
	dbPath := strings.TrimSpace(opts.dbPath)
	dbOverridden := dbPath != ""
	if !dbOverridden {
		if envPath := strings.TrimSpace(os.Getenv("TRESTLE_DB_PATH")); envPath != "" {
			dbPath = envPath
			dbOverridden = true
		} else {
			dbPath = paths.DBPath
		}
	}

	cfg, err := config.Load(configPath, config.Default(dbPath, paths.LogDir))
	if err != nil {
		return runtimeConfig{}, fmt.Errorf("load config %q: %w", configPath, err)
	}
	if dbOverridden {
		cfg.Database.Path = dbPath
	}
	if dir := cfg.Logging.DevFile.Dir; dir != "" && !filepath.IsAbs(dir) {
		cfg.Logging.DevFile.Dir = filepath.Join(filepath.Dir(configPath), dir)
	}
	return runtimeConfig{paths: paths, configPath: configPath, cfg: cfg}, nil
}

// openRuntime resolves paths and config, then opens storage for command.
func openRuntime(opts *globalOptions, command string, stderr io.Writer) (*runtimeEnv, error) {
	rc, err := resolveRuntime(opts)
	if err != nil {
		return nil, err
	}
	paths, configPath, cfg := rc.paths, rc.configPath, rc.cfg

	logger, err := newRuntimeLogger(stderr, paths.AppName, opts.devMode, cfg.Logging, time.Now)
	if err != nil {
		return nil, fmt.Errorf("configure runtime logger: %w", err)
	}
	env := &runtimeEnv{cfg: cfg, configPath: configPath, logger: logger}

	logger.Info("startup configuration resolved", "app", opts.appName, "dev_mode", opts.devMode, "command", command)
	logger.Debug("runtime paths resolved", "config_path", configPath, "data_dir", paths.DataDir, "db_path", cfg.Database.Path, "log_dir", cfg.Logging.DevFile.Dir)
	logger.Info("configuration loaded", "config_path", configPath, "db_path", cfg.Database.Path, "log_level", cfg.Logging.Level)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Info("dev file logging enabled", "path", devPath)
	}

	if dir := filepath.Dir(cfg.Database.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			env.Close()
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	logger.Info("opening sqlite repository", "db_path", cfg.Database.Path)
	repo, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("sqlite open failed", "db_path", cfg.Database.Path, "err", err)
		env.Close()
		return nil, fmt.Errorf("open sqlite repository: %w", err)
	}
	env.repo = repo
	logger.Info("sqlite repository ready", "db_path", cfg.Database.Path, "migrations", "ensured")

	env.svc = app.NewService(repo, time.Now)
	logger.Debug("application service initialized")
	return env, nil
}

// Close releases storage and the dev log file. Close errors are logged, not returned.
func (e *runtimeEnv) Close() {
	if e == nil {
		return
	}
	if e.repo != nil {
		if err := e.repo.Close(); err != nil {
			e.logger.Warn("sqlite close failed", "db_path", e.cfg.Database.Path, "err", err)
		}
	}
	if err := e.logger.Close(); err != nil {
		e.logger.Warn("close dev log file failed", "path", e.logger.DevLogPath(), "err", err)
	}
}

// runTUI seeds an empty database and runs the grid editor.
func runTUI(ctx context.Context, opts *globalOptions, stderr io.Writer) error {
	env, err := openRuntime(opts, "tui", stderr)
	if err != nil {
		return err
	}
	defer env.Close()

	env.logger.Info("command flow start", "command", "tui")
	grid, err := env.svc.EnsureSeeded(ctx, seedFromConfig(env.cfg.Seed))
	if err != nil {
		env.logger.Error("seed grid failed", "err", err)
		return fmt.Errorf("seed grid: %w", err)
	}
	env.logger.Info("grid ready", "rows", len(grid.Rows), "columns", len(grid.Columns), "elements", len(grid.Elements))

	m := tui.NewModel(
		env.svc,
		tui.WithLogger(env.logger),
		tui.WithDragThreshold(env.cfg.Drag.Threshold),
		tui.WithShowHelp(env.cfg.UI.ShowHelp),
		tui.WithShowRegions(env.cfg.UI.ShowRegions),
		tui.WithSessionIDs(uuid.NewString),
		tui.WithKeyConfig(toTUIKeyConfig(env.cfg.Keys)),
	)

	// Runtime logs go to the dev file only while the grid owns the terminal.
	env.logger.SetConsoleEnabled(false)
	env.logger.Info("starting tui program loop")
	if _, err := programFactory(m).Run(); err != nil {
		env.logger.Error("tui program terminated with error", "err", err)
		return fmt.Errorf("run tui program: %w", err)
	}
	env.logger.Info("command flow complete", "command", "tui")
	return nil
}

// runExport writes the current snapshot to outPath, or stdout for "-".
func runExport(ctx context.Context, svc *app.Service, rawFormat, outPath string, stdout io.Writer) error {
	if strings.TrimSpace(rawFormat) == "" {
		switch strings.ToLower(filepath.Ext(outPath)) {
		case ".yaml", ".yml":
			rawFormat = string(app.FormatYAML)
		}
	}
	format, err := app.ParseFormat(rawFormat)
	if err != nil {
		return err
	}

	snap, err := svc.ExportSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("export snapshot: %w", err)
	}
	var buf bytes.Buffer
	if err := snap.Encode(&buf, format); err != nil {
		return fmt.Errorf("encode snapshot %s: %w", format, err)
	}

	if outPath == "" || outPath == "-" {
		if _, err := stdout.Write(buf.Bytes()); err != nil {
			return fmt.Errorf("write snapshot to stdout: %w", err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create export output dir: %w", err)
	}
	if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	return nil
}

// runImport replaces the stored grid with the snapshot at inPath.
func runImport(ctx context.Context, svc *app.Service, inPath string) error {
	f, err := os.Open(inPath)
	if err != nil {
		return fmt.Errorf("read import file: %w", err)
	}
	defer func() { _ = f.Close() }()

	snap, err := app.DecodeSnapshot(f)
	if err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	if err := svc.ImportSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("import snapshot: %w", err)
	}
	return nil
}

// writeHistory prints one event per line with sorted key=value metadata.
func writeHistory(out io.Writer, events []domain.ChangeEvent) error {
	if len(events) == 0 {
		_, err := fmt.Fprintln(out, "no changes recorded")
		return err
	}
	for _, event := range events {
		keys := slices.Sorted(maps.Keys(event.Metadata))
		pairs := make([]string, 0, len(keys))
		for _, key := range keys {
			pairs = append(pairs, key+"="+strconv.Quote(event.Metadata[key]))
		}
		line := fmt.Sprintf("%s  %-7s  %-10s  %s", event.OccurredAt.Format(time.RFC3339), event.Operation, event.Subject(), strings.Join(pairs, " "))
		if _, err := fmt.Fprintln(out, strings.TrimRight(line, " ")); err != nil {
			return fmt.Errorf("write history: %w", err)
		}
	}
	return nil
}

// runResolve resolves a single tick object or an array of ticks. An array
// shares one session, so later ticks fall back to earlier resolutions.
func runResolve(in io.Reader, out io.Writer) error {
	raw, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read ticks: %w", err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return fmt.Errorf("no tick input")
	}

	var ticks []dnd.Args
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &ticks); err != nil {
			return fmt.Errorf("decode ticks: %w", err)
		}
	} else {
		var tick dnd.Args
		if err := json.Unmarshal(raw, &tick); err != nil {
			return fmt.Errorf("decode tick: %w", err)
		}
		ticks = append(ticks, tick)
	}

	session := dnd.NewSession(uuid.NewString(), dnd.Target{})
	for _, tick := range ticks {
		target, ok := dnd.Resolve(session, tick)
		line := "(empty)"
		if ok {
			line = target.String()
		}
		if _, err := fmt.Fprintln(out, line); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
	}
	return nil
}

// seedFromConfig maps the [seed] section onto the service seed.
func seedFromConfig(cfg config.SeedConfig) app.Seed {
	seed := app.Seed{
		Rows:    append([]string(nil), cfg.Rows...),
		Columns: append([]string(nil), cfg.Columns...),
	}
	for _, elem := range cfg.Elements {
		seed.Elements = append(seed.Elements, app.SeedElement{
			Name:   elem.Name,
			Column: elem.Column,
			Row:    elem.Row,
		})
	}
	return seed
}

// toTUIKeyConfig maps the [keys] section onto model bindings.
func toTUIKeyConfig(cfg config.KeyConfig) tui.KeyConfig {
	return tui.KeyConfig{
		PickUp:     cfg.PickUp,
		Drop:       cfg.Drop,
		Cancel:     cfg.Cancel,
		NewElement: cfg.NewElement,
		Rename:     cfg.Rename,
		Delete:     cfg.Delete,
		Copy:       cfg.Copy,
	}
}

// parseBoolEnv reads a boolean env var; ok is false when unset or malformed.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
