// Package main provides the CLI entrypoint for tuimeter.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verte-zerg/tuimeter/internal/backend"
	"github.com/verte-zerg/tuimeter/internal/config"
	"github.com/verte-zerg/tuimeter/internal/meter"
	"github.com/verte-zerg/tuimeter/internal/meterui"
	"github.com/verte-zerg/tuimeter/internal/model"
	"github.com/verte-zerg/tuimeter/internal/store"
	"github.com/verte-zerg/tuimeter/internal/synergy"
)

const (
	defaultBackendURL  = "ws://127.0.0.1:1338/ws"
	defaultTab         = "damage"
	defaultShieldTab   = "given"
	defaultChartHeight = 12
)

// uiAnnotation marks commands that own the terminal; their logs go to a file.
const uiAnnotation = "ui"

var (
	logger  = zap.NewNop()
	verbose bool

	meterBackendURL  string
	meterTab         string
	meterShieldTab   string
	meterFocus       string
	meterTables      string
	meterChartHeight int

	historyDB       string
	historyAutoSave bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "tuimeter",
		Short:             "Terminal damage meter",
		SilenceUsage:      true,
		SilenceErrors:     false,
		Annotations:       map[string]string{uiAnnotation: "true"},
		PersistentPreRunE: setupLogger,
		PersistentPostRun: syncLogger,
		RunE:              runLiveCmd,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&historyDB, "db", config.DefaultDBPath(), "encounter history database")
	addMeterFlags(rootCmd)
	rootCmd.Flags().StringVar(&meterBackendURL, "backend-url", defaultBackendURL, "backend websocket URL")
	rootCmd.Flags().BoolVar(&historyAutoSave, "auto-save", true, "store encounters on save-encounter events")

	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newShowCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newEncountersCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func addMeterFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&meterTab, "tab", defaultTab, "initial tab (damage, party-buffs, self-buffs, tank)")
	cmd.Flags().StringVar(&meterShieldTab, "shield-tab", defaultShieldTab, "shield metric (given, received, absorbed-on-others, absorbed)")
	cmd.Flags().StringVar(&meterFocus, "focus", "", "focused player name")
	cmd.Flags().StringVar(&meterTables, "tables", config.DefaultTablesPath(), "synergy tables override (YAML)")
	cmd.Flags().IntVar(&meterChartHeight, "chart-height", defaultChartHeight, "DPS chart height in rows")
}

func setupLogger(cmd *cobra.Command, _ []string) error {
	logPath := ""
	if cmd.Annotations[uiAnnotation] == "true" {
		logPath = config.DefaultLogPath()
	}
	l, err := newLogger(logPath, verbose)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	logger = l
	return nil
}

func syncLogger(_ *cobra.Command, _ []string) {
	if err := logger.Sync(); err != nil {
		// Best-effort flush; stderr does not support sync on every platform.
		_ = err
	}
}

// newLogger builds a production logger writing to path, or stderr when path is empty.
func newLogger(path string, debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else if path == "" {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		cfg.OutputPaths = []string{path}
		cfg.ErrorOutputPaths = []string{path}
	}
	return cfg.Build()
}

// resolveMeterConfig merges the config file into flags the user did not set.
func resolveMeterConfig(cmd *cobra.Command) (model.Config, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return model.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "backend-url", &meterBackendURL, fileCfg.Meter.BackendURL)
	applyStringConfig(cmd, "tab", &meterTab, fileCfg.Meter.Tab)
	applyStringConfig(cmd, "shield-tab", &meterShieldTab, fileCfg.Meter.ShieldTab)
	applyStringConfig(cmd, "focus", &meterFocus, fileCfg.Meter.Focus)
	applyStringConfig(cmd, "tables", &meterTables, fileCfg.Meter.Tables)
	applyIntConfig(cmd, "chart-height", &meterChartHeight, fileCfg.Meter.ChartHeight)
	applyHistoryConfig(cmd, fileCfg)

	tab, ok := model.ParseTab(meterTab)
	if !ok {
		return model.Config{}, fmt.Errorf("--tab must be one of damage, party-buffs, self-buffs, tank")
	}
	shieldTab, ok := model.ParseShieldTab(meterShieldTab)
	if !ok {
		return model.Config{}, fmt.Errorf("--shield-tab must be one of given, received, absorbed-on-others, absorbed")
	}
	if meterChartHeight <= 0 {
		return model.Config{}, fmt.Errorf("--chart-height must be > 0")
	}
	return model.Config{
		BackendURL:  meterBackendURL,
		Tab:         tab,
		ShieldTab:   shieldTab,
		Focus:       strings.TrimSpace(meterFocus),
		TablesPath:  meterTables,
		ChartHeight: meterChartHeight,
	}, nil
}

// loadHistoryConfig merges the [history] section for commands without meter flags.
func loadHistoryConfig(cmd *cobra.Command) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyHistoryConfig(cmd, fileCfg)
	return nil
}

func applyHistoryConfig(cmd *cobra.Command, fileCfg config.FileConfig) {
	applyStringConfig(cmd, "db", &historyDB, fileCfg.History.DB)
	applyBoolConfig(cmd, "auto-save", &historyAutoSave, fileCfg.History.AutoSave)
	applyIntConfig(cmd, "last", &encountersLast, fileCfg.History.Last)
}

// newMeter loads the lookup tables and applies the initial view context.
// A missing default tables file falls back to the embedded tables.
func newMeter(cfg model.Config) (*meter.Meter, error) {
	path := cfg.TablesPath
	if path == config.DefaultTablesPath() {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			path = ""
		}
	}
	tables, err := synergy.LoadTables(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load synergy tables: %w", err)
	}
	m := meter.New(tables)
	m.SetTab(cfg.Tab)
	m.SetShieldTab(cfg.ShieldTab)
	m.Focus(cfg.Focus)
	return m, nil
}

func openStore() (*store.Store, error) {
	st, err := store.Open(historyDB)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	return st, nil
}

func closeStore(st *store.Store) {
	if st == nil {
		return
	}
	if cerr := st.Close(); cerr != nil {
		logErrf("failed to close db: %v\n", cerr)
	}
}

func runLiveCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveMeterConfig(cmd)
	if err != nil {
		return err
	}
	m, err := newMeter(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := backend.Dial(ctx, cfg.BackendURL, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := client.Close(); cerr != nil {
			// Best-effort close.
			_ = cerr
		}
	}()

	var st *store.Store
	if historyAutoSave {
		st, err = openStore()
		if err != nil {
			return err
		}
		defer closeStore(st)
	}

	return runUI(ctx, m, client, meterui.Options{
		Source:      client,
		Controller:  client,
		Store:       st,
		Logger:      logger,
		ChartHeight: cfg.ChartHeight,
	}, func(ctx context.Context) {
		raw, err := client.CurrentEncounter(ctx)
		if err != nil {
			logger.Warn("failed to fetch current encounter", zap.Error(err))
			return
		}
		if len(raw) == 0 || string(raw) == "null" {
			return
		}
		if err := m.Handle(backend.Event{Name: backend.EventEncounterUpdate, Payload: raw}); err != nil {
			logger.Warn("failed to decode current encounter", zap.Error(err))
		}
	})
}

// runUI runs src in the background while the meter UI owns the terminal.
// prime runs after src has started and before the UI is shown.
func runUI(ctx context.Context, m *meter.Meter, src backend.Source, opts meterui.Options, prime func(context.Context)) error {
	ctx, cancel := context.WithCancel(ctx)
	srcDone := make(chan error, 1)
	go func() {
		srcDone <- src.Run(ctx)
	}()
	defer func() {
		cancel()
		if err := <-srcDone; err != nil {
			logger.Warn("event source stopped", zap.Error(err))
		}
	}()

	if prime != nil {
		prime(ctx)
	}

	ui := meterui.NewModel(m, opts)
	program := tea.NewProgram(ui, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "watch <snapshot.json>",
		Short:       "Show a snapshot file and follow its changes",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{uiAnnotation: "true"},
		RunE:        runWatchCmd,
	}
	addMeterFlags(cmd)
	return cmd
}

func runWatchCmd(cmd *cobra.Command, args []string) error {
	cfg, err := resolveMeterConfig(cmd)
	if err != nil {
		return err
	}
	m, err := newMeter(cfg)
	if err != nil {
		return err
	}
	path := args[0]
	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to stat snapshot directory: %w", err)
	}
	src := backend.NewFileSource(path, logger)
	return runUI(context.Background(), m, src, meterui.Options{
		Source:      src,
		Logger:      logger,
		ChartHeight: cfg.ChartHeight,
	}, nil)
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if flagChanged(cmd, name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if flagChanged(cmd, name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if flagChanged(cmd, name) {
		return
	}
	*target = *value
}

// flagChanged also sees persistent flags inherited from the root.
func flagChanged(cmd *cobra.Command, name string) bool {
	if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
		return true
	}
	if f := cmd.InheritedFlags().Lookup(name); f != nil && f.Changed {
		return true
	}
	return false
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# tuimeter configuration
# Uncomment a value to enable it. CLI flags override config values.

[meter]
# backend-url = %q   # Backend websocket URL
# tab = %q                          # damage, party-buffs, self-buffs, tank
# shield-tab = %q                    # given, received, absorbed-on-others, absorbed
# focus = ""                              # Focused player name
# tables = %q   # Synergy tables override (YAML)
# chart-height = %d                       # DPS chart height in rows

[history]
# db = %q   # Encounter history database
# auto-save = true                        # Store encounters on save-encounter events
# last = 20                               # Encounters listed by default
`,
		defaultBackendURL,
		defaultTab,
		defaultShieldTab,
		config.DefaultTablesPath(),
		defaultChartHeight,
		config.DefaultDBPath(),
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
