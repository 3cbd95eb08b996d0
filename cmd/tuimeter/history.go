package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verte-zerg/tuimeter/internal/meter"
	"github.com/verte-zerg/tuimeter/internal/model"
	"github.com/verte-zerg/tuimeter/internal/stats"
	"github.com/verte-zerg/tuimeter/internal/store"
)

const chartTab = "chart"

var (
	showWidth int
	showColor bool
	showJSON  bool

	encountersBoss   string
	encountersPlayer string
	encountersSince  string
	encountersLast   int
)

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [id]",
		Short: "Print a stored encounter (latest by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runShowCmd,
	}
	addMeterFlags(cmd)
	cmd.Flags().Lookup("tab").Usage = "tab to print (damage, party-buffs, self-buffs, tank, chart)"
	cmd.Flags().IntVar(&showWidth, "width", 0, "chart width (default: terminal width)")
	cmd.Flags().BoolVar(&showColor, "color", false, "force colored chart output")
	cmd.Flags().BoolVar(&showJSON, "json", false, "print the stored snapshot JSON as received")
	return cmd
}

func runShowCmd(cmd *cobra.Command, args []string) error {
	var id int64
	if len(args) == 1 {
		parsed, err := parseID(args[0])
		if err != nil {
			return err
		}
		id = parsed
	}
	if showJSON {
		if err := loadHistoryConfig(cmd); err != nil {
			return err
		}
		return writeRawEncounter(cmd.OutOrStdout(), id)
	}

	// The chart is not a meter tab; resolve the rest as damage.
	chart := meterTab == chartTab
	if chart {
		meterTab = defaultTab
	}
	cfg, err := resolveMeterConfig(cmd)
	if err != nil {
		return err
	}
	m, err := newMeter(cfg)
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	report, err := stats.BuildReport(context.Background(), st, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no stored encounter found (import one with: tuimeter import <file>)")
		}
		return fmt.Errorf("failed to load encounter: %w", err)
	}
	m.Replace(report.Encounter)

	w := cmd.OutOrStdout()
	if _, err := fmt.Fprintf(w, "#%d  %s\n", report.Preview.ID,
		time.UnixMilli(report.Preview.FightStart).Format("2006-01-02 15:04")); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := stats.RenderHeader(w, report.Encounter); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := writeView(w, m.View(), chart, cfg.ChartHeight); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func writeRawEncounter(w io.Writer, id int64) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	ctx := context.Background()
	if id == 0 {
		if id, err = st.LatestID(ctx); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("no stored encounter found (import one with: tuimeter import <file>)")
			}
			return fmt.Errorf("failed to load encounter: %w", err)
		}
	}
	raw, err := st.RawEncounter(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("encounter #%d not found", id)
		}
		return fmt.Errorf("failed to load encounter: %w", err)
	}
	if _, err := fmt.Fprintln(w, string(raw)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func writeView(w io.Writer, v *meter.View, chart bool, chartHeight int) error {
	if chart {
		return stats.RenderDPSChart(w, v.Players, showWidth, chartHeight, showColor)
	}
	var durationMs int64
	if v.Encounter != nil {
		durationMs = v.Encounter.Duration
	}
	switch v.Tab {
	case model.TabPartyBuffs:
		return stats.RenderBuffTable(w, v.BuffTable("Party Buffs"))
	case model.TabSelfBuffs:
		if err := stats.RenderBuffTable(w, v.BuffTable("Self Buffs")); err != nil {
			return err
		}
		if v.Focused == nil {
			return nil
		}
		if _, err := fmt.Fprintf(w, "Skills of %s\n", v.Focused.Name); err != nil {
			return err
		}
		return stats.RenderSkillBuffs(w, v.Grouped, v.Skills, v.SkillKeys, v.SkillDetails)
	case model.TabTank:
		return stats.RenderBuffTable(w, v.BuffTable("Shields "+v.ShieldTab.String()))
	}
	return stats.RenderDamageTable(w, v.Parties, durationMs)
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <snapshot.json>...",
		Short: "Store encounter snapshots in the history database",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runImportCmd,
	}
}

func runImportCmd(cmd *cobra.Command, args []string) error {
	if err := loadHistoryConfig(cmd); err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	ctx := context.Background()
	failed := 0
	for _, path := range args {
		id, err := importFile(ctx, st, path)
		if err != nil {
			logger.Warn("import failed", zap.String("path", path), zap.Error(err))
			logErrf("Skipping %s: %v\n", path, err)
			failed++
			continue
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Imported %s as #%d\n", path, id); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d snapshots failed to import", failed, len(args))
	}
	return nil
}

func importFile(ctx context.Context, st *store.Store, path string) (int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read snapshot: %w", err)
	}
	if !json.Valid(data) {
		return 0, fmt.Errorf("snapshot is not valid JSON")
	}
	return st.InsertEncounter(ctx, json.RawMessage(data))
}

func newEncountersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encounters",
		Short: "List stored encounters",
		Args:  cobra.NoArgs,
		RunE:  runEncountersCmd,
	}
	cmd.Flags().StringVar(&encountersBoss, "boss", "", "boss name filter")
	cmd.Flags().StringVar(&encountersPlayer, "player", "", "only encounters with this player")
	cmd.Flags().StringVar(&encountersSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&encountersLast, "last", 0, "limit to last N encounters")
	cmd.AddCommand(newDeleteCmd())
	return cmd
}

func runEncountersCmd(cmd *cobra.Command, _ []string) error {
	if err := loadHistoryConfig(cmd); err != nil {
		return err
	}

	filter := model.HistoryFilter{
		Boss:   encountersBoss,
		Player: strings.TrimSpace(encountersPlayer),
		Last:   encountersLast,
	}
	if encountersSince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", encountersSince, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		filter.Since = parsed.UnixMilli()
	}
	if filter.Last < 0 {
		return fmt.Errorf("--last must be >= 0")
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	previews, err := st.ListEncounters(context.Background(), filter)
	if err != nil {
		return fmt.Errorf("failed to list encounters: %w", err)
	}
	if err := stats.RenderEncounterList(cmd.OutOrStdout(), previews); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored encounter",
		Args:  cobra.ExactArgs(1),
		RunE:  runDeleteCmd,
	}
}

func runDeleteCmd(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if err := loadHistoryConfig(cmd); err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	if err := st.DeleteEncounter(context.Background(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("encounter #%d not found", id)
		}
		return fmt.Errorf("failed to delete encounter: %w", err)
	}
	logErrf("Deleted encounter #%d\n", id)
	return nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid encounter id %q", s)
	}
	return id, nil
}
