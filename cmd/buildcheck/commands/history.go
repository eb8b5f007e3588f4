package commands

import (
	"context"
	"fmt"
	"time"

	"git.home.luguber.info/inful/buildcheck/internal/runstore"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	RunID string `arg:"" optional:"" help:"Run to show in detail (lists recent runs otherwise)"`
	Limit int    `default:"20" help:"Maximum number of runs to list"`
}

func (h *HistoryCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}

	store, err := runstore.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer func() {
		_ = store.Close()
	}()

	ctx := context.Background()
	if h.RunID != "" {
		return showRun(ctx, store, h.RunID)
	}
	return listRuns(ctx, store, h.Limit)
}

func listRuns(ctx context.Context, store *runstore.Store, limit int) error {
	rows, err := store.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("No recorded runs")
		return nil
	}
	for _, row := range rows {
		fmt.Println(formatRunRow(row))
	}
	return nil
}

func showRun(ctx context.Context, store *runstore.Store, runID string) error {
	row, cells, err := store.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	fmt.Println(formatRunRow(row))
	for _, cell := range cells {
		fmt.Println(formatCellRow(cell))
	}
	return nil
}

// formatRunRow renders one run as a fixed-order line that stays grep-friendly.
func formatRunRow(row runstore.RunRow) string {
	return fmt.Sprintf("%s  %s  %s %s  %d/%d %s",
		row.Started.Format(time.RFC3339), shortID(row.RunID), row.Package, row.Version,
		row.Passed, row.Total, row.Outcome)
}

func formatCellRow(cell runstore.CellRow) string {
	status := "passed"
	if !cell.Passed {
		status = "failed at " + cell.FailedStage
	}
	return fmt.Sprintf("  %-16s %s (%dms)", cell.Cell, status, cell.DurationMS)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
