package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/gwillem/pathtrack/pkg/config"
	"github.com/gwillem/pathtrack/pkg/storage"
	"github.com/gwillem/pathtrack/pkg/trajectory"
)

type RunsCommand struct {
	Config string `long:"config" short:"c" default:"pathtrack.yaml" description:"Configuration file naming the database"`
	DB     string `long:"db" description:"SQLite database (overrides config)"`
	Plot   int64  `long:"plot" value-name:"ID" description:"Plot the stored run with this ID"`
	Out    string `long:"out" default:"run.png" description:"Output file for --plot"`
}

func (c *RunsCommand) database() (string, error) {
	if c.DB != "" {
		return c.DB, nil
	}
	if config.Exists(c.Config) {
		cfg, err := config.LoadConfigFrom(c.Config)
		if err != nil {
			return "", err
		}
		if cfg.Output.Database != "" {
			return cfg.Output.Database, nil
		}
	}
	return "", errors.New("no database configured, pass --db or set output.database")
}

func (c *RunsCommand) Execute(args []string) error {
	db, err := c.database()
	if err != nil {
		return err
	}
	if !config.Exists(db) {
		return errors.Errorf("database %s does not exist", db)
	}

	store := storage.New(db)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	if c.Plot > 0 {
		return plotRun(ctx, store, c.Plot, c.Out)
	}

	runs, err := store.Runs(ctx)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs stored yet.")
		return nil
	}

	info, err := os.Stat(db)
	if err != nil {
		return err
	}
	fmt.Println(headerStyle.Render(db) + " " + dimStyle.Render(humanize.Bytes(uint64(info.Size()))))
	fmt.Println(renderRuns(runs, time.Now()))
	return nil
}

func plotRun(ctx context.Context, store *storage.Store, id int64, out string) error {
	run, err := store.Run(ctx, id)
	if err != nil {
		return err
	}
	samples, err := store.Samples(ctx, id)
	if err != nil {
		return err
	}
	reference, err := store.Waypoints(ctx, id)
	if err != nil {
		return err
	}

	title := fmt.Sprintf("Run %d: %s (%s / %s)", run.ID, run.PathSource, run.Steering, run.SpeedProfile)
	if err := trajectory.Plot(out, title, trajectory.Positions(samples), reference); err != nil {
		return err
	}
	fmt.Printf("Plot of run %d written to %s\n", id, out)
	return nil
}

func runStatus(r storage.Run) string {
	switch {
	case r.Error.Valid:
		return "failed"
	case r.EndTime.Valid:
		return "complete"
	default:
		return "running"
	}
}

func renderRuns(runs []storage.Run, now time.Time) string {
	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableIDStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	tableCellStyle := lipgloss.NewStyle().Padding(0, 1)
	tableGoodStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Padding(0, 1)
	tableBadStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(0, 1)

	rows := make([][]string, 0, len(runs))
	statuses := make([]string, 0, len(runs))
	for _, r := range runs {
		duration := "-"
		if r.EndTime.Valid {
			duration = r.EndTime.Time.Sub(r.StartTime).Round(time.Millisecond).String()
		}
		mode := "fixed " + strconv.FormatFloat(r.LookAhead, 'f', 2, 64)
		if r.Adaptive {
			mode = "adaptive"
		}
		status := runStatus(r)
		statuses = append(statuses, status)
		rows = append(rows, []string{
			strconv.FormatInt(r.ID, 10),
			humanize.RelTime(r.StartTime, now, "ago", "from now"),
			r.PathSource,
			r.Steering,
			r.SpeedProfile,
			mode,
			humanize.Comma(r.Cycles.Int64),
			duration,
			status,
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("ID", "Started", "Path", "Steering", "Speed", "Look-ahead", "Cycles", "Duration", "Status").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			switch col {
			case 0:
				return tableIDStyle
			case 8:
				if row >= 0 && row < len(statuses) && statuses[row] == "failed" {
					return tableBadStyle
				}
				return tableGoodStyle
			default:
				return tableCellStyle
			}
		})

	return t.Render()
}
