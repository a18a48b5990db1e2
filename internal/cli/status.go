//-------------------------------------------------------------------------
//
// pgEdge Retail Data Warehouse
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-retaildw/internal/warehouse"
)

var statusBatches int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show watermarks and recent load history",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().IntVar(&statusBatches, "batches", 10,
		"number of recent batches to show")
}

func runStatus(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := context.Background()
	store, err := warehouse.Open(ctx, cfg.Connection)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer store.Close()

	marks, err := store.Watermarks(ctx)
	if err != nil {
		return err
	}
	if len(marks) == 0 {
		cmd.Println("No loads have committed yet.")
	} else {
		cmd.Println("Watermarks:")
		for _, w := range marks {
			cmd.Printf("  %-16s %s  invoice %-10s  processed %d  rejected %d\n",
				w.Source, w.Cursor.Timestamp.Format("2006-01-02 15:04:05"),
				w.Cursor.Invoice, w.RowsProcessed, w.RowsRejected)
		}
	}

	runs, err := store.RecentBatches(ctx, statusBatches)
	if err != nil {
		return err
	}
	if len(runs) > 0 {
		cmd.Println()
		cmd.Println("Recent batches:")
		for _, r := range runs {
			finished := "running"
			if r.FinishedAt != nil {
				finished = r.FinishedAt.Format("15:04:05")
			}
			cmd.Printf("  %s  %-8s %-16s %-7s  read %-7d ins %-7d skip %-6d rej %-5d %s\n",
				r.StartedAt.Format("2006-01-02 15:04:05"), finished, r.Source, r.Status,
				r.RowsRead, r.RowsInserted, r.RowsSkipped, r.RowsRejected, r.Error)
		}
	}
	return nil
}
