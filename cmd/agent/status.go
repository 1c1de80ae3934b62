package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	appoffline "github.com/distribuidora/backend/internal/application/offline"
	"github.com/distribuidora/backend/internal/domain/offline"
	"github.com/olekukonko/tablewriter"
)

const maxErrorWidth = 60

// statusesShown are the statuses whose operations are listed; completed ones
// only appear in the summary
var statusesShown = []offline.Status{offline.StatusProcessing, offline.StatusPending, offline.StatusFailed}

func printStatus(ctx context.Context, w io.Writer, queue *appoffline.QueueService, limit int) error {
	stats, err := queue.Stats(ctx)
	if err != nil {
		return err
	}
	var ops []*offline.Operation
	for _, status := range statusesShown {
		page, err := queue.List(ctx, status, limit)
		if err != nil {
			return err
		}
		ops = append(ops, page...)
	}
	return renderStatus(w, stats, ops, time.Now())
}

func renderStatus(w io.Writer, stats offline.Stats, ops []*offline.Operation, now time.Time) error {
	summary := tablewriter.NewWriter(w)
	summary.Header("Status", "Operations")
	for _, status := range offline.AllStatuses {
		if err := summary.Append([]string{string(status), strconv.FormatInt(stats[status], 10)}); err != nil {
			return err
		}
	}
	if err := summary.Append([]string{"total", strconv.FormatInt(stats.Total(), 10)}); err != nil {
		return err
	}
	if err := summary.Render(); err != nil {
		return err
	}

	if len(ops) == 0 {
		_, err := fmt.Fprintln(w, "Queue is empty")
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header("ID", "Type", "Status", "Attempts", "Age", "Last error")
	for _, op := range ops {
		row := []string{
			op.ID.String()[:8],
			op.OperationType,
			string(op.Status),
			strconv.Itoa(op.Attempts),
			now.Sub(op.EnqueuedAt).Truncate(time.Second).String(),
			truncate(op.LastError, maxErrorWidth),
		}
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
