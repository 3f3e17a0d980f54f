package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/zebadrabbit/Clippy-Front-sub002/internal/config"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the local job queue",
	}

	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))

	return queueCmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show job counts by lifecycle state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return fmt.Errorf("queue stats: %w", err)
				}
				workers, err := store.Workers(cmd.Context())
				if err != nil {
					return fmt.Errorf("list workers: %w", err)
				}

				out := cmd.OutOrStdout()
				colorize := isatty.IsTerminal(os.Stdout.Fd())

				total := 0
				rows := make([][]string, 0, len(queue.AllStatuses()))
				for _, status := range queue.AllStatuses() {
					count := stats[status]
					total += count
					rows = append(rows, []string{
						colorStatus(string(status), status, colorize),
						strconv.Itoa(count),
					})
				}
				fmt.Fprintln(out, renderTable([]string{"Status", "Jobs"}, rows, 1))
				fmt.Fprintf(out, "Total jobs: %d\n", total)

				fmt.Fprintf(out, "Registered workers: %d\n", len(workers))
				for _, w := range workers {
					fmt.Fprintf(out, "  %s (tag %s) serving %s, last seen %s\n",
						w.Name, orDash(w.VersionTag), strings.Join(w.Queues, ","),
						w.LastSeen.Local().Format(time.RFC3339))
				}
				return nil
			})
		},
	}
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List compilation jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				var statuses []queue.Status
				if trimmed := strings.TrimSpace(statusFilter); trimmed != "" {
					for _, raw := range strings.Split(trimmed, ",") {
						status, ok := queue.ParseStatus(raw)
						if !ok {
							return fmt.Errorf("unknown status %q", raw)
						}
						statuses = append(statuses, status)
					}
				}

				jobs, err := store.List(cmd.Context(), statuses...)
				if err != nil {
					return fmt.Errorf("list jobs: %w", err)
				}
				out := cmd.OutOrStdout()
				if len(jobs) == 0 {
					fmt.Fprintln(out, "Queue is empty")
					return nil
				}

				colorize := isatty.IsTerminal(os.Stdout.Fd())
				rows := make([][]string, 0, len(jobs))
				for _, job := range jobs {
					detail := job.ProgressMessage
					if job.Status == queue.StatusFailed {
						detail = job.ErrorMessage
					}
					rows = append(rows, []string{
						strconv.FormatInt(job.ID, 10),
						job.ProjectID,
						job.Queue,
						colorStatus(string(job.Status), job.Status, colorize),
						fmt.Sprintf("%.0f%%", job.ProgressPercent),
						truncate(detail, 48),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Project", "Queue", "Status", "Progress", "Detail"},
					rows, 0, 4))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&statusFilter, "status", "", "Comma-separated status filter (e.g. pending,failed)")
	return cmd
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [job-id...]",
		Short: "Return failed jobs to pending",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
				if err != nil {
					return fmt.Errorf("invalid job id %q", arg)
				}
				ids = append(ids, id)
			}
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				retried, err := store.RetryFailed(cmd.Context(), ids...)
				if err != nil {
					return fmt.Errorf("retry failed jobs: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Retried %d job(s)\n", retried)
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var completedOnly bool
	var failedOnly bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove jobs from the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			if completedOnly && failedOnly {
				return fmt.Errorf("--completed and --failed are mutually exclusive")
			}
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				var removed int64
				var err error
				switch {
				case completedOnly:
					removed, err = store.ClearCompleted(cmd.Context())
				case failedOnly:
					removed, err = store.ClearFailed(cmd.Context())
				default:
					removed, err = store.Clear(cmd.Context())
				}
				if err != nil {
					return fmt.Errorf("clear queue: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d job(s)\n", removed)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&completedOnly, "completed", false, "Only remove completed jobs")
	cmd.Flags().BoolVar(&failedOnly, "failed", false, "Only remove failed jobs")
	return cmd
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Run queue database diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				health, err := store.CheckHealth(cmd.Context())
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Database: %s\n", health.DBPath)
				fmt.Fprintf(out, "  exists: %s  readable: %s  jobs table: %s\n",
					yesNo(health.DatabaseExists), yesNo(health.DatabaseReadable), yesNo(health.TableExists))
				fmt.Fprintf(out, "  integrity: %s  total jobs: %d\n", yesNo(health.IntegrityCheck), health.TotalJobs)
				if len(health.MissingColumns) > 0 {
					fmt.Fprintf(out, "  missing columns: %s\n", strings.Join(health.MissingColumns, ", "))
				}
				if err != nil {
					return fmt.Errorf("queue health: %w", err)
				}
				return nil
			})
		},
	}
}

func colorStatus(label string, status queue.Status, colorize bool) string {
	if !colorize {
		return label
	}
	const reset = "\x1b[0m"
	switch status {
	case queue.StatusCompleted:
		return "\x1b[32m" + label + reset
	case queue.StatusFailed:
		return "\x1b[31m" + label + reset
	case queue.StatusPending:
		return "\x1b[33m" + label + reset
	default:
		return "\x1b[34m" + label + reset
	}
}

func truncate(value string, limit int) string {
	if limit <= 0 || len(value) <= limit {
		return value
	}
	if limit <= 3 {
		return value[:limit]
	}
	return value[:limit-3] + "..."
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
