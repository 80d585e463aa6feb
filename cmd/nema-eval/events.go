package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nemaeval/nema-eval/internal/bus"
)

func eventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect, replay and follow evaluation events",
		Long: `Read the events recorded at bus.event_log_path (NEMA_EVENT_LOG_PATH),
or follow them live on a shared bus.

Examples:
  nema-eval events list --run 5f0c...
  nema-eval events replay --since 1h
  nema-eval events follow --run nightly-42`,
	}

	cmd.PersistentFlags().String("run", "", "only events of this run id")
	cmd.PersistentFlags().Duration("since", 0, "only events newer than this (e.g. 30m)")
	cmd.PersistentFlags().Int("limit", 0, "maximum number of events (0 = all)")

	cmd.AddCommand(eventsListCmd(), eventsReplayCmd(), eventsFollowCmd())
	return cmd
}

func eventFilter(cmd *cobra.Command) bus.EventFilter {
	var f bus.EventFilter
	f.RunID, _ = cmd.Flags().GetString("run")
	f.Limit, _ = cmd.Flags().GetInt("limit")
	if since, _ := cmd.Flags().GetDuration("since"); since > 0 {
		f.Since = time.Now().Add(-since)
	}
	return f
}

func eventLogPath(a *app) (string, error) {
	if a.cfg.Bus.EventLogPath == "" {
		return "", fmt.Errorf("event log is disabled; set bus.event_log_path or NEMA_EVENT_LOG_PATH")
	}
	return a.cfg.Bus.EventLogPath, nil
}

func eventsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List logged events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			path, err := eventLogPath(a)
			if err != nil {
				return err
			}
			events, err := bus.ReadEvents(path, eventFilter(cmd))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if format, _ := cmd.Flags().GetString("format"); format == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(events)
			}
			if len(events) == 0 {
				fmt.Fprintln(out, "No events.")
				return nil
			}

			headers := []string{"Time", "Topic", "Run", "Event"}
			rows := make([][]string, 0, len(events))
			for _, e := range events {
				rows = append(rows, []string{
					e.Timestamp.Local().Format(time.DateTime),
					e.Topic,
					e.Event.CorrelationID,
					e.Event.ID,
				})
			}
			fmt.Fprintln(out, renderTable(headers, rows, nil))
			return nil
		},
	}
}

func eventsReplayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replay",
		Short: "Publish logged events to the configured bus again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			path, err := eventLogPath(a)
			if err != nil {
				return err
			}

			// Replaying through a LoggedBus would append to the log being read.
			a.cfg.Bus.EventLogPath = ""
			b, err := a.openBus()
			if err != nil {
				return err
			}
			if b == nil {
				return fmt.Errorf("event bus is disabled; set bus.type or NEMA_BUS_TYPE")
			}

			n, err := bus.Replay(cmd.Context(), path, b, eventFilter(cmd))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Replayed %d events\n", n)
			return nil
		},
	}
}

func eventsFollowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "follow",
		Short: "Print evaluation events as they arrive on the bus",
		Long: `Subscribe to fold and run completion events and print each one as it
arrives. With --run, only that run's events are printed and the command
exits once the run completes. Otherwise it runs until interrupted.

Following needs a bus shared between processes (bus.type kafka).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.cfg.Bus.Type != "kafka" {
				return fmt.Errorf("events follow needs a shared bus; set bus.type to kafka (current: %q)", a.cfg.Bus.Type)
			}
			// Following must not append to the event log.
			a.cfg.Bus.EventLogPath = ""
			b, err := a.openBus()
			if err != nil {
				return err
			}

			runID, _ := cmd.Flags().GetString("run")
			format, _ := cmd.Flags().GetString("format")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return followEvents(ctx, b, a.cfg.Bus.TopicPrefix, runID, format == "json", cmd.OutOrStdout())
		},
	}
}

// followEvents prints events from b until ctx ends or, when runID is set,
// until that run completes.
func followEvents(ctx context.Context, b bus.Bus, prefix, runID string, jsonOut bool, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := subscribeEvents(ctx, b, prefix, runID, jsonOut, out, cancel); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

// subscribeEvents registers the printing handler. done is called after the
// completion event of runID has been printed.
func subscribeEvents(ctx context.Context, b bus.Bus, prefix, runID string, jsonOut bool, out io.Writer, done func()) error {
	var mu sync.Mutex
	return bus.Follow(ctx, b, prefix, func(_ context.Context, e bus.Event) error {
		if runID != "" && e.CorrelationID != runID {
			return nil
		}

		line, err := formatEvent(e, jsonOut)
		if err != nil {
			return err
		}
		mu.Lock()
		fmt.Fprintln(out, line)
		mu.Unlock()

		if runID != "" && e.Type == bus.TopicRunCompleted {
			done()
		}
		return nil
	})
}

// formatEvent renders one event as a single line.
func formatEvent(e bus.Event, jsonOut bool) (string, error) {
	if jsonOut {
		data, err := json.Marshal(e)
		if err != nil {
			return "", fmt.Errorf("encode event %s: %w", e.ID, err)
		}
		return string(data), nil
	}

	ts := time.UnixMilli(e.Timestamp).Local().Format(time.DateTime)
	switch e.Type {
	case bus.TopicFoldCompleted:
		var p bus.FoldCompletedPayload
		if err := bus.DecodePayload(e, &p); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s  fold completed  run=%s job=%s fold=%s tracks=%d/%d",
			ts, p.RunID, p.JobID, p.Fold, p.Evaluated, p.Expected), nil
	case bus.TopicRunCompleted:
		var p bus.RunCompletedPayload
		if err := bus.DecodePayload(e, &p); err != nil {
			return "", err
		}
		jobs := make([]string, 0, len(p.Jobs))
		for _, j := range p.Jobs {
			jobs = append(jobs, j.ID)
		}
		return fmt.Sprintf("%s  run completed   run=%s experiment=%s task=%s jobs=%s",
			ts, p.RunID, p.Experiment, p.Task, strings.Join(jobs, ",")), nil
	default:
		return fmt.Sprintf("%s  %s  run=%s id=%s", ts, e.Type, e.CorrelationID, e.ID), nil
	}
}
