package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ai-videos-backend/internal/models"
	"ai-videos-backend/internal/poller"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch <project-id>",
		Short: "Poll a project until no scene is waiting on image generation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			project, err := client.GetProject(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if interval <= 0 {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				interval = cfg.pollInterval
			}
			return watchProject(cmd, client, project, interval, ctx.jsonOutput())
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "Polling interval (default from config, 5s)")
	return cmd
}

// watchProject polls until every requested scene settles or the user
// interrupts, printing a line per update.
func watchProject(cmd *cobra.Command, fetcher poller.Fetcher, project *models.Project, interval time.Duration, jsonOut bool) error {
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	sigCtx, stop := signal.NotifyContext(baseContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := poller.New(fetcher, project).
		WithInterval(interval).
		OnUpdate(func(updated *models.Project) {
			if jsonOut {
				_ = writeJSON(cmd, models.NewStatusResponse(updated))
				return
			}
			fmt.Fprintf(out, "[%s] %s\n", time.Now().Format("15:04:05"), summaryLine(updated))
		}).
		OnError(func(err error) {
			fmt.Fprintf(errOut, "fetch failed: %v\n", err)
		})

	if !p.Start(sigCtx) {
		fmt.Fprintln(out, "Nothing in progress")
		fmt.Fprintln(out, summaryLine(project))
		return nil
	}

	select {
	case <-p.Done():
	case <-sigCtx.Done():
		p.Stop()
		return sigCtx.Err()
	}

	if !jsonOut {
		fmt.Fprintln(out, renderScenes(p.Project(), isTerminal(out)))
	}
	return nil
}

func baseContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
