// Package commands implements the attune CLI subcommands.
package commands

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"

	"github.com/attunefin/attune-go/api"
	"github.com/attunefin/attune-go/config"
	"github.com/attunefin/attune-go/errors"
	"github.com/attunefin/attune-go/logger"
	"github.com/attunefin/attune-go/progress"
)

// loadConfig loads configuration and checks the pieces every backend call
// needs.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load configuration")
	}
	if cfg.Server.BaseURL == "" {
		return nil, errors.New("no server base URL configured; set server.base_url in attune.toml or ATTUNE_SERVER_BASE_URL")
	}
	if cfg.Server.AuthToken == "" {
		return nil, errors.New("no auth token configured; set ATTUNE_SERVER_AUTH_TOKEN or server.auth_token in attune.toml")
	}
	return cfg, nil
}

func newAPIClient(cfg *config.Config) (*api.Client, error) {
	return api.NewClient(api.Config{
		BaseURL:   cfg.Server.BaseURL,
		AuthToken: cfg.Server.AuthToken,
		Timeout:   cfg.ServerTimeout(),
		RateLimit: cfg.API.RateLimit,
		Logger:    logger.Logger,
	})
}

// followJob subscribes to a job's live progress stream and renders it as a
// progress bar until the job completes, fails, or the user interrupts.
func followJob(cfg *config.Config, jobID string) error {
	bar, err := pterm.DefaultProgressbar.
		WithTotal(100).
		WithTitle("Connecting to progress tracking...").
		Start()
	if err != nil {
		return errors.Wrap(err, "failed to start progress bar")
	}
	defer bar.Stop()

	tracker := progress.NewTracker(progress.HandlerFuncs{
		Progress: func(ev *progress.Event) {
			if ev.Message != "" {
				bar.UpdateTitle(ev.Message)
			}
			if delta := int(ev.Progress) - bar.Current; delta > 0 {
				bar.Add(delta)
			}
		},
	})

	client, err := progress.NewClient(progress.Options{
		JobID:                jobID,
		AuthToken:            cfg.Server.AuthToken,
		BaseURL:              cfg.Server.BaseURL,
		Handler:              tracker,
		AutoReconnect:        &cfg.Progress.AutoReconnect,
		MaxReconnectAttempts: &cfg.Progress.MaxReconnectAttempts,
		ReconnectBaseDelay:   cfg.ReconnectBaseDelay(),
		PingInterval:         cfg.PingInterval(),
		Logger:               logger.Logger,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create progress client")
	}

	client.Connect()
	defer client.Disconnect()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	poll := time.NewTicker(100 * time.Millisecond)
	defer poll.Stop()

	for {
		select {
		case <-interrupt:
			bar.Stop()
			pterm.Warning.Printf("Detached from job %s; the import continues on the server\n", jobID)
			return nil

		case <-poll.C:
			if tracker.IsComplete() {
				if delta := 100 - bar.Current; delta > 0 {
					bar.Add(delta)
				}
				bar.Stop()
				pterm.Success.Printf("Job %s complete\n", jobID)
				return nil
			}

			// Disconnected with no retry scheduled means the stream is over
			// for good: budget exhausted, auth rejected, or server closed.
			if client.State() == progress.StateDisconnected && !client.RetryPending() {
				bar.Stop()
				if tracker.HasError() {
					pterm.Error.Println(tracker.Err())
					return errors.New(tracker.Err())
				}
				return errors.Newf("progress stream for job %s ended before completion", jobID)
			}
		}
	}
}
