package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/attunefin/attune-go/api"
	"github.com/attunefin/attune-go/errors"
)

// WatchCmd attaches to an existing job's progress stream.
var WatchCmd = &cobra.Command{
	Use:   "watch <job-id>",
	Short: "Follow a running import job's live progress",
	Long: `Attach to the live progress stream of a running import job.

The stream reconnects automatically with exponential backoff if the
connection drops. Detach with Ctrl-C; the job keeps running server-side.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client, err := newAPIClient(cfg)
		if err != nil {
			return err
		}

		jobID := args[0]
		job, err := client.UploadStatus(cmd.Context(), jobID)
		if err != nil {
			if errors.Is(err, errors.ErrJobNotFound) {
				return errors.Newf("no import job %s; check the ID from 'attune upload'", jobID)
			}
			return err
		}
		if job.Status == api.JobStatusCompleted {
			pterm.Success.Printf("Job %s already completed\n", jobID)
			return nil
		}

		return followJob(cfg, jobID)
	},
}
