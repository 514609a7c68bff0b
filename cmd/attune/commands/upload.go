package commands

import (
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/attunefin/attune-go/errors"
)

// UploadCmd uploads a bank statement and follows the import live.
var UploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a bank statement and follow the import",
	Long: `Upload a bank statement (CSV, OFX or PDF) to the Attune backend.

The backend parses, de-duplicates and categorizes the statement as an async
job; upload follows the job's live progress stream until it finishes. Detach
with Ctrl-C; the import keeps running server-side and can be re-attached
with 'attune watch <job-id>'.`,
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

		path := args[0]
		file, err := os.Open(path)
		if err != nil {
			return errors.Wrapf(err, "failed to open %s", path)
		}
		defer file.Close()

		job, err := client.UploadStatement(cmd.Context(), path, file)
		if err != nil {
			return errors.Wrap(err, "upload failed")
		}

		pterm.Info.Printf("Upload accepted, job %s\n", job.JobID)

		detach, _ := cmd.Flags().GetBool("no-follow")
		if detach {
			pterm.Printf("Follow later with: attune watch %s\n", job.JobID)
			return nil
		}
		return followJob(cfg, job.JobID)
	},
}

func init() {
	UploadCmd.Flags().Bool("no-follow", false, "Return immediately after the upload is accepted")
}
