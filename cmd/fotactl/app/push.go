package app

import (
	"fmt"
	"io"
	"os/user"
	"time"

	"fota-manager/backend/app/services"
	"fota-manager/backend/initialize"

	"github.com/spf13/cobra"
)

type PushOptions struct {
	RequestedBy string
	Poll        time.Duration
}

func NewPushOptions() *PushOptions {
	o := &PushOptions{Poll: 200 * time.Millisecond}
	if u, err := user.Current(); err == nil {
		o.RequestedBy = u.Username
	}
	return o
}

func AddPushFlags(cmd *cobra.Command, o *PushOptions) {
	cmd.Flags().StringVar(&o.RequestedBy, "as", o.RequestedBy, "Name recorded as the requester in the push history")
	cmd.Flags().DurationVar(&o.Poll, "poll", o.Poll, "Progress polling interval")
}

// NewCmdPush runs one simulated transfer and prints its progress.
func NewCmdPush(out io.Writer, g *GlobalOptions) *cobra.Command {
	o := NewPushOptions()
	cmd := &cobra.Command{
		Use:   "push TARGET SERIAL VERSION",
		Short: "Push a stored firmware version to a device",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(func(app *initialize.App) error {
				ctx := cmd.Context()
				job, err := app.Push.Start(ctx, args[0], args[1], args[2], o.RequestedBy)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "job %s: %s %s -> %s\n", job.ID, job.VCUSerial, job.FromVersion, job.ToVersion)

				ticker := time.NewTicker(o.Poll)
				defer ticker.Stop()
				last := -1
				for !job.State.Terminal() {
					select {
					case <-ctx.Done():
						// the transfer itself finishes during shutdown
						return ctx.Err()
					case <-ticker.C:
					}
					if job, err = app.Push.Get(job.ID); err != nil {
						return err
					}
					if pct := int(job.Progress * 100); pct != last {
						last = pct
						fmt.Fprintf(out, "%3d%% %s\n", pct, job.State)
					}
				}
				if job.State == services.PushFailed {
					return fmt.Errorf("push failed: %s", job.Error)
				}
				fmt.Fprintf(out, "%s: %s now on %s\n", job.State, job.VCUSerial, job.ToVersion)
				return nil
			})
		},
	}
	AddPushFlags(cmd, o)
	return cmd
}
