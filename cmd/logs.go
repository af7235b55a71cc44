// -- cmd/logs.go --
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/hpcloud/tail"
	"github.com/spf13/cobra"
)

// newLogsCmd creates the `logs` command: dump or follow the rotating log
// file.
func newLogsCmd() *cobra.Command {
	var follow bool

	logsCmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the log file, optionally following new entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cfg.Logger.LogFile
			if path == "" {
				return fmt.Errorf("no log file configured (logger.log_file)")
			}

			tailCfg := tail.Config{
				Follow:    follow,
				ReOpen:    follow, // survive lumberjack rotation
				MustExist: true,
				Logger:    tail.DiscardingLogger,
			}
			if follow {
				tailCfg.Location = &tail.SeekInfo{Whence: io.SeekEnd}
			}

			t, err := tail.TailFile(path, tailCfg)
			if err != nil {
				return fmt.Errorf("failed to open log file: %w", err)
			}
			defer t.Cleanup()

			go func() {
				<-cmd.Context().Done()
				t.Stop()
			}()

			for line := range t.Lines {
				if line.Err != nil {
					return fmt.Errorf("error reading log file: %w", line.Err)
				}
				fmt.Fprintln(os.Stdout, line.Text)
			}
			return nil
		},
	}

	logsCmd.Flags().BoolVarP(&follow, "follow", "f", false, "wait for and print new log entries")
	return logsCmd
}
