package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// logCmd represents the log command
var logCmd = &cobra.Command{
	Use:   "log <address>",
	Short: "Retrieve the lock's event log",
	Long: `Connect to a lock peripheral and wait for the event log, which the
lock transmits in fragments over indications after the connection
subscribes to the Lock Log characteristic. The fragments are
reassembled and printed as one text.

With --peek the command instead reads whatever single fragment the
characteristic currently holds and exits.`,
	Args: cobra.ExactArgs(1),
	RunE: runLog,
}

var (
	logWait time.Duration
	logPeek bool
)

func init() {
	logCmd.Flags().DurationVarP(&logWait, "wait", "w", 30*time.Second, "How long to wait for a complete log transmission")
	logCmd.Flags().BoolVar(&logPeek, "peek", false, "Read the current log fragment directly instead of waiting")
}

func runLog(cmd *cobra.Command, args []string) error {
	sess, ctx, cancel, err := openSession(cmd, args[0])
	if err != nil {
		return err
	}
	defer cancel()
	defer func() { _ = sess.Disconnect() }()

	if logPeek {
		text, err := sess.ReadLogFragment()
		if err != nil {
			return err
		}
		fmt.Println(text)
		return nil
	}

	logCh := make(chan string, 1)
	id := sess.OnLog(func(text string) {
		select {
		case logCh <- text:
		default:
		}
	})
	defer sess.RemoveLogListener(id)

	select {
	case text := <-logCh:
		fmt.Println(text)
		return nil
	case <-time.After(logWait):
		return fmt.Errorf("no complete log transmission within %s", logWait)
	case <-ctx.Done():
		return ctx.Err()
	}
}
