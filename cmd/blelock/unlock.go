package main

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// unlockCmd represents the unlock command
var unlockCmd = &cobra.Command{
	Use:   "unlock <address>",
	Short: "Send the unlock secret to a lock",
	Long: `Connect to a lock peripheral, send the unlock secret and wait for
the status notification that reports the outcome.

The secret can be passed with --secret; without it the command prompts
on the terminal without echoing.`,
	Args: cobra.ExactArgs(1),
	RunE: runUnlock,
}

var (
	unlockSecret  string
	unlockTimeout time.Duration
)

func init() {
	unlockCmd.Flags().StringVarP(&unlockSecret, "secret", "s", "", "Unlock secret (prompted when omitted)")
	unlockCmd.Flags().DurationVarP(&unlockTimeout, "timeout", "t", 10*time.Second, "How long to wait for the status notification")
}

func runUnlock(cmd *cobra.Command, args []string) error {
	secret := []byte(unlockSecret)
	if len(secret) == 0 {
		s, err := promptSecret(bufio.NewReader(os.Stdin))
		if err != nil {
			return err
		}
		secret = s
	}

	sess, ctx, cancel, err := openSession(cmd, args[0])
	if err != nil {
		return err
	}
	defer cancel()
	defer func() { _ = sess.Disconnect() }()

	// Register before writing so the response cannot slip past.
	statusCh := make(chan string, 1)
	id := sess.OnStatus(func(text string) {
		select {
		case statusCh <- text:
		default:
		}
	})
	defer sess.RemoveStatusListener(id)

	if err := sess.WriteSecret(secret); err != nil {
		return err
	}

	select {
	case text := <-statusCh:
		fmt.Printf("Lock responded: %s\n", text)
		return nil
	case <-time.After(unlockTimeout):
		return fmt.Errorf("no status notification within %s", unlockTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}
