package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status <address>",
	Short: "Read the lock's current status",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	sess, _, cancel, err := openSession(cmd, args[0])
	if err != nil {
		return err
	}
	defer cancel()
	defer func() { _ = sess.Disconnect() }()

	text, err := sess.ReadStatus()
	if err != nil {
		return err
	}
	fmt.Println(text)
	return nil
}
