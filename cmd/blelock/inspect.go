package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/srg/blelock/internal/lock"
)

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect <address>",
	Short: "Show a peripheral's reconstructed attribute table",
	Long: `Connect to a peripheral, reconstruct its attribute table and print
it, inferred descriptors and subscription state included. Handles the
reconstruction could not attribute to any characteristic are listed
separately.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	sess, _, cancel, err := openSession(cmd, args[0])
	if err != nil {
		return err
	}
	defer cancel()
	defer func() { _ = sess.Disconnect() }()

	fmt.Print(lock.RenderServices(sess.Services()))

	if unexplained := sess.Unexplained(); len(unexplained) > 0 {
		fmt.Println("Unexplained handles:")
		for _, h := range unexplained {
			fmt.Printf("  0x%04x\n", h)
		}
	}
	return nil
}
