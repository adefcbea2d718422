package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/srg/blelock/internal/gatt"
	"github.com/srg/blelock/internal/gatt/goble"
	"github.com/srg/blelock/internal/lock"
)

// TransportFactory builds the transport for a device address. A
// variable so tests can substitute a scripted transport.
var TransportFactory = func(address string, logger *logrus.Logger) gatt.Transport {
	return goble.NewTransport(address, logger)
}

// openSession connects to the peripheral at address and returns the
// live session together with a context cancelled on Ctrl+C. The caller
// owns the session and must Disconnect it.
func openSession(cmd *cobra.Command, address string) (*lock.Session, context.Context, context.CancelFunc, error) {
	logger, err := configureLogger(cmd)
	if err != nil {
		return nil, nil, nil, err
	}

	// Arguments are valid past this point - runtime errors are not
	// usage errors.
	cmd.SilenceUsage = true

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	sess := lock.NewSession(TransportFactory(address, logger), logger)
	if err := sess.Connect(ctx); err != nil {
		cancel()
		return nil, nil, nil, err
	}
	return sess, ctx, cancel, nil
}

// connectCmd represents the interactive session command
var connectCmd = &cobra.Command{
	Use:   "connect <address>",
	Short: "Open an interactive session with a lock",
	Long: `Connect to a lock peripheral and drive it from a small menu.

Status notifications and reassembled log transmissions are printed as
they arrive, whatever the menu is doing.`,
	Args: cobra.ExactArgs(1),
	RunE: runConnect,
}

func runConnect(cmd *cobra.Command, args []string) error {
	sess, ctx, cancel, err := openSession(cmd, args[0])
	if err != nil {
		return err
	}
	defer cancel()
	defer func() { _ = sess.Disconnect() }()

	statusColor := color.New(color.FgGreen)
	logColor := color.New(color.FgCyan)
	sess.OnStatus(func(text string) {
		statusColor.Printf("\n<< status: %s\n", text)
	})
	sess.OnLog(func(text string) {
		logColor.Printf("\n<< log:\n%s\n", text)
	})

	fmt.Print(lock.RenderServices(sess.Services()))

	reader := bufio.NewReader(os.Stdin)
	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Print("\n[D]iscover  [W]rite secret  [S]tatus  [L]og  [B]ye > ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil
		}

		switch strings.ToUpper(strings.TrimSpace(line)) {
		case "D":
			if err := sess.QueryPeripheral(); err != nil {
				fmt.Println(FormatUserError(err))
				continue
			}
			fmt.Print(lock.RenderServices(sess.Services()))
		case "W":
			secret, err := promptSecret(reader)
			if err != nil {
				fmt.Println(FormatUserError(err))
				continue
			}
			if err := sess.WriteSecret(secret); err != nil {
				fmt.Println(FormatUserError(err))
				continue
			}
			fmt.Println("Secret sent, waiting for the lock to respond...")
		case "S":
			text, err := sess.ReadStatus()
			if err != nil {
				fmt.Println(FormatUserError(err))
				continue
			}
			fmt.Printf("Status: %s\n", text)
		case "L":
			text, err := sess.ReadLogFragment()
			if err != nil {
				fmt.Println(FormatUserError(err))
				continue
			}
			fmt.Printf("Log fragment: %s\n", text)
		case "B", "Q":
			return nil
		case "":
		default:
			fmt.Println("Unknown choice")
		}
	}
}

// promptSecret reads the unlock secret without echoing it when stdin
// is a terminal, falling back to a plain line read otherwise.
func promptSecret(reader *bufio.Reader) ([]byte, error) {
	fmt.Print("Secret: ")
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		secret, err := term.ReadPassword(fd)
		fmt.Println()
		return secret, err
	}
	line, err := reader.ReadString('\n')
	if err != nil {
		return nil, err
	}
	return []byte(strings.TrimRight(line, "\r\n")), nil
}
