package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	blelib "github.com/go-ble/ble"
	"github.com/spf13/cobra"

	"github.com/srg/blelock/scanner"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for lock peripherals",
	Long: `Scan for Bluetooth Low Energy devices advertising the lock service
and display their names, addresses, RSSI values and advertised
services.

By default only devices advertising the lock service are shown; pass
--all to list every device in range.`,
	RunE: runScan,
}

var (
	scanDuration    time.Duration
	scanFormat      string
	scanAll         bool
	scanServices    []string
	scanAllowList   []string
	scanBlockList   []string
	scanNoDuplicate bool
)

func init() {
	scanCmd.Flags().DurationVarP(&scanDuration, "duration", "d", 10*time.Second, "Scan duration (0 for indefinite)")
	scanCmd.Flags().StringVarP(&scanFormat, "format", "f", "table", "Output format (table, json)")
	scanCmd.Flags().BoolVarP(&scanAll, "all", "a", false, "Show all devices, not just locks")
	scanCmd.Flags().StringSliceVarP(&scanServices, "services", "s", nil, "Filter by service UUIDs")
	scanCmd.Flags().StringSliceVar(&scanAllowList, "allow", nil, "Only show devices with these addresses")
	scanCmd.Flags().StringSliceVar(&scanBlockList, "block", nil, "Hide devices with these addresses")
	scanCmd.Flags().BoolVar(&scanNoDuplicate, "no-duplicates", true, "Filter duplicate advertisements")
}

func runScan(cmd *cobra.Command, args []string) error {
	if scanFormat != "table" && scanFormat != "json" {
		return fmt.Errorf("invalid format %q: must be table or json", scanFormat)
	}

	logger, err := configureLogger(cmd)
	if err != nil {
		return err
	}

	cmd.SilenceUsage = true

	s, err := scanner.NewScanner(logger)
	if err != nil {
		return fmt.Errorf("failed to create BLE scanner: %w", err)
	}

	opts := scanner.LockScanOptions()
	if scanAll {
		opts.ServiceUUIDs = nil
	}
	opts.Duration = scanDuration
	opts.DuplicateFilter = scanNoDuplicate
	opts.AllowList = scanAllowList
	opts.BlockList = scanBlockList

	for _, svc := range scanServices {
		u, err := blelib.Parse(svc)
		if err != nil {
			return fmt.Errorf("invalid service UUID %q: %w", svc, err)
		}
		opts.ServiceUUIDs = append(opts.ServiceUUIDs, u)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	progress := NewCountdownProgressPrinter("Scanning for lock peripherals", "Scanning", opts.Duration, "Processing results")
	progress.Start()
	defer progress.Stop()

	devices, err := s.Scan(ctx, opts, progress.Callback())
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return displayDevices(devices)
}

func displayDevices(devices map[string]*scanner.DeviceInfo) error {
	if len(devices) == 0 {
		fmt.Println("No devices discovered")
		return nil
	}

	devList := make([]*scanner.DeviceInfo, 0, len(devices))
	for _, d := range devices {
		devList = append(devList, d)
	}
	sort.Slice(devList, func(i, j int) bool {
		return devList[i].Address < devList[j].Address
	})

	if scanFormat == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(devList)
	}
	return displayDevicesTable(os.Stdout, devList)
}

func displayDevicesTable(out io.Writer, devices []*scanner.DeviceInfo) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tADDRESS\tRSSI\tSERVICES\tLAST SEEN")
	fmt.Fprintln(w, strings.Repeat("-", 80))

	for _, dev := range devices {
		name := dev.Name
		if len(name) > 20 {
			name = name[:17] + "..."
		}

		services := strings.Join(dev.Services, ",")
		if len(services) > 30 {
			services = services[:27] + "..."
		}

		lastSeen := time.Since(dev.LastSeen).Truncate(time.Second)

		fmt.Fprintf(w, "%s\t%s\t%d dBm\t%s\t%s ago\n",
			name, dev.Address, dev.RSSI, services, lastSeen)
	}

	return w.Flush()
}
