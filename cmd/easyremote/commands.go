package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/muurk/easyremote/internal/config"
	"github.com/muurk/easyremote/internal/discovery"
	"github.com/muurk/easyremote/internal/display"
	"github.com/muurk/easyremote/internal/ecp"
	"github.com/muurk/easyremote/internal/keypad"
	"github.com/muurk/easyremote/internal/logging"
	"github.com/muurk/easyremote/internal/sequencer"
	"github.com/muurk/easyremote/internal/ui"
	"github.com/muurk/easyremote/internal/urls"
)

// Command flags
var (
	deviceName  string
	showName    string
	noDisplay   bool
	listenAddr  string
	scanTimeout int
	scanVendor  string
	scanYAML    bool
	forceInit   bool
)

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(launchCmd)
	rootCmd.AddCommand(powerOffCmd)
	rootCmd.AddCommand(volumeCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(showsCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(keypadCmd)
	rootCmd.AddCommand(initCmd)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the controller loop",
	Long: `Run the controller loop until interrupted.

The loop handles keypad presses, fires the daily schedule, refreshes device
state hourly and keeps the active stream alive. When configured it also
serves the HTTP status surface (server.listen) and bridges to an MQTT broker
(mqtt.broker). The LED display is mirrored to the terminal unless
--no-display is given.`,
	Example: `  # Run with the default configuration
  easyremote run

  # Serve the status surface on another address
  easyremote run --listen :9090

  # Run headless with debug logging
  easyremote run --no-display --log-level debug`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&noDisplay, "no-display", false, "Do not mirror the display to the terminal")
	runCmd.Flags().StringVar(&listenAddr, "listen", "", "HTTP status surface address (overrides server.listen)")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.Server.Listen = listenAddr
	}

	opts := appOptions{Server: true, MQTT: true}
	if !noDisplay {
		opts.Renderers = append(opts.Renderers, display.NewTerminal(cmd.OutOrStdout(), ui.IsTerminal()))
	}
	a, err := newApp(cfg, opts)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	logging.Info("Starting controller",
		zap.Int("devices", len(cfg.Devices)),
		zap.Int("shows", len(cfg.Shows)),
		zap.String("listen", cfg.Server.Listen),
		zap.Bool("mqtt", a.bridge != nil))
	return a.run(ctx)
}

var launchCmd = &cobra.Command{
	Use:   "launch",
	Short: "Launch a show on a device",
	Long: `Launch a show once and exit.

The device leaves its current app if needed, opens the show's app and
navigates to the show. The command waits for the whole sequence, which can
take a minute for apps that need a search.`,
	Example: `  # Launch on the primary device
  easyremote launch --show "Good Witch"

  # Launch on another device
  easyremote launch --device secondary --show "Star Trek: Picard"`,
	RunE: runLaunch,
}

func init() {
	launchCmd.Flags().StringVar(&deviceName, "device", "", "Device name (default: primary device)")
	launchCmd.Flags().StringVar(&showName, "show", "", "Show name")
	_ = launchCmd.MarkFlagRequired("show")
}

func runLaunch(cmd *cobra.Command, args []string) error {
	return oneShot(cmd, "Launch", func(ctx context.Context, a *app, dev config.Device) error {
		return a.ctrl.Launch(ctx, dev.Name, showName)
	}, map[string]string{"Show": showName})
}

var powerOffCmd = &cobra.Command{
	Use:   "power-off",
	Short: "Power a device off",
	Example: `  easyremote power-off
  easyremote power-off --device secondary`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return oneShot(cmd, "Power off", func(ctx context.Context, a *app, dev config.Device) error {
			return a.ctrl.PowerOff(ctx, dev.Name)
		}, nil)
	},
}

var volumeCmd = &cobra.Command{
	Use:       "volume up|down",
	Short:     "Step the volume up or down",
	Example:   `  easyremote volume up --device secondary`,
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down"},
	RunE: func(cmd *cobra.Command, args []string) error {
		up := args[0] == "up"
		return oneShot(cmd, "Volume "+args[0], func(ctx context.Context, a *app, dev config.Device) error {
			return a.ctrl.Volume(ctx, dev.Name, up)
		}, nil)
	},
}

func init() {
	powerOffCmd.Flags().StringVar(&deviceName, "device", "", "Device name (default: primary device)")
	volumeCmd.Flags().StringVar(&deviceName, "device", "", "Device name (default: primary device)")
}

// oneShot runs a single controller operation and prints its outcome.
func oneShot(cmd *cobra.Command, title string, op func(context.Context, *app, config.Device) error, details map[string]string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg, appOptions{})
	if err != nil {
		return err
	}
	dev, err := a.device(deviceName)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	printer := ui.NewPrinter(cmd.OutOrStdout())
	start := time.Now()
	if err := a.perform(ctx, dev, op); err != nil {
		var cause error
		if errors.Is(err, sequencer.ErrUnreachable) {
			cause = a.diagnose(ctx, dev)
		}
		printer.PrintError(title+" failed", err, troubleshooting(err, dev, cause))
		return err
	}

	if details == nil {
		details = make(map[string]string)
	}
	details["Device"] = fmt.Sprintf("%s (%s)", dev.Name, dev.Addr())
	details["Took"] = time.Since(start).Round(100 * time.Millisecond).String()
	printer.PrintSuccess(title, details)
	return nil
}

// troubleshooting returns hints for err. cause is the transport error seen
// when the device was queried directly, if any.
func troubleshooting(err error, dev config.Device, cause error) []string {
	switch {
	case errors.Is(err, sequencer.ErrUnreachable):
		var tips []string
		if cause != nil {
			tips = append(tips, ecp.ShortMessage(cause))
		}
		tips = append(tips, fmt.Sprintf("Check that %s is powered on", dev.DisplayLabel()))
		if cause == nil || ecp.IsNetworkError(cause) {
			tips = append(tips,
				fmt.Sprintf("Verify %s answers on port %d", dev.Address, dev.Port),
				"Run 'easyremote scan' to find devices on the network",
			)
		}
		return append(tips, "Network control must be enabled on the device: "+urls.ExternalControlAPI)
	case errors.Is(err, sequencer.ErrUnknownShow):
		return []string{"Run 'easyremote shows' to list configured shows"}
	case errors.Is(err, sequencer.ErrConfirmationTimeout):
		return []string{
			"The app did not report the expected state in time",
			"Try again, or raise the app's confirm_polls in the config",
		}
	}
	return nil
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query and print device state",
	Long: `Query every configured device for reachability, active app and player
state, and print the result as a table.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := newApp(cfg, appOptions{})
		if err != nil {
			return err
		}

		ctx, stop := signalContext()
		defer stop()

		states, err := a.ctrl.RefreshAll(ctx)
		if err != nil {
			return err
		}
		return printContent(cmd, ui.RenderDeviceTable(states))
	},
}

var showsCmd = &cobra.Command{
	Use:   "shows",
	Short: "List configured shows",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := newApp(cfg, appOptions{})
		if err != nil {
			return err
		}
		return printContent(cmd, ui.RenderShowTable(a.catalog.Shows()))
	},
}

// printContent renders through Bubble Tea on a terminal and prints plainly
// otherwise.
func printContent(cmd *cobra.Command, content string) error {
	if ui.IsTerminal() {
		return ui.RenderOnce(content)
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), content)
	return err
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for streaming devices on the network",
	Long: `Scan for streaming devices using mDNS/DNS-SD discovery.

Every answering device is checked for an open control port before it is
listed. With --yaml the result is printed as a devices block ready to paste
into the config file.`,
	Example: `  # Scan for 10 seconds (default)
  easyremote scan

  # Quick 3-second scan, printed as config
  easyremote scan --timeout 3 --yaml`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().IntVar(&scanTimeout, "timeout", 10, "Scan timeout in seconds")
	scanCmd.Flags().StringVar(&scanVendor, "vendor", discovery.DefaultVendor, "Only list devices whose name or model contains this (empty lists all)")
	scanCmd.Flags().BoolVar(&scanYAML, "yaml", false, "Print discovered devices as a config devices block")
}

func runScan(cmd *cobra.Command, args []string) error {
	scanner := discovery.NewScanner()
	scanner.Timeout = time.Duration(scanTimeout) * time.Second
	scanner.Vendor = scanVendor

	ctx, stop := signalContext()
	defer stop()

	out := cmd.OutOrStdout()
	if !scanYAML {
		fmt.Fprintf(out, "Scanning for devices (timeout: %ds)...\n\n", scanTimeout)
	}

	devices, err := scanner.Scan(ctx)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if scanYAML {
		return writeDevicesYAML(out, devices)
	}

	if len(devices) == 0 {
		ui.NewPrinter(out).PrintWarning("No devices found", map[string]string{
			"Service": scanner.Service,
			"Vendor":  orAny(scanner.Vendor),
		})
		return nil
	}
	fmt.Fprintf(out, "Found %d device(s):\n\n", len(devices))
	fmt.Fprintln(out, ui.RenderScanTable(devices))
	return nil
}

func writeDevicesYAML(out io.Writer, devices []discovery.Device) error {
	block := struct {
		Devices []config.Device `yaml:"devices"`
	}{}
	for i, d := range devices {
		block.Devices = append(block.Devices, d.ToConfig("device"+strconv.Itoa(i+1)))
	}
	data, err := yaml.Marshal(block)
	if err != nil {
		return fmt.Errorf("failed to marshal devices: %w", err)
	}
	_, err = out.Write(data)
	return err
}

func orAny(s string) string {
	if s == "" {
		return "(any)"
	}
	return s
}

var keypadCmd = &cobra.Command{
	Use:   "keypad",
	Short: "Run the controller with a terminal keypad",
	Long: `Run the controller loop with an interactive keypad in the terminal.

Digit keys press keypad buttons exactly as the hardware keypad would. The
display and the device state are shown live. The HTTP status surface and the
MQTT bridge run alongside when configured.`,
	RunE: runKeypad,
}

func runKeypad(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// The terminal belongs to the keypad view.
	logging.SetLogger(zap.NewNop())

	feed := keypad.NewFeed()
	a, err := newApp(cfg, appOptions{Renderers: []display.Renderer{feed}, Server: true, MQTT: true})
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	loopErr := make(chan error, 1)
	go func() { loopErr <- a.run(ctx) }()

	m := keypad.New(keypad.Options{
		Buttons: cfg.ButtonMap(),
		Shows:   a.catalog.Shows(),
		Primary: cfg.Primary().Name,
		Events:  a.scheduler,
		States:  a.tracker,
		Feed:    feed,
		Busy:    a.ctrl.Busy,
	})
	uiErr := keypad.Run(ctx, m)

	cancel()
	if err := <-loopErr; err != nil {
		return err
	}
	return uiErr
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	Long: `Write the built-in configuration to the config file so it can be edited.

An existing file is only replaced after confirmation, or with --force.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			var err error
			if path, err = config.GetConfigPath(); err != nil {
				return err
			}
		}

		if _, err := os.Stat(path); err == nil && !forceInit {
			ok := ui.Confirm(cmd.InOrStdin(), cmd.OutOrStdout(), "Overwrite configuration",
				[]string{path + " already exists", "Its devices, shows and schedule will be replaced"}, "overwrite")
			if !ok {
				return errors.New("aborted")
			}
		}

		if err := config.Default().Save(path); err != nil {
			return err
		}
		ui.NewPrinter(cmd.OutOrStdout()).PrintSuccess("Configuration written", map[string]string{"Path": path})
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing config file without asking")
}
