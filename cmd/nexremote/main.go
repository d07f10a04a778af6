// NexRemote — client CLI.
//
// Finds NexRemote hosts on the LAN, pairs with one using its pairing code
// and mirrors its displays. It runs interactively (no -host flag) or
// non-interactively via flags (-host, -code, -displays).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"github.com/1ureka/nexremote/internal/app"
	"github.com/1ureka/nexremote/internal/config"
	"github.com/1ureka/nexremote/internal/discovery"
	"github.com/1ureka/nexremote/internal/session"
	"github.com/1ureka/nexremote/internal/stream"
	"github.com/1ureka/nexremote/internal/util"
)

var version = "dev"

func main() {
	// Root context — cancelled on Ctrl+C.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	configPath := flag.String("config", "", "Path to a YAML config file")
	hostFlag := flag.String("host", "", "Host address; skips discovery")
	codeFlag := flag.String("code", "", "Pairing code shown by the host")
	displaysFlag := flag.String("displays", "", "Comma separated display indices to stream (default: all)")
	transportFlag := flag.String("transport", "", "Transport: websocket or webrtc")
	pinFlag := flag.String("pin", "", "Hex SHA-256 of the host certificate to pin")
	debugMode := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}
	if *debugMode {
		cfg.Log.Debug = true
	}
	if *transportFlag != "" {
		cfg.Session.Transport = config.Transport(*transportFlag)
	}
	if *pinFlag != "" {
		cfg.TLS.PinnedSHA256 = *pinFlag
		cfg.TLS.InsecureSkipVerify = false
	}
	if err := cfg.Validate(); err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}

	if cfg.Log.Debug {
		util.EnableDebug()
	}
	logFile := util.SetLogFile(util.LogFile{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})
	defer logFile.Close()

	pterm.Info.Println(fmt.Sprintf("NexRemote — v%s (%s)", version, cfg.DeviceName))
	pterm.Println()

	client, err := app.NewClient(cfg)
	if err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}
	defer client.Close()

	var rec discovery.HostRecord
	code := *codeFlag
	if *hostFlag != "" {
		rec = discovery.HostRecord{Address: *hostFlag}
	} else {
		var ok bool
		if rec, ok = pickHost(ctx, client); !ok {
			return
		}
	}
	if code == "" {
		code = askCode()
	}

	if err := connect(ctx, client, rec, code); err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}

	indices, err := app.ParseIndices(strings.Split(*displaysFlag, ","))
	if err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}
	run(ctx, client, indices, *displaysFlag == "" && *hostFlag == "")
	util.LogInfo("session closed")
}

// ---------------------------------------------------------------------------
// Run modes
// ---------------------------------------------------------------------------

// pickHost runs discovery and lets the user choose among found and recent
// hosts.
func pickHost(ctx context.Context, c *app.Client) (discovery.HostRecord, bool) {
	spinner, _ := pterm.DefaultSpinner.Start("Searching for hosts on the local network...")
	found, err := c.Discover(ctx)
	if err != nil {
		spinner.Fail(fmt.Sprintf("discovery failed: %v", err))
	} else {
		spinner.Success(fmt.Sprintf("found %d host(s)", len(found)))
	}

	candidates := append([]discovery.HostRecord(nil), found...)
	seen := make(map[string]bool, len(found))
	for _, h := range found {
		seen[h.ID] = true
	}
	recent, err := c.Recent(ctx, 5)
	if err != nil {
		util.LogWarning("failed to read known hosts: %v", err)
	}
	for _, k := range recent {
		if !seen[k.ID] {
			candidates = append(candidates, k.HostRecord)
		}
	}

	const manual = "Enter an address manually"
	options := make([]string, 0, len(candidates)+1)
	for _, h := range candidates {
		label := fmt.Sprintf("%s  (%s)", h.Name, h.Address)
		if !seen[h.ID] {
			label += "  [recent]"
		}
		options = append(options, label)
	}
	options = append(options, manual)

	choice, _ := pterm.DefaultInteractiveSelect.
		WithOptions(options).
		WithDefaultText("Select a host").
		Show()
	pterm.Println()

	if ctx.Err() != nil {
		return discovery.HostRecord{}, false
	}
	for i, opt := range options[:len(candidates)] {
		if opt == choice {
			return candidates[i], true
		}
	}

	addr, _ := pterm.DefaultInteractiveTextInput.WithDefaultText("Host address").Show()
	pterm.Println()
	return discovery.HostRecord{Address: strings.TrimSpace(addr)}, true
}

func connect(ctx context.Context, c *app.Client, rec discovery.HostRecord, code string) error {
	spinner, _ := pterm.DefaultSpinner.Start(fmt.Sprintf("Connecting to %s...", rec.Address))
	err := c.Connect(ctx, rec, code)
	if err != nil {
		var authErr *session.AuthError
		if errors.As(err, &authErr) {
			spinner.Fail(fmt.Sprintf("pairing rejected: %s", authErr.Reason))
		} else {
			spinner.Fail("connection failed")
		}
		return err
	}

	mode := "insecure"
	if c.Session.Secure() {
		mode = "secure"
	}
	spinner.Success(fmt.Sprintf("connected to %s (%s)", c.Session.ServerName(), mode))
	return nil
}

// run starts the streams and reports until Ctrl+C or disconnect.
func run(ctx context.Context, c *app.Client, indices []int, interactive bool) {
	runErr := make(chan error, 1)
	go func() { runErr <- c.Run(ctx) }()

	descs, err := c.Screens.RequestList(ctx)
	if err != nil {
		util.LogError("failed to list displays: %v", err)
		return
	}
	printDisplays(descs)

	if interactive {
		indices = askDisplays(descs)
	}
	if _, err := c.StartStreams(ctx, indices); err != nil {
		util.LogError("failed to start streams: %v", err)
		return
	}

	if rtt, err := c.Latency(ctx); err == nil {
		util.LogInfo("latency %s", rtt.Round(time.Millisecond))
	}
	util.StartStatsReporter(ctx, 5*time.Second, c.Summary)

	if err := <-runErr; err != nil {
		util.LogWarning("disconnected: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Helper Functions
// ---------------------------------------------------------------------------

func printDisplays(descs []stream.Descriptor) {
	data := pterm.TableData{{"Index", "Name", "Size", "Primary"}}
	for _, d := range descs {
		primary := ""
		if d.IsPrimary {
			primary = "yes"
		}
		data = append(data, []string{strconv.Itoa(d.Index), d.Name, fmt.Sprintf("%dx%d", d.Width, d.Height), primary})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	pterm.Println()
}

// askDisplays lets the user pick the displays to stream; none picked means
// all of them.
func askDisplays(descs []stream.Descriptor) []int {
	options := make([]string, len(descs))
	for i, d := range descs {
		options[i] = fmt.Sprintf("%d: %s", d.Index, d.Name)
	}
	picked, _ := pterm.DefaultInteractiveMultiselect.
		WithOptions(options).
		WithDefaultText("Displays to stream").
		Show()
	pterm.Println()

	var out []int
	for _, p := range picked {
		idx, _, _ := strings.Cut(p, ":")
		if n, err := strconv.Atoi(idx); err == nil {
			out = append(out, n)
		}
	}
	return out
}

// askCode prompts until a six digit pairing code is entered.
func askCode() string {
	for {
		raw, _ := pterm.DefaultInteractiveTextInput.
			WithDefaultText("Pairing code (6 digits)").
			Show()

		code := strings.TrimSpace(raw)
		if _, err := strconv.Atoi(code); err == nil && len(code) == 6 {
			pterm.Println()
			return code
		}

		util.LogWarning("invalid pairing code: must be 6 digits")
		pterm.Println()
	}
}
