package app

import (
	"context"
	"fmt"

	"github.com/pterm/pterm"

	"github.com/1ureka/nexremote/internal/host"
	"github.com/1ureka/nexremote/internal/util"
)

// HostConfig is what cmd/nexhost collects from its flags.
type HostConfig struct {
	Options host.Options
	Listen  host.Listen
}

// RunHost serves the reference host until ctx is done:
//  1. Build the host and its pairing code
//  2. Print the connection box
//  3. Serve wss, ws, /rtc signaling and discovery
func RunHost(ctx context.Context, hc HostConfig) error {
	h := host.New(hc.Options)

	body := fmt.Sprintf("Name    : %s\nID      : %s\nSecure  : %s\nPlain   : %s\nPairing : %s",
		h.Name(), util.ShortID(h.ID()), orOff(hc.Listen.SecureAddr), orOff(hc.Listen.InsecureAddr),
		pterm.LightGreen(h.PairingCode()))
	pterm.DefaultBox.WithTitle("NexRemote Host v" + host.Version).Println(body)
	pterm.Println()
	util.LogInfo("waiting for clients (discovery on %s)", orOff(hc.Listen.DiscoveryAddr))

	return h.Serve(ctx, hc.Listen)
}

func orOff(addr string) string {
	if addr == "" {
		return "off"
	}
	return addr
}
