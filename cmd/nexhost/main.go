// NexRemote reference host.
//
// Serves the NexRemote session protocol with synthetic displays, a camera
// and canned file, process and media replies. Useful for trying the client
// without a real desktop host.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/pterm/pterm"

	"github.com/1ureka/nexremote/internal/app"
	"github.com/1ureka/nexremote/internal/discovery"
	"github.com/1ureka/nexremote/internal/host"
	"github.com/1ureka/nexremote/internal/secure"
	"github.com/1ureka/nexremote/internal/util"
)

func main() {
	// Root context — cancelled on Ctrl+C.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	name := flag.String("name", "", "Host name announced to clients")
	code := flag.String("code", "", "Pairing code (random when empty)")
	cipher := flag.String("cipher", "", "Session cipher: fernet (default) or xchacha20poly1305")
	securePort := flag.Int("securePort", 8765, "wss port, 0 disables")
	insecurePort := flag.Int("insecurePort", 8766, "ws port, 0 disables")
	discoveryPort := flag.Int("discoveryPort", discovery.DefaultPort, "Discovery UDP port, 0 disables")
	frameSize := flag.Int("frameSize", 32<<10, "Synthetic frame size in bytes")
	debugMode := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *debugMode {
		util.EnableDebug()
	}
	if *cipher != "" {
		if _, err := secure.GenerateKey(*cipher); err != nil {
			util.LogError("invalid -cipher: %v", err)
			os.Exit(1)
		}
	}

	hc := app.HostConfig{
		Options: host.Options{
			Name:        *name,
			PairingCode: *code,
			Cipher:      *cipher,
			FrameSize:   *frameSize,
		},
		Listen: host.Listen{
			SecureAddr:    addr(*securePort),
			InsecureAddr:  addr(*insecurePort),
			DiscoveryAddr: addr(*discoveryPort),
		},
	}

	if err := app.RunHost(ctx, hc); err != nil && ctx.Err() == nil {
		util.LogError("host stopped: %v", err)
		os.Exit(1)
	}
	pterm.Println()
	util.LogInfo("host shut down")
}

func addr(port int) string {
	if port <= 0 {
		return ""
	}
	return fmt.Sprintf(":%d", port)
}
