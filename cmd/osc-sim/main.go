// ABOUTME: OSC signal simulator for bench testing the bridge
// ABOUTME: Sends a periodic wave to an OSC address, found via mDNS if no target is given
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/hspbridge/hspbridge/internal/discovery"
	"github.com/hypebeast/go-osc/osc"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

var (
	target   = flag.String("target", "", "Bridge address host:port (default: discover via mDNS)")
	address  = flag.String("address", "/avatar/parameters/OGB/Pen/Sim/PenOthers", "OSC address to send")
	shape    = flag.String("wave", "sine", "Wave shape: sine, triangle or saw")
	period   = flag.Duration("period", 2*time.Second, "Wave period")
	rateHz   = flag.Int("rate", 60, "Messages per second")
	duration = flag.Duration("duration", 0, "Stop after this long (0 runs until interrupted)")
)

func main() {
	flag.Parse()

	logger := slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		TimeFormat: time.TimeOnly,
		NoColor:    !isatty.IsTerminal(os.Stdout.Fd()),
	}))

	if err := run(logger); err != nil {
		logger.Error("Simulator failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	wave, err := newWave(*shape, *period)
	if err != nil {
		return err
	}
	if *rateHz <= 0 {
		return fmt.Errorf("rate must be > 0, got %d", *rateHz)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if *duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	addr := *target
	if addr == "" {
		addr, err = discover(ctx, logger)
		if err != nil {
			return err
		}
	}

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid target %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid port %q: %w", portStr, err)
	}

	client := osc.NewClient(host, port)
	logger.Info("Sending wave", "target", addr, "address", *address, "wave", *shape, "period", *period, "rate", *rateHz)

	ticker := time.NewTicker(time.Second / time.Duration(*rateHz))
	defer ticker.Stop()

	start := time.Now()
	var sent int
	for {
		select {
		case <-ticker.C:
			value := wave(time.Since(start))
			if err := client.Send(osc.NewMessage(*address, float32(value))); err != nil {
				logger.Warn("Send failed", "error", err)
				continue
			}
			sent++
			if sent%(*rateHz) == 0 {
				logger.Debug("Sent", "messages", sent, "value", value)
			}
		case <-ctx.Done():
			logger.Info("Stopped", "messages", sent)
			return nil
		}
	}
}

// discover waits up to 10 seconds for a bridge advertising over mDNS
func discover(ctx context.Context, logger *slog.Logger) (string, error) {
	logger.Info("Searching for bridge via mDNS...")
	disc := discovery.NewManager(discovery.Config{Logger: logger})
	disc.Browse()
	defer disc.Stop()

	select {
	case endpoint := <-disc.Endpoints():
		return endpoint.Addr(), nil
	case <-time.After(10 * time.Second):
		return "", fmt.Errorf("no bridge found after 10 seconds")
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
