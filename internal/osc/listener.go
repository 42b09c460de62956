// ABOUTME: OSC/UDP listener for the avatar parameter stream
// ABOUTME: Matches addresses against a pattern and forwards the first argument
package osc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"path"
	"sync/atomic"

	"github.com/hypebeast/go-osc/osc"
)

// maxPacketSize is the largest UDP payload
const maxPacketSize = 65535

// Handler receives the numeric value of each matching message
type Handler func(value float64)

// Config holds listener configuration
type Config struct {
	// Addr is the UDP listen address, e.g. ":9001"
	Addr string

	// Pattern is the OSC address to accept. '*' matches one path segment.
	Pattern string

	Logger *slog.Logger
}

// Listener receives OSC packets and dispatches matching values in arrival order
type Listener struct {
	config  Config
	handler Handler
	logger  *slog.Logger
	conn    net.PacketConn

	matched atomic.Int64
	ignored atomic.Int64
}

// NewListener validates the pattern and creates a listener
func NewListener(config Config, handler Handler) (*Listener, error) {
	if handler == nil {
		return nil, errors.New("osc handler is required")
	}
	if _, err := path.Match(config.Pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid osc pattern %q: %w", config.Pattern, err)
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Listener{
		config:  config,
		handler: handler,
		logger:  config.Logger,
	}, nil
}

// Listen binds the UDP socket
func (l *Listener) Listen() error {
	conn, err := net.ListenPacket("udp", l.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", l.config.Addr, err)
	}
	l.conn = conn
	l.logger.Info("Listening for OSC messages", "addr", conn.LocalAddr().String(), "pattern", l.config.Pattern)
	return nil
}

// Addr returns the bound address, or nil before Listen
func (l *Listener) Addr() net.Addr {
	if l.conn == nil {
		return nil
	}
	return l.conn.LocalAddr()
}

// Run reads packets until ctx is cancelled
func (l *Listener) Run(ctx context.Context) error {
	if l.conn == nil {
		if err := l.Listen(); err != nil {
			return err
		}
	}

	go func() {
		<-ctx.Done()
		l.conn.Close()
	}()

	buf := make([]byte, maxPacketSize)
	for {
		n, from, err := l.conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("osc read failed: %w", err)
		}

		packet, err := osc.ParsePacket(string(buf[:n]))
		if err != nil {
			l.logger.Debug("Discarding malformed OSC packet", "from", from.String(), "error", err)
			continue
		}

		l.Dispatch(packet)
	}
}

// Dispatch implements osc.Dispatcher. Bundles are walked depth first.
func (l *Listener) Dispatch(packet osc.Packet) {
	switch p := packet.(type) {
	case *osc.Message:
		l.dispatchMessage(p)
	case *osc.Bundle:
		for _, msg := range p.Messages {
			l.dispatchMessage(msg)
		}
		for _, b := range p.Bundles {
			l.Dispatch(b)
		}
	}
}

func (l *Listener) dispatchMessage(msg *osc.Message) {
	if ok, _ := path.Match(l.config.Pattern, msg.Address); !ok {
		l.ignored.Add(1)
		return
	}

	if len(msg.Arguments) == 0 {
		l.logger.Error("Empty arguments", "address", msg.Address)
		return
	}

	value, ok := toFloat(msg.Arguments[0])
	if !ok {
		l.logger.Error("Unsupported argument type", "address", msg.Address, "type", fmt.Sprintf("%T", msg.Arguments[0]))
		return
	}

	l.matched.Add(1)
	l.handler(value)
}

// Matched returns the number of forwarded messages
func (l *Listener) Matched() int64 {
	return l.matched.Load()
}

// Ignored returns the number of messages with a non-matching address
func (l *Listener) Ignored() int64 {
	return l.ignored.Load()
}

func toFloat(arg any) (float64, bool) {
	switch v := arg.(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

var _ osc.Dispatcher = (*Listener)(nil)
