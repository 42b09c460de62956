// ABOUTME: mDNS advertisement and browsing for the OSC endpoint
// ABOUTME: Lets OSC senders on the LAN find the bridge without manual setup
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/hashicorp/mdns"
)

// ServiceType is the DNS-SD type of an OSC receiver
const ServiceType = "_osc._udp"

// Config holds discovery configuration
type Config struct {
	ServiceName string
	Port        int
	// Text is published as TXT records, e.g. "parameter=/avatar/..."
	Text   []string
	Logger *slog.Logger
}

// Manager handles mDNS operations
type Manager struct {
	config    Config
	logger    *slog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	endpoints chan *Endpoint
}

// Endpoint describes a discovered OSC receiver
type Endpoint struct {
	Name string
	Host string
	Port int
	Text []string
}

// Addr returns host:port
func (e *Endpoint) Addr() string {
	return net.JoinHostPort(e.Host, fmt.Sprint(e.Port))
}

// NewManager creates a discovery manager
func NewManager(config Config) *Manager {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		config:    config,
		logger:    config.Logger,
		ctx:       ctx,
		cancel:    cancel,
		endpoints: make(chan *Endpoint, 10),
	}
}

// Advertise publishes the OSC port until Stop is called
func (m *Manager) Advertise() error {
	ips, err := getLocalIPs()
	if err != nil {
		return fmt.Errorf("failed to get local IPs: %w", err)
	}

	service, err := mdns.NewMDNSService(
		m.config.ServiceName,
		ServiceType,
		"",
		"",
		m.config.Port,
		ips,
		m.config.Text,
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("failed to create mdns server: %w", err)
	}

	m.logger.Info("Advertising mDNS service", "name", m.config.ServiceName, "port", m.config.Port, "type", ServiceType)

	go func() {
		<-m.ctx.Done()
		server.Shutdown()
	}()

	return nil
}

// Browse searches for OSC receivers in the background
func (m *Manager) Browse() {
	go m.browseLoop()
}

func (m *Manager) browseLoop() {
	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		entries := make(chan *mdns.ServiceEntry, 10)
		go func() {
			for entry := range entries {
				if entry.AddrV4 == nil {
					continue
				}
				endpoint := &Endpoint{
					Name: entry.Name,
					Host: entry.AddrV4.String(),
					Port: entry.Port,
					Text: entry.InfoFields,
				}
				m.logger.Info("Discovered OSC receiver", "name", endpoint.Name, "addr", endpoint.Addr())

				select {
				case m.endpoints <- endpoint:
				case <-m.ctx.Done():
					return
				}
			}
		}()

		params := &mdns.QueryParam{
			Service:             ServiceType,
			Domain:              "local",
			Timeout:             3 * time.Second,
			Entries:             entries,
			DisableIPv6:         true,
			WantUnicastResponse: false,
		}
		if err := mdns.Query(params); err != nil {
			m.logger.Warn("mDNS query failed", "error", err)
		}
		close(entries)
	}
}

// Endpoints returns the channel of discovered receivers
func (m *Manager) Endpoints() <-chan *Endpoint {
	return m.endpoints
}

// Stop stops advertising and browsing
func (m *Manager) Stop() {
	m.cancel()
}

// getLocalIPs returns the IPv4 addresses of all up, non-loopback interfaces
func getLocalIPs() ([]net.IP, error) {
	var ips []net.IP

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() && ipnet.IP.To4() != nil {
				ips = append(ips, ipnet.IP)
			}
		}
	}

	return ips, nil
}
