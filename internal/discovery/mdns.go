// ABOUTME: mDNS service discovery for pcmstream servers
// ABOUTME: Advertises stream endpoints with their formats and browses for servers
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/mdns"

	"github.com/Sendspin/pcmstream/pkg/audio"
)

// ServiceType is the DNS-SD service type advertised by pcmstream servers
const ServiceType = "_pcmstream._tcp"

// DefaultBrowseTimeout bounds a single discovery query
const DefaultBrowseTimeout = 3 * time.Second

// EndpointInfo describes one stream route and the format it serves
type EndpointInfo struct {
	Path     string
	Format   audio.Format
	Encoding audio.Encoding
}

// Config holds discovery configuration
type Config struct {
	ServiceName string
	Port        int
	Endpoints   []EndpointInfo
}

// Manager advertises a server via mDNS
type Manager struct {
	config Config
	server *mdns.Server
}

// ServerInfo describes a discovered server
type ServerInfo struct {
	Name      string
	Host      string
	Port      int
	Endpoints []EndpointInfo
}

// URL returns the HTTP URL of a stream path on the server
func (s *ServerInfo) URL(path string) string {
	return "http://" + net.JoinHostPort(s.Host, strconv.Itoa(s.Port)) + path
}

// NewManager creates a discovery manager
func NewManager(config Config) *Manager {
	return &Manager{config: config}
}

// Advertise starts answering mDNS queries for this server
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
		TXTRecords(m.config.Endpoints),
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{
		Zone:   service,
		Logger: slog.NewLogLogger(slog.Default().Handler(), slog.LevelDebug),
	})
	if err != nil {
		return fmt.Errorf("failed to create mdns server: %w", err)
	}
	m.server = server

	slog.Info("advertising mDNS service",
		"name", m.config.ServiceName,
		"port", m.config.Port,
		"type", ServiceType,
		"endpoints", len(m.config.Endpoints))
	return nil
}

// Stop withdraws the advertisement
func (m *Manager) Stop() {
	if m.server != nil {
		m.server.Shutdown()
		m.server = nil
	}
}

// Browse queries the local network for pcmstream servers until timeout
// elapses or ctx is cancelled. A zero timeout means DefaultBrowseTimeout.
func Browse(ctx context.Context, timeout time.Duration) ([]*ServerInfo, error) {
	if timeout <= 0 {
		timeout = DefaultBrowseTimeout
	}

	entries := make(chan *mdns.ServiceEntry, 16)
	done := make(chan []*ServerInfo, 1)

	go func() {
		var servers []*ServerInfo
		seen := make(map[string]bool)
		for entry := range entries {
			if entry.AddrV4 == nil || seen[entry.Name] {
				continue
			}
			seen[entry.Name] = true

			server := &ServerInfo{
				Name:      entry.Name,
				Host:      entry.AddrV4.String(),
				Port:      entry.Port,
				Endpoints: ParseTXT(entry.InfoFields),
			}
			slog.Info("discovered server", "name", server.Name, "host", server.Host, "port", server.Port)
			servers = append(servers, server)
		}
		done <- servers
	}()

	params := &mdns.QueryParam{
		Service:     ServiceType,
		Domain:      "local",
		Timeout:     timeout,
		Entries:     entries,
		DisableIPv6: true,
		Logger:      slog.NewLogLogger(slog.Default().Handler(), slog.LevelDebug),
	}

	err := mdns.QueryContext(ctx, params)
	close(entries)
	servers := <-done

	if err != nil && ctx.Err() == nil {
		return servers, fmt.Errorf("mdns query failed: %w", err)
	}
	return servers, nil
}

// TXTRecords encodes endpoints as TXT strings of the form
// "path=/sine;rate=44100;channels=2;enc=f32be"
func TXTRecords(endpoints []EndpointInfo) []string {
	records := make([]string, 0, len(endpoints))
	for _, ep := range endpoints {
		records = append(records, fmt.Sprintf("path=%s;rate=%d;channels=%d;enc=%s",
			ep.Path, ep.Format.SampleRate, ep.Format.Channels, ep.Encoding))
	}
	return records
}

// ParseTXT decodes records produced by TXTRecords. Records that do not
// describe a complete, valid endpoint are skipped.
func ParseTXT(records []string) []EndpointInfo {
	var endpoints []EndpointInfo
	for _, record := range records {
		ep, ok := parseRecord(record)
		if !ok {
			slog.Debug("ignoring TXT record", "record", record)
			continue
		}
		endpoints = append(endpoints, ep)
	}
	return endpoints
}

func parseRecord(record string) (EndpointInfo, bool) {
	ep := EndpointInfo{Encoding: audio.BigEndianFloat32}
	for field := range strings.SplitSeq(record, ";") {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			return ep, false
		}
		var err error
		switch key {
		case "path":
			ep.Path = value
		case "rate":
			ep.Format.SampleRate, err = strconv.Atoi(value)
		case "channels":
			ep.Format.Channels, err = strconv.Atoi(value)
		case "enc":
			ep.Encoding, err = audio.ParseEncoding(value)
		}
		if err != nil {
			return ep, false
		}
	}
	if !strings.HasPrefix(ep.Path, "/") || ep.Format.Validate() != nil {
		return ep, false
	}
	return ep, true
}

// getLocalIPs returns the non-loopback IPv4 addresses of interfaces that are up
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
