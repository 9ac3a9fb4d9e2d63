// ABOUTME: mDNS advertisement of the FLAC relay
// ABOUTME: Publishes the relay WebSocket endpoint and its stream format as TXT records
package discovery

import (
	"fmt"
	"log"
	"net"
	"sort"

	"github.com/hashicorp/mdns"
)

// ServiceType is the DNS-SD type the relay registers under.
const ServiceType = "_resonate-server._tcp"

// Config holds advertisement settings
type Config struct {
	ServiceName string
	Port        int
	// Path is the WebSocket endpoint path
	Path string
	// TXT holds extra key=value records such as the codec.
	TXT map[string]string
}

// Advertiser publishes the relay via mDNS
type Advertiser struct {
	config Config
	server *mdns.Server
}

// NewAdvertiser creates an advertiser. Nothing is published until Start.
func NewAdvertiser(config Config) *Advertiser {
	if config.Path == "" {
		config.Path = "/resonate"
	}
	return &Advertiser{config: config}
}

// txtRecords returns the TXT records in a stable order.
func (a *Advertiser) txtRecords() []string {
	txt := []string{"path=" + a.config.Path}
	keys := make([]string, 0, len(a.config.TXT))
	for k := range a.config.TXT {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		txt = append(txt, k+"="+a.config.TXT[k])
	}
	return txt
}

// Start begins answering mDNS queries.
func (a *Advertiser) Start() error {
	if a.server != nil {
		return nil
	}

	ips, err := getLocalIPs()
	if err != nil {
		return fmt.Errorf("failed to get local IPs: %w", err)
	}

	service, err := mdns.NewMDNSService(
		a.config.ServiceName,
		ServiceType,
		"",
		"",
		a.config.Port,
		ips,
		a.txtRecords(),
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("failed to create mdns server: %w", err)
	}
	a.server = server

	log.Printf("Advertising mDNS service: %s on port %d (type: %s)", a.config.ServiceName, a.config.Port, ServiceType)
	return nil
}

// Stop withdraws the advertisement.
func (a *Advertiser) Stop() {
	if a.server == nil {
		return
	}
	if err := a.server.Shutdown(); err != nil {
		log.Printf("mDNS shutdown error: %v", err)
	}
	a.server = nil
}

// getLocalIPs returns the IPv4 addresses of interfaces that are up
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
