package discovery

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// mDNS constants for secure endpoints.
const (
	// ServiceType is the mDNS service type for secure endpoints.
	ServiceType = "_xnet._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// DefaultTTL is the DNS record TTL.
	DefaultTTL = 120 * time.Second
)

// TXT record keys.
const (
	txtKeyRole    = "role"
	txtKeyVersion = "ver"
)

// Announcement describes an advertised endpoint.
type Announcement struct {
	// Instance is the mDNS instance name.
	Instance string

	// Port is the TCP port the endpoint listens on.
	Port int

	// Role is the endpoint's handshake role name.
	Role string

	// Version is the endpoint's protocol version policy name.
	Version string

	// Interface restricts advertising to one network interface.
	// Empty means all interfaces.
	Interface string

	// TTL is the DNS record TTL. Default: DefaultTTL.
	TTL time.Duration
}

// Announcer advertises one secure endpoint over mDNS.
type Announcer struct {
	mu     sync.Mutex
	server *zeroconf.Server
}

// Announce starts advertising the endpoint. Call Shutdown to withdraw
// the records.
func Announce(a Announcement) (*Announcer, error) {
	if a.Instance == "" {
		return nil, fmt.Errorf("instance name is required")
	}
	if a.Port <= 0 {
		return nil, fmt.Errorf("invalid port %d", a.Port)
	}
	if a.TTL == 0 {
		a.TTL = DefaultTTL
	}

	txt := []string{
		txtKeyRole + "=" + a.Role,
		txtKeyVersion + "=" + a.Version,
	}

	var opts []zeroconf.ServerOption
	opts = append(opts, zeroconf.TTL(uint32(a.TTL.Seconds())))

	server, err := zeroconf.Register(
		a.Instance,
		ServiceType,
		Domain,
		a.Port,
		txt,
		interfacesFor(a.Interface),
		opts...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register service: %w", err)
	}

	return &Announcer{server: server}, nil
}

// Shutdown withdraws the mDNS records. Safe to call multiple times.
func (a *Announcer) Shutdown() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}

// Peer is a discovered secure endpoint.
type Peer struct {
	// Instance is the mDNS instance name.
	Instance string

	// Addresses are the resolved IP addresses.
	Addresses []net.IP

	// Port is the advertised TCP port.
	Port int

	// Role is the advertised handshake role, if present.
	Role string

	// Version is the advertised version policy, if present.
	Version string
}

// Addr returns a dialable host:port for the first address.
func (p *Peer) Addr() string {
	if len(p.Addresses) == 0 {
		return ""
	}
	return net.JoinHostPort(p.Addresses[0].String(), strconv.Itoa(p.Port))
}

// Browse searches for secure endpoints until ctx is done and streams
// discovered peers on the returned channel. The channel closes when
// browsing stops.
func Browse(ctx context.Context) (<-chan *Peer, error) {
	out := make(chan *Peer)
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	go func() {
		defer close(out)
		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				peer := entryToPeer(entry)
				if peer == nil {
					continue
				}
				select {
				case out <- peer:
				case <-ctx.Done():
					return
				}
			case <-removed:
				// Withdrawn services are simply not re-emitted.
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		_ = zeroconf.Browse(ctx, ServiceType, Domain, entries, removed)
	}()

	return out, nil
}

// FindFirst browses until one peer is found or the timeout expires.
func FindFirst(ctx context.Context, timeout time.Duration) (*Peer, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	peers, err := Browse(ctx)
	if err != nil {
		return nil, err
	}
	for peer := range peers {
		return peer, nil
	}
	return nil, fmt.Errorf("no endpoint found within %v", timeout)
}

// entryToPeer converts a service entry, returning nil for entries
// without addresses.
func entryToPeer(entry *zeroconf.ServiceEntry) *Peer {
	addrs := make([]net.IP, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	addrs = append(addrs, entry.AddrIPv4...)
	addrs = append(addrs, entry.AddrIPv6...)
	if len(addrs) == 0 {
		return nil
	}

	peer := &Peer{
		Instance:  entry.Instance,
		Addresses: addrs,
		Port:      entry.Port,
	}
	for _, kv := range entry.Text {
		if v, ok := cutPrefix(kv, txtKeyRole+"="); ok {
			peer.Role = v
		}
		if v, ok := cutPrefix(kv, txtKeyVersion+"="); ok {
			peer.Version = v
		}
	}
	return peer
}

func cutPrefix(s, prefix string) (string, bool) {
	if len(s) >= len(prefix) && s[:len(prefix)] == prefix {
		return s[len(prefix):], true
	}
	return "", false
}

// interfacesFor resolves an interface name, nil meaning all.
func interfacesFor(name string) []net.Interface {
	if name == "" {
		return nil
	}
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil
	}
	return []net.Interface{*iface}
}
