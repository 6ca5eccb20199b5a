// Package discovery announces sync servers on the local network and finds
// the ones other nodes announce, over mDNS.
package discovery

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/go-logr/logr"
	"github.com/grandcat/zeroconf"
)

const (
	Service = "_blocktext._tcp"
	Domain  = "local."
)

// Peer is a sync server found on the network.
type Peer struct {
	Instance string
	Host     string
	Addrs    []net.IP
	Port     int
	Text     []string
}

// Addr is host:port for the first address the peer announced, falling
// back to its host name.
func (p Peer) Addr() string {
	host := p.Host
	if len(p.Addrs) > 0 {
		host = p.Addrs[0].String()
	}
	return net.JoinHostPort(host, strconv.Itoa(p.Port))
}

// URL is the peer's WebSocket endpoint.
func (p Peer) URL() string {
	return "ws://" + p.Addr() + "/ws"
}

// Announce registers instance on port until ctx is done.
func Announce(ctx context.Context, instance string, port int, text []string, log logr.Logger) error {
	server, err := zeroconf.Register(instance, Service, Domain, port, text, nil)
	if err != nil {
		return fmt.Errorf("register %s: %w", instance, err)
	}
	defer server.Shutdown()

	log.WithName("discovery").Info("announced", "instance", instance, "service", Service, "port", port)
	<-ctx.Done()
	return nil
}

// Browse collects the peers that answer within timeout. Each instance is
// reported once.
func Browse(ctx context.Context, timeout time.Duration) ([]Peer, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("create resolver: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	entries := make(chan *zeroconf.ServiceEntry, 32)
	if err := resolver.Browse(ctx, Service, Domain, entries); err != nil {
		return nil, fmt.Errorf("browse %s: %w", Service, err)
	}

	var peers []Peer
	seen := mapset.NewThreadUnsafeSet[string]()
	for {
		select {
		case e, ok := <-entries:
			if !ok {
				return peers, nil
			}
			if seen.Add(e.Instance) {
				peers = append(peers, peerFromEntry(e))
			}
		case <-ctx.Done():
			return peers, nil
		}
	}
}

func peerFromEntry(e *zeroconf.ServiceEntry) Peer {
	addrs := make([]net.IP, 0, len(e.AddrIPv4)+len(e.AddrIPv6))
	addrs = append(addrs, e.AddrIPv4...)
	addrs = append(addrs, e.AddrIPv6...)
	return Peer{
		Instance: e.Instance,
		Host:     e.HostName,
		Addrs:    addrs,
		Port:     e.Port,
		Text:     e.Text,
	}
}
