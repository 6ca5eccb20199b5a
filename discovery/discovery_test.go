package discovery

import (
	"context"
	"net"
	"os"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/grandcat/zeroconf"
)

func TestPeer_Addr(t *testing.T) {
	tests := []struct {
		name string
		peer Peer
		want string
	}{
		{"ipv4", Peer{Host: "box.local.", Addrs: []net.IP{net.ParseIP("192.168.1.5")}, Port: 8080}, "192.168.1.5:8080"},
		{"ipv6", Peer{Addrs: []net.IP{net.ParseIP("fe80::1")}, Port: 8080}, "[fe80::1]:8080"},
		{"host only", Peer{Host: "box.local.", Port: 9000}, "box.local.:9000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.peer.Addr(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}

	p := Peer{Addrs: []net.IP{net.ParseIP("10.0.0.2")}, Port: 80}
	if got, want := p.URL(), "ws://10.0.0.2:80/ws"; got != want {
		t.Errorf("URL() = %q, want %q", got, want)
	}
}

func TestPeerFromEntry(t *testing.T) {
	e := zeroconf.NewServiceEntry("node-a", Service, Domain)
	e.HostName = "node-a.local."
	e.Port = 8080
	e.AddrIPv4 = []net.IP{net.ParseIP("192.168.1.5")}
	e.AddrIPv6 = []net.IP{net.ParseIP("fe80::1")}
	e.Text = []string{"replica=0"}

	p := peerFromEntry(e)
	if p.Instance != "node-a" || p.Port != 8080 || len(p.Addrs) != 2 || !p.Addrs[0].Equal(net.ParseIP("192.168.1.5")) {
		t.Errorf("got %+v", p)
	}
	if len(p.Text) != 1 || p.Text[0] != "replica=0" {
		t.Errorf("text = %v, want [replica=0]", p.Text)
	}
}

func TestAnnounceAndBrowse(t *testing.T) {
	if os.Getenv("MDNS_TEST") == "" {
		t.Skip("MDNS_TEST not set, skipping mDNS tests")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	instance := "blocktext-test-" + time.Now().Format("150405")
	errc := make(chan error, 1)
	go func() { errc <- Announce(ctx, instance, 18080, []string{"test=1"}, logr.Discard()) }()

	peers, err := Browse(context.Background(), 3*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, p := range peers {
		if p.Instance == instance && p.Port == 18080 {
			found = true
		}
	}
	if !found {
		t.Errorf("peers = %+v, want %s", peers, instance)
	}

	cancel()
	if err := <-errc; err != nil {
		t.Errorf("Announce: %v", err)
	}
}
