// Package rtctest provides an in-memory rtc.LinkFactory for tests.
//
// Links created from one Network find each other through the descriptors they
// exchange, exactly like real peers: the offer names the offering link, the
// answer names both. Applying the answer connects the pair asynchronously,
// announces the initiator's channels to the responder and opens them.
package rtctest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"qrlink/internal/protocol/signal"
	"qrlink/internal/rtc"
)

// Option configures a Network.
type Option func(*Network)

// FailICE makes every pairing report rtc.LinkFailed instead of connecting.
func FailICE() Option { return func(n *Network) { n.failICE = true } }

// Network is a set of links that can reach each other.
type Network struct {
	mu      sync.Mutex
	seq     int
	links   map[string]*link
	failICE bool
}

// NewNetwork returns an empty network.
func NewNetwork(opts ...Option) *Network {
	n := &Network{links: make(map[string]*link)}
	for _, o := range opts {
		o(n)
	}
	return n
}

// NewLink implements rtc.LinkFactory.
func (n *Network) NewLink(h rtc.LinkHandlers) (rtc.Link, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.seq++
	l := &link{net: n, id: fmt.Sprintf("L%d", n.seq), h: h}
	n.links[l.id] = l
	return l, nil
}

// Disconnect reports rtc.LinkDisconnected on every connected link.
func (n *Network) Disconnect() {
	for _, l := range n.snapshot() {
		if l.isConnected() {
			l.report(rtc.LinkDisconnected)
		}
	}
}

func (n *Network) snapshot() []*link {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]*link, 0, len(n.links))
	for _, l := range n.links {
		out = append(out, l)
	}
	return out
}

func (n *Network) lookup(id string) *link {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.links[id]
}

type link struct {
	net *Network
	id  string
	h   rtc.LinkHandlers

	mu        sync.Mutex
	remoteID  string
	channels  []*channel
	peer      *link
	connected bool
	closed    bool
}

func (l *link) CreateChannel(label string) (rtc.Channel, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, errors.New("link closed")
	}
	c := newChannel(label)
	l.channels = append(l.channels, c)
	return c, nil
}

func (l *link) CreateOffer(ctx context.Context) (string, error) {
	return l.describe(ctx, "offer", "")
}

func (l *link) CreateAnswer(ctx context.Context) (string, error) {
	l.mu.Lock()
	remote := l.remoteID
	l.mu.Unlock()
	if remote == "" {
		return "", errors.New("no remote offer applied")
	}
	return l.describe(ctx, "answer", remote)
}

func (l *link) describe(ctx context.Context, role, peer string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "v=0\r\no=memlink %s 0 IN IP4 127.0.0.1\r\ns=-\r\n", l.id)
	fmt.Fprintf(&b, "a=memlink-role:%s\r\na=memlink-id:%s\r\n", role, l.id)
	if peer != "" {
		fmt.Fprintf(&b, "a=memlink-peer:%s\r\n", peer)
	}
	return b.String(), nil
}

type parsed struct {
	role, id, peer string
}

func parse(sdp string) (parsed, error) {
	var p parsed
	sc := bufio.NewScanner(strings.NewReader(sdp))
	first := true
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if first {
			if line != "v=0" {
				return p, errors.New("not a session description")
			}
			first = false
			continue
		}
		switch {
		case strings.HasPrefix(line, "a=memlink-role:"):
			p.role = strings.TrimPrefix(line, "a=memlink-role:")
		case strings.HasPrefix(line, "a=memlink-id:"):
			p.id = strings.TrimPrefix(line, "a=memlink-id:")
		case strings.HasPrefix(line, "a=memlink-peer:"):
			p.peer = strings.TrimPrefix(line, "a=memlink-peer:")
		}
	}
	if p.id == "" || p.role == "" {
		return p, errors.New("not a memlink description")
	}
	return p, nil
}

func (l *link) SetRemoteDescription(d signal.Descriptor) error {
	p, err := parse(d.SDP)
	if err != nil {
		return err
	}
	if p.role != string(d.Type) {
		return fmt.Errorf("descriptor type %q does not match sdp role %q", d.Type, p.role)
	}
	switch d.Type {
	case signal.Offer:
		l.mu.Lock()
		l.remoteID = p.id
		l.mu.Unlock()
		return nil
	case signal.Answer:
		if p.peer != l.id {
			return fmt.Errorf("answer is for %q, not %q", p.peer, l.id)
		}
		remote := l.net.lookup(p.id)
		if remote == nil {
			return fmt.Errorf("unknown peer %q", p.id)
		}
		go l.net.connect(l, remote)
		return nil
	default:
		return fmt.Errorf("unsupported descriptor type %q", d.Type)
	}
}

func (n *Network) connect(offerer, answerer *link) {
	if n.failICE {
		offerer.report(rtc.LinkFailed)
		answerer.report(rtc.LinkFailed)
		return
	}

	offerer.mu.Lock()
	answerer.mu.Lock()
	if offerer.closed || answerer.closed {
		answerer.mu.Unlock()
		offerer.mu.Unlock()
		return
	}
	offerer.peer, answerer.peer = answerer, offerer
	offerer.connected, answerer.connected = true, true
	local := append([]*channel(nil), offerer.channels...)
	answerer.mu.Unlock()
	offerer.mu.Unlock()

	offerer.report(rtc.LinkConnected)
	answerer.report(rtc.LinkConnected)

	for _, c := range local {
		remote := newChannel(c.label)
		c.pair(remote)
		answerer.mu.Lock()
		answerer.channels = append(answerer.channels, remote)
		answerer.mu.Unlock()
		if answerer.h.Channel != nil {
			answerer.h.Channel(remote)
		}
		c.open()
		remote.open()
	}
}

func (l *link) isConnected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connected && !l.closed
}

func (l *link) report(st rtc.LinkState) {
	if l.h.ConnectionState != nil {
		l.h.ConnectionState(st)
	}
}

func (l *link) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	chans := append([]*channel(nil), l.channels...)
	l.mu.Unlock()

	for _, c := range chans {
		_ = c.Close()
	}
	l.report(rtc.LinkClosed)
	return nil
}

// Compile-time assertion that Network implements rtc.LinkFactory.
var _ rtc.LinkFactory = (*Network)(nil)
