package rtc

import (
	"context"
	"fmt"

	"github.com/pion/sdp/v3"
	"github.com/pion/webrtc/v4"
	"github.com/sirupsen/logrus"

	"qrlink/internal/domain"
	"qrlink/internal/logging"
	"qrlink/internal/protocol/signal"
)

// DefaultICEServers are public STUN servers used for candidate discovery.
var DefaultICEServers = []string{
	"stun:stun.l.google.com:19302",
	"stun:stun1.l.google.com:19302",
	"stun:stun.services.mozilla.com",
}

// PionConfig configures PionFactory.
type PionConfig struct {
	ICEServers []string
	// IncludeLoopback gathers loopback candidates, which lets two links on
	// one host connect without any external interface.
	IncludeLoopback bool
}

// PionFactory creates links backed by pion/webrtc.
type PionFactory struct {
	api  *webrtc.API
	conf webrtc.Configuration
	log  *logrus.Entry
}

// NewPionFactory returns a factory for cfg.
func NewPionFactory(cfg PionConfig) *PionFactory {
	se := webrtc.SettingEngine{}
	se.SetIncludeLoopbackCandidate(cfg.IncludeLoopback)

	conf := webrtc.Configuration{}
	if len(cfg.ICEServers) > 0 {
		conf.ICEServers = []webrtc.ICEServer{{URLs: append([]string(nil), cfg.ICEServers...)}}
	}
	return &PionFactory{
		api:  webrtc.NewAPI(webrtc.WithSettingEngine(se)),
		conf: conf,
		log:  logging.For("rtc-pion"),
	}
}

// NewLink creates a peer connection with handlers installed.
func (f *PionFactory) NewLink(h LinkHandlers) (Link, error) {
	pc, err := f.api.NewPeerConnection(f.conf)
	if err != nil {
		return nil, fmt.Errorf("new peer connection: %w", err)
	}
	l := &pionLink{pc: pc, log: f.log}

	pc.OnICEConnectionStateChange(func(st webrtc.ICEConnectionState) {
		l.log.WithField("ice_state", st.String()).Debug("ice connection state")
		var ls LinkState
		switch st {
		case webrtc.ICEConnectionStateConnected, webrtc.ICEConnectionStateCompleted:
			ls = LinkConnected
		case webrtc.ICEConnectionStateDisconnected:
			ls = LinkDisconnected
		case webrtc.ICEConnectionStateFailed:
			ls = LinkFailed
		case webrtc.ICEConnectionStateClosed:
			ls = LinkClosed
		default:
			return
		}
		if h.ConnectionState != nil {
			h.ConnectionState(ls)
		}
	})
	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		if h.Channel != nil {
			h.Channel(&pionChannel{dc: dc})
		}
	})
	return l, nil
}

type pionLink struct {
	pc  *webrtc.PeerConnection
	log *logrus.Entry
}

func (l *pionLink) CreateChannel(label string) (Channel, error) {
	ordered := true
	dc, err := l.pc.CreateDataChannel(label, &webrtc.DataChannelInit{Ordered: &ordered})
	if err != nil {
		return nil, err
	}
	return &pionChannel{dc: dc}, nil
}

func (l *pionLink) SetRemoteDescription(d signal.Descriptor) error {
	var parsed sdp.SessionDescription
	if err := parsed.Unmarshal([]byte(d.SDP)); err != nil {
		return fmt.Errorf("%w: unparseable sdp: %v", domain.ErrSignalRejected, err)
	}
	l.log.WithFields(logrus.Fields{
		"type":       d.Type,
		"media":      len(parsed.MediaDescriptions),
		"candidates": countCandidates(&parsed),
	}).Debug("applying remote description")

	typ := webrtc.SDPTypeOffer
	if d.IsAnswer() {
		typ = webrtc.SDPTypeAnswer
	}
	return l.pc.SetRemoteDescription(webrtc.SessionDescription{Type: typ, SDP: d.SDP})
}

func (l *pionLink) CreateOffer(ctx context.Context) (string, error) {
	offer, err := l.pc.CreateOffer(nil)
	if err != nil {
		return "", err
	}
	return l.applyLocal(ctx, offer)
}

func (l *pionLink) CreateAnswer(ctx context.Context) (string, error) {
	answer, err := l.pc.CreateAnswer(nil)
	if err != nil {
		return "", err
	}
	return l.applyLocal(ctx, answer)
}

// applyLocal sets desc and waits for gathering so the returned SDP carries
// every candidate.
func (l *pionLink) applyLocal(ctx context.Context, desc webrtc.SessionDescription) (string, error) {
	gathered := webrtc.GatheringCompletePromise(l.pc)
	if err := l.pc.SetLocalDescription(desc); err != nil {
		return "", fmt.Errorf("set local description: %w", err)
	}
	select {
	case <-gathered:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	local := l.pc.LocalDescription()
	if local == nil {
		return "", fmt.Errorf("local description missing after gathering")
	}
	return local.SDP, nil
}

func (l *pionLink) Close() error { return l.pc.Close() }

func countCandidates(sd *sdp.SessionDescription) int {
	n := 0
	for _, a := range sd.Attributes {
		if a.Key == "candidate" {
			n++
		}
	}
	for _, md := range sd.MediaDescriptions {
		for _, a := range md.Attributes {
			if a.Key == "candidate" {
				n++
			}
		}
	}
	return n
}

type pionChannel struct {
	dc *webrtc.DataChannel
}

func (c *pionChannel) Label() string { return c.dc.Label() }

func (c *pionChannel) OnOpen(f func()) { c.dc.OnOpen(f) }

func (c *pionChannel) OnMessage(f func(string)) {
	c.dc.OnMessage(func(msg webrtc.DataChannelMessage) { f(string(msg.Data)) })
}

func (c *pionChannel) OnClose(f func()) { c.dc.OnClose(f) }

func (c *pionChannel) SendText(s string) error { return c.dc.SendText(s) }

func (c *pionChannel) IsOpen() bool { return c.dc.ReadyState() == webrtc.DataChannelStateOpen }

func (c *pionChannel) Close() error { return c.dc.Close() }

// Compile-time assertion that PionFactory implements LinkFactory.
var _ LinkFactory = (*PionFactory)(nil)
