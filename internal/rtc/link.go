package rtc

import (
	"context"

	"qrlink/internal/protocol/signal"
)

// LinkState is the reachability of a link as reported by ICE.
type LinkState int

const (
	LinkConnected LinkState = iota + 1
	LinkDisconnected
	LinkFailed
	LinkClosed
)

func (s LinkState) String() string {
	switch s {
	case LinkConnected:
		return "connected"
	case LinkDisconnected:
		return "disconnected"
	case LinkFailed:
		return "failed"
	case LinkClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// LinkHandlers receive link callbacks. They may be called from any goroutine.
type LinkHandlers struct {
	ConnectionState func(LinkState)
	// Channel is called for a data channel announced by the remote side.
	Channel func(Channel)
}

// Link is one peer connection.
type Link interface {
	CreateChannel(label string) (Channel, error)
	SetRemoteDescription(d signal.Descriptor) error
	// CreateOffer and CreateAnswer apply the local description and return
	// its SDP once candidate gathering is complete.
	CreateOffer(ctx context.Context) (string, error)
	CreateAnswer(ctx context.Context) (string, error)
	Close() error
}

// Channel is a reliable, ordered text channel over a Link.
type Channel interface {
	Label() string
	OnOpen(func())
	OnMessage(func(string))
	OnClose(func())
	SendText(string) error
	IsOpen() bool
	Close() error
}

// LinkFactory creates links. The handlers are installed before NewLink
// returns, so no remote channel can be missed.
type LinkFactory interface {
	NewLink(h LinkHandlers) (Link, error)
}
