package rtctest

import (
	"errors"
	"sync"
)

// ErrNotOpen is returned by SendText on a channel that is not open.
var ErrNotOpen = errors.New("channel not open")

type channel struct {
	label string

	mu        sync.Mutex
	peer      *channel
	isOpen    bool
	closed    bool
	onOpen    func()
	onMessage func(string)
	onClose   func()

	inbox chan string
	quit  chan struct{}
}

func newChannel(label string) *channel {
	c := &channel{
		label: label,
		inbox: make(chan string, 256),
		quit:  make(chan struct{}),
	}
	go c.deliver()
	return c
}

func (c *channel) pair(other *channel) {
	c.mu.Lock()
	c.peer = other
	c.mu.Unlock()
	other.mu.Lock()
	other.peer = c
	other.mu.Unlock()
}

// deliver hands inbound messages to the handler one at a time, in order.
func (c *channel) deliver() {
	for {
		select {
		case m := <-c.inbox:
			c.mu.Lock()
			f := c.onMessage
			c.mu.Unlock()
			if f != nil {
				f(m)
			}
		case <-c.quit:
			return
		}
	}
}

func (c *channel) open() {
	c.mu.Lock()
	if c.closed || c.isOpen {
		c.mu.Unlock()
		return
	}
	c.isOpen = true
	f := c.onOpen
	c.mu.Unlock()
	if f != nil {
		f()
	}
}

func (c *channel) Label() string { return c.label }

func (c *channel) OnOpen(f func()) {
	c.mu.Lock()
	c.onOpen = f
	already := c.isOpen
	c.mu.Unlock()
	if already && f != nil {
		go f()
	}
}

func (c *channel) OnMessage(f func(string)) {
	c.mu.Lock()
	c.onMessage = f
	c.mu.Unlock()
}

func (c *channel) OnClose(f func()) {
	c.mu.Lock()
	c.onClose = f
	c.mu.Unlock()
}

func (c *channel) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isOpen && !c.closed
}

func (c *channel) SendText(s string) error {
	c.mu.Lock()
	peer, ok := c.peer, c.isOpen && !c.closed
	c.mu.Unlock()
	if !ok || peer == nil {
		return ErrNotOpen
	}
	select {
	case peer.inbox <- s:
		return nil
	case <-peer.quit:
		return ErrNotOpen
	}
}

func (c *channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.isOpen = false
	peer, f := c.peer, c.onClose
	c.mu.Unlock()
	close(c.quit)

	if f != nil {
		f()
	}
	if peer != nil {
		_ = peer.Close()
	}
	return nil
}
