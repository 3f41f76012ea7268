package rtc

import (
	"sync"

	"qrlink/internal/protocol/signal"
)

type eventKind int

const (
	evState eventKind = iota
	evLocalDescriptor
	evLinkState
	evChannel
	evChannelOpen
	evChannelMessage
	evChannelClose
	evFailed
	evTerminal
)

type event struct {
	kind  eventKind
	state State
	desc  signal.Descriptor
	link  LinkState
	ch    Channel
	text  string
	err   error
}

// queue is an unbounded FIFO; push never blocks so network callbacks can
// always hand off and return.
type queue struct {
	mu    sync.Mutex
	items []event
	wake  chan struct{}
}

func newQueue() *queue {
	return &queue{wake: make(chan struct{}, 1)}
}

func (q *queue) push(ev event) {
	q.mu.Lock()
	q.items = append(q.items, ev)
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *queue) pop() event {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			ev := q.items[0]
			q.items[0] = event{}
			q.items = q.items[1:]
			q.mu.Unlock()
			return ev
		}
		q.mu.Unlock()
		<-q.wake
	}
}
