// Package fanout distributes SBS lines to every connected consumer.
package fanout

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultQueueSize is the per-subscriber backlog for network clients
const DefaultQueueSize = 256

// Sink consumes SBS lines one at a time
type Sink interface {
	Send(line string) error
	Close() error
	String() string
}

// Options controls how a subscriber is treated when it falls behind or
// fails. A persistent subscriber loses lines instead of being removed.
type Options struct {
	QueueSize  int
	Persistent bool
}

type subscriber struct {
	id      uuid.UUID
	sink    Sink
	opts    Options
	queue   chan string
	done    chan struct{}
	once    sync.Once
	dropped atomic.Uint64
}

// Hub fans lines out to subscribers. Each subscriber is drained by its own
// goroutine so a slow consumer never blocks the feed.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]*subscriber
	logger      *logrus.Logger
	wg          sync.WaitGroup

	broadcasts atomic.Uint64
	evicted    atomic.Uint64
}

// NewHub creates an empty hub
func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		subscribers: make(map[uuid.UUID]*subscriber),
		logger:      logger,
	}
}

// Subscribe registers sink and starts delivering lines to it
func (h *Hub) Subscribe(sink Sink, opts Options) uuid.UUID {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	sub := &subscriber{
		id:    uuid.New(),
		sink:  sink,
		opts:  opts,
		queue: make(chan string, opts.QueueSize),
		done:  make(chan struct{}),
	}

	h.mu.Lock()
	h.subscribers[sub.id] = sub
	h.mu.Unlock()

	h.wg.Add(1)
	go h.drain(sub)

	h.logger.WithFields(logrus.Fields{
		"subscriber": sub.id.String(),
		"sink":       sink.String(),
		"persistent": opts.Persistent,
	}).Info("Subscriber added")
	return sub.id
}

// Unsubscribe removes a subscriber and closes its sink
func (h *Hub) Unsubscribe(id uuid.UUID) {
	h.mu.Lock()
	sub, ok := h.subscribers[id]
	delete(h.subscribers, id)
	h.mu.Unlock()

	if ok {
		sub.stop()
		h.logger.WithField("subscriber", id.String()).Info("Subscriber removed")
	}
}

// Broadcast queues lines for every subscriber
func (h *Hub) Broadcast(lines []string) {
	h.broadcasts.Add(1)

	var overflowed []uuid.UUID
	h.mu.RLock()
	for id, sub := range h.subscribers {
		for _, line := range lines {
			select {
			case sub.queue <- line:
				continue
			default:
			}
			if sub.opts.Persistent {
				sub.dropped.Add(1)
				continue
			}
			overflowed = append(overflowed, id)
			break
		}
	}
	h.mu.RUnlock()

	for _, id := range overflowed {
		h.logger.WithField("subscriber", id.String()).Warn("Subscriber too slow, disconnecting")
		h.evicted.Add(1)
		h.Unsubscribe(id)
	}
}

// Len returns the number of subscribers
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Stats holds hub counters
type Stats struct {
	Subscribers int    `json:"subscribers"`
	Broadcasts  uint64 `json:"broadcasts"`
	Evicted     uint64 `json:"evicted"`
	Dropped     uint64 `json:"dropped"`
}

// Stats returns the counters
func (h *Hub) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var dropped uint64
	for _, sub := range h.subscribers {
		dropped += sub.dropped.Load()
	}
	return Stats{
		Subscribers: len(h.subscribers),
		Broadcasts:  h.broadcasts.Load(),
		Evicted:     h.evicted.Load(),
		Dropped:     dropped,
	}
}

// Close removes every subscriber and waits for their goroutines
func (h *Hub) Close() {
	h.mu.Lock()
	subs := h.subscribers
	h.subscribers = make(map[uuid.UUID]*subscriber)
	h.mu.Unlock()

	for _, sub := range subs {
		sub.stop()
	}
	h.wg.Wait()
}

func (h *Hub) drain(sub *subscriber) {
	defer h.wg.Done()
	defer sub.sink.Close()

	for {
		select {
		case <-sub.done:
			if sub.opts.Persistent {
				h.flush(sub)
			}
			return
		case line := <-sub.queue:
			if err := sub.sink.Send(line); err != nil {
				entry := h.logger.WithFields(logrus.Fields{
					"subscriber": sub.id.String(),
					"sink":       sub.sink.String(),
				}).WithError(err)
				if sub.opts.Persistent {
					entry.Debug("Failed to deliver line")
					continue
				}
				entry.Info("Subscriber write failed, disconnecting")
				go h.Unsubscribe(sub.id)
				return
			}
		}
	}
}

// flush delivers whatever is still queued
func (h *Hub) flush(sub *subscriber) {
	for {
		select {
		case line := <-sub.queue:
			if err := sub.sink.Send(line); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.done) })
}
