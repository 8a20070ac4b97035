package broadcast

import (
	"context"
	"sync"

	"drawphone/internal/game"

	"go.uber.org/zap"
)

const subscriptionBuffer = 32

// Hub fans messages out to the subscriptions of one process, grouped by room
// code.
type Hub struct {
	mu      sync.Mutex
	groups  map[string]map[*Subscription]struct{}
	members map[string]map[string]int
	logger  *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		groups:  make(map[string]map[*Subscription]struct{}),
		members: make(map[string]map[string]int),
		logger:  logger,
	}
}

// Subscription is one connection's binding to a game channel. It receives
// messages until Close.
type Subscription struct {
	hub    *Hub
	code   string
	member string
	ch     chan []byte
	closed bool
}

// Subscribe binds a connection to code. member identifies who is connected
// (a session credential, or "" for spectators); first reports whether this is
// the member's only live subscription on this instance.
func (h *Hub) Subscribe(code, member string) (sub *Subscription, first bool) {
	sub = &Subscription{
		hub:    h,
		code:   code,
		member: member,
		ch:     make(chan []byte, subscriptionBuffer),
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.groups[code]
	if group == nil {
		group = make(map[*Subscription]struct{})
		h.groups[code] = group
	}
	group[sub] = struct{}{}
	if member == "" {
		return sub, false
	}
	counts := h.members[code]
	if counts == nil {
		counts = make(map[string]int)
		h.members[code] = counts
	}
	counts[member]++
	return sub, counts[member] == 1
}

// Messages is closed once the subscription is closed.
func (s *Subscription) Messages() <-chan []byte {
	return s.ch
}

func (s *Subscription) Code() string {
	return s.code
}

func (s *Subscription) Member() string {
	return s.member
}

// Close unbinds the subscription and reports whether it was the member's last
// one. It is safe to call more than once; later calls report false.
func (s *Subscription) Close() (last bool) {
	h := s.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	if s.closed {
		return false
	}
	s.closed = true
	if group := h.groups[s.code]; group != nil {
		delete(group, s)
		if len(group) == 0 {
			delete(h.groups, s.code)
		}
	}
	close(s.ch)
	if s.member == "" {
		return false
	}
	counts := h.members[s.code]
	counts[s.member]--
	if counts[s.member] > 0 {
		return false
	}
	delete(counts, s.member)
	if len(counts) == 0 {
		delete(h.members, s.code)
	}
	return true
}

// Publish implements game.Gateway for single-instance deployments.
func (h *Hub) Publish(_ context.Context, code string, ev game.Event) error {
	data, err := Encode(ev)
	if err != nil {
		return err
	}
	h.Deliver(code, data)
	return nil
}

// Deliver hands an encoded message to every subscriber of code and reports
// how many accepted it. A subscriber whose buffer is full misses the message.
func (h *Hub) Deliver(code string, data []byte) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	delivered := 0
	for sub := range h.groups[code] {
		select {
		case sub.ch <- data:
			delivered++
		default:
			h.logger.Warn("subscriber buffer full, dropping message", zap.String("code", code))
		}
	}
	return delivered
}

func (h *Hub) Subscribers(code string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.groups[code])
}

// Online reports how many live subscriptions member holds on code.
func (h *Hub) Online(code, member string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.members[code][member]
}
