// Package gameserver exposes the PvP core over gRPC and wires its collaborators.
package gameserver

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/pvp/internal/game/challenge"
	"github.com/cory-johannsen/pvp/internal/game/combat"
)

// DefaultSubscriberBuffer is the event buffer of a Subscriber when none is configured.
const DefaultSubscriberBuffer = 64

// EventType names a pushed notification.
type EventType string

const (
	EventChallengeReceived EventType = "challenge_received"
	EventChallengeDeclined EventType = "challenge_declined"
	EventBattleStarted     EventType = "battle_started"
	EventTurnResult        EventType = "turn_result"
	EventBattleEnded       EventType = "battle_ended"
	EventMatchFound        EventType = "match_found"
)

// Event is one pushed notification.
type Event struct {
	Type      EventType            `json:"type"`
	Battle    *combat.Battle       `json:"battle,omitempty"`
	Entries   []combat.LogEntry    `json:"entries,omitempty"`
	Challenge *challenge.Challenge `json:"challenge,omitempty"`
	At        time.Time            `json:"at"`
}

// Subscriber routes pushed events for one player to a buffered channel.
type Subscriber struct {
	playerID string
	events   chan Event
	mu       sync.Mutex
	closed   bool
}

func newSubscriber(playerID string, bufferSize int) *Subscriber {
	if bufferSize <= 0 {
		bufferSize = DefaultSubscriberBuffer
	}
	return &Subscriber{playerID: playerID, events: make(chan Event, bufferSize)}
}

// PlayerID returns the subscribed player.
func (s *Subscriber) PlayerID() string { return s.playerID }

// Events returns the read-only event channel. It is closed when the
// subscriber is dropped.
func (s *Subscriber) Events() <-chan Event { return s.events }

// push enqueues ev without blocking.
//
// Postcondition: Returns an error if the subscriber is closed or its buffer is full.
func (s *Subscriber) push(ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("subscriber %s is closed", s.playerID)
	}
	select {
	case s.events <- ev:
		return nil
	default:
		return fmt.Errorf("subscriber %s event buffer full", s.playerID)
	}
}

func (s *Subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
}

// Notifier fans events out to subscribed players. Delivery is fire-and-forget:
// a subscriber that cannot take an event is dropped and never retried.
// All methods are safe for concurrent use.
type Notifier struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscriber]struct{}
	buffer int
	logger *zap.Logger
	now    func() time.Time
}

// NewNotifier creates a Notifier whose subscribers buffer up to buffer events.
func NewNotifier(buffer int, logger *zap.Logger) *Notifier {
	return &Notifier{
		subs:   make(map[string]map[*Subscriber]struct{}),
		buffer: buffer,
		logger: logger,
		now:    time.Now,
	}
}

// Subscribe registers a new subscriber for playerID.
//
// Postcondition: the subscriber receives every event published to playerID
// until Unsubscribe or a failed delivery.
func (n *Notifier) Subscribe(playerID string) *Subscriber {
	sub := newSubscriber(playerID, n.buffer)
	n.mu.Lock()
	set, ok := n.subs[playerID]
	if !ok {
		set = make(map[*Subscriber]struct{})
		n.subs[playerID] = set
	}
	set[sub] = struct{}{}
	n.mu.Unlock()
	return sub
}

// Unsubscribe removes sub and closes its channel. It is idempotent.
func (n *Notifier) Unsubscribe(sub *Subscriber) {
	n.mu.Lock()
	n.removeLocked(sub)
	n.mu.Unlock()
	sub.close()
}

func (n *Notifier) removeLocked(sub *Subscriber) {
	set := n.subs[sub.playerID]
	delete(set, sub)
	if len(set) == 0 {
		delete(n.subs, sub.playerID)
	}
}

// Subscribers returns the number of live subscribers for playerID.
func (n *Notifier) Subscribers(playerID string) int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs[playerID])
}

// Publish pushes ev to every subscriber of playerID.
func (n *Notifier) Publish(playerID string, ev Event) {
	if ev.At.IsZero() {
		ev.At = n.now()
	}
	n.mu.RLock()
	targets := make([]*Subscriber, 0, len(n.subs[playerID]))
	for sub := range n.subs[playerID] {
		targets = append(targets, sub)
	}
	n.mu.RUnlock()
	n.deliver(targets, ev)
}

// PublishAll pushes ev to every subscriber of each player in playerIDs.
func (n *Notifier) PublishAll(playerIDs []string, ev Event) {
	for _, id := range playerIDs {
		n.Publish(id, ev)
	}
}

// Broadcast pushes ev to every subscriber.
func (n *Notifier) Broadcast(ev Event) {
	if ev.At.IsZero() {
		ev.At = n.now()
	}
	n.mu.RLock()
	var targets []*Subscriber
	for _, set := range n.subs {
		for sub := range set {
			targets = append(targets, sub)
		}
	}
	n.mu.RUnlock()
	n.deliver(targets, ev)
}

func (n *Notifier) deliver(targets []*Subscriber, ev Event) {
	for _, sub := range targets {
		if err := sub.push(ev); err != nil {
			n.logger.Warn("dropping subscriber",
				zap.String("player_id", sub.playerID),
				zap.String("event", string(ev.Type)),
				zap.Error(err),
			)
			n.Unsubscribe(sub)
		}
	}
}
