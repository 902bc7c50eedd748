// Package source models the event-source capability: an unbounded,
// chronologically ordered push stream of raw observation records. The
// engine never pulls; it reacts to pushed records through subscriptions.
package source

import (
	"sync"

	"github.com/vitalstack/vitals-engine/internal/models"
)

// ShiftHandler consumes one layout-shift record per call.
type ShiftHandler func(models.LayoutShiftRecord)

// InteractionHandler consumes one interaction record per call.
type InteractionHandler func(models.InteractionRecord)

// Token identifies a subscription for later cancellation.
type Token struct {
	id   int
	kind subKind
}

type subKind int

const (
	kindShift subKind = iota
	kindInteraction
)

// Feed fans raw records out to subscribers with exactly-once delivery per
// record and no replay after unsubscription. Publishes are serialized: each
// record is delivered to every subscriber before the next record starts, so
// every push is an atomic state transition for the handlers.
type Feed struct {
	mu     sync.Mutex
	nextID int

	shiftSubs       map[int]ShiftHandler
	interactionSubs map[int]InteractionHandler
}

// NewFeed constructs an empty feed.
func NewFeed() *Feed {
	return &Feed{
		shiftSubs:       make(map[int]ShiftHandler),
		interactionSubs: make(map[int]InteractionHandler),
	}
}

// OnLayoutShift registers a handler for layout-shift records.
func (f *Feed) OnLayoutShift(h ShiftHandler) Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.shiftSubs[f.nextID] = h
	return Token{id: f.nextID, kind: kindShift}
}

// OnInteraction registers a handler for interaction records.
func (f *Feed) OnInteraction(h InteractionHandler) Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.interactionSubs[f.nextID] = h
	return Token{id: f.nextID, kind: kindInteraction}
}

// Unsubscribe cancels a subscription. The handler sees no records published
// after Unsubscribe returns; records already being delivered complete.
func (f *Feed) Unsubscribe(tok Token) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch tok.kind {
	case kindShift:
		delete(f.shiftSubs, tok.id)
	case kindInteraction:
		delete(f.interactionSubs, tok.id)
	}
}

// PublishShift delivers one layout-shift record to every shift subscriber.
func (f *Feed) PublishShift(rec models.LayoutShiftRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, h := range f.shiftSubs {
		h(rec)
	}
}

// PublishInteraction delivers one interaction record to every interaction
// subscriber.
func (f *Feed) PublishInteraction(rec models.InteractionRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, h := range f.interactionSubs {
		h(rec)
	}
}
