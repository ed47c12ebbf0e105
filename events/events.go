package events

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypePaymentVerified EventType = "payment_verified"
	EventTypeDrawCompleted   EventType = "draw_completed"
	EventTypeGiveawayDrawn   EventType = "giveaway_drawn"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// PaymentVerifiedEvent represents a payment that passed on-chain verification
// and credited the ledger
type PaymentVerifiedEvent struct {
	WalletAddress    string
	PaymentReference string
	AmountPaid       int64
	ExpiresAt        time.Time
	TicketCount      int64
}

func (e PaymentVerifiedEvent) Type() EventType {
	return EventTypePaymentVerified
}

// DrawCompletedEvent represents a jackpot draw that reached a terminal state
type DrawCompletedEvent struct {
	PeriodID        string
	WinnerWallet    string
	PrizeAmount     int64
	PayoutReference *string
	Paid            bool
}

func (e DrawCompletedEvent) Type() EventType {
	return EventTypeDrawCompleted
}

// GiveawayDrawnEvent represents a completed community giveaway draw
type GiveawayDrawnEvent struct {
	PeriodID    string
	WinnerID    string
	EntryCount  int64
	PrizeAmount int64
}

func (e GiveawayDrawnEvent) Type() EventType {
	return EventTypeGiveawayDrawn
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	// Call handlers asynchronously to avoid blocking
	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// TransactionalBus stashes events published during a unit of work until the
// surrounding transaction commits, then flushes them to the real bus.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Flush is called after a successful DB commit. Events are emitted with a
// background context so they outlive the transaction's context.
func (b *TransactionalBus) Flush(ctx context.Context) error {
	eventCtx := context.Background()

	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
	return nil
}

// Discard drops pending events after a rollback.
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
