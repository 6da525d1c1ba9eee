package events

import (
	"sync"
	"time"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventScanStarted     EventType = "SCAN_STARTED"
	EventScanProgress    EventType = "SCAN_PROGRESS"
	EventScanCompleted   EventType = "SCAN_COMPLETED"
	EventScanCancelled   EventType = "SCAN_CANCELLED"
	EventSymbolAnalyzed  EventType = "SYMBOL_ANALYZED"
	EventPatternFound    EventType = "PATTERN_FOUND"
	EventTradeSimOpened  EventType = "TRADE_SIM_OPENED"
	EventTradeSimClosed  EventType = "TRADE_SIM_CLOSED"
	EventPortfolioUpdate EventType = "PORTFOLIO_UPDATE"
	EventError           EventType = "ERROR"
)

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Subscriber is a function that handles events
type Subscriber func(Event)

// EventBus manages event publishing and subscriptions
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Subscriber
	allSubs     []Subscriber // Subscribers to all events
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[EventType][]Subscriber),
		allSubs:     make([]Subscriber, 0),
	}
}

// Subscribe registers a subscriber for a specific event type
func (eb *EventBus) Subscribe(eventType EventType, subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.subscribers[eventType] = append(eb.subscribers[eventType], subscriber)
}

// SubscribeAll registers a subscriber for all events
func (eb *EventBus) SubscribeAll(subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.allSubs = append(eb.allSubs, subscriber)
}

// Publish sends an event to all subscribers
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	// Set timestamp if not provided
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	// Notify specific subscribers
	if subs, ok := eb.subscribers[event.Type]; ok {
		for _, sub := range subs {
			go sub(event) // Run in goroutine to avoid blocking
		}
	}

	// Notify all-event subscribers
	for _, sub := range eb.allSubs {
		go sub(event)
	}
}

// PublishScanStarted publishes a scan started event
func (eb *EventBus) PublishScanStarted(jobID string, symbols int, initialCapital float64) {
	eb.Publish(Event{
		Type: EventScanStarted,
		Data: map[string]interface{}{
			"job_id":          jobID,
			"symbols":         symbols,
			"initial_capital": initialCapital,
		},
	})
}

// PublishScanProgress publishes a scan progress event
func (eb *EventBus) PublishScanProgress(jobID, symbol string, done, total int, portfolioCapital float64) {
	eb.Publish(Event{
		Type: EventScanProgress,
		Data: map[string]interface{}{
			"job_id":            jobID,
			"symbol":            symbol,
			"done":              done,
			"total":             total,
			"portfolio_capital": portfolioCapital,
		},
	})
}

// PublishScanCompleted publishes a scan completed event
func (eb *EventBus) PublishScanCompleted(jobID string, totalPnL, finalCapital float64, failed int) {
	eb.Publish(Event{
		Type: EventScanCompleted,
		Data: map[string]interface{}{
			"job_id":        jobID,
			"total_pnl":     totalPnL,
			"final_capital": finalCapital,
			"failed":        failed,
		},
	})
}

// PublishPatternFound publishes a pattern found event
func (eb *EventBus) PublishPatternFound(symbol string, confidence float64, criteriaMet int) {
	eb.Publish(Event{
		Type: EventPatternFound,
		Data: map[string]interface{}{
			"symbol":       symbol,
			"confidence":   confidence,
			"criteria_met": criteriaMet,
		},
	})
}

// PublishTradeClosed publishes a simulated trade closed event
func (eb *EventBus) PublishTradeClosed(symbol, exitReason string, entryPrice, exitPrice, pnl, pnlPct float64) {
	eb.Publish(Event{
		Type: EventTradeSimClosed,
		Data: map[string]interface{}{
			"symbol":      symbol,
			"exit_reason": exitReason,
			"entry_price": entryPrice,
			"exit_price":  exitPrice,
			"pnl":         pnl,
			"pnl_percent": pnlPct,
		},
	})
}

// PublishError publishes an error event
func (eb *EventBus) PublishError(source, message string, err error) {
	data := map[string]interface{}{
		"source":  source,
		"message": message,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	eb.Publish(Event{
		Type: EventError,
		Data: data,
	})
}
