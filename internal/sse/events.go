// Package sse streams feed row events to clients over Server-Sent Events.
package sse

import (
	"time"

	"github.com/reelhouse/reelhouse-server/internal/domain"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventRowAdded is sent when a category row is revealed.
	EventRowAdded EventType = "feed.row_added"
	// EventRowExtended is sent when items are appended to a row.
	EventRowExtended EventType = "feed.row_extended"
	// EventClosed is sent once when a feed session ends.
	EventClosed EventType = "feed.closed"
	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`

	// SessionID routes the event to subscribers of one feed session.
	// Empty means every connected client (heartbeats).
	SessionID string `json:"session_id,omitempty"`
}

// RowEventData is the payload of row added and row extended events.
type RowEventData struct {
	Row   domain.CategoryRow   `json:"row"`
	Added []domain.CatalogItem `json:"added,omitempty"`
}

// ClosedEventData is the payload of session closed events.
type ClosedEventData struct {
	Reason   string    `json:"reason"`
	ClosedAt time.Time `json:"closed_at"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// NewRowAddedEvent creates a row added event for a session.
func NewRowAddedEvent(sessionID string, row domain.CategoryRow) Event {
	return Event{
		Type:      EventRowAdded,
		SessionID: sessionID,
		Timestamp: time.Now(),
		Data:      RowEventData{Row: row},
	}
}

// NewRowExtendedEvent creates a row extended event carrying the appended items.
func NewRowExtendedEvent(sessionID string, row domain.CategoryRow, added []domain.CatalogItem) Event {
	return Event{
		Type:      EventRowExtended,
		SessionID: sessionID,
		Timestamp: time.Now(),
		Data:      RowEventData{Row: row, Added: added},
	}
}

// NewClosedEvent creates a session closed event.
func NewClosedEvent(sessionID, reason string) Event {
	now := time.Now()
	return Event{
		Type:      EventClosed,
		SessionID: sessionID,
		Timestamp: now,
		Data:      ClosedEventData{Reason: reason, ClosedAt: now},
	}
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	now := time.Now()
	return Event{
		Type:      EventHeartbeat,
		Timestamp: now,
		Data:      HeartbeatEventData{ServerTime: now},
	}
}

// SessionObserver forwards engine row changes for one session to an emitter.
type SessionObserver struct {
	emitter   Emitter
	sessionID string
}

// Emitter accepts events for broadcast.
type Emitter interface {
	Emit(event Event)
}

// NewSessionObserver creates an observer that tags events with sessionID.
func NewSessionObserver(emitter Emitter, sessionID string) *SessionObserver {
	return &SessionObserver{emitter: emitter, sessionID: sessionID}
}

// RowAdded implements feed.Observer.
func (o *SessionObserver) RowAdded(row domain.CategoryRow) {
	o.emitter.Emit(NewRowAddedEvent(o.sessionID, row))
}

// RowExtended implements feed.Observer.
func (o *SessionObserver) RowExtended(row domain.CategoryRow, added []domain.CatalogItem) {
	o.emitter.Emit(NewRowExtendedEvent(o.sessionID, row, added))
}
