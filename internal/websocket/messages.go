package websocket

import (
	"encoding/json"
	"time"
)

// MessageType identifies the type of WebSocket message.
type MessageType string

const (
	// Server -> Client event types
	TypeReservationCommitted MessageType = "reservation.committed"
	TypeReservationCancelled MessageType = "reservation.cancelled"
	TypeCalendarImported     MessageType = "calendar.imported"
	TypeCatalogReloaded      MessageType = "catalog.reloaded"
	TypeSystemStatusChanged  MessageType = "system.status_changed"
	TypeNotification         MessageType = "notification"

	// Client -> Server command types
	TypePing MessageType = "ping"

	// Server -> Client response types
	TypePong  MessageType = "pong"
	TypeError MessageType = "error"
)

// Message represents a WebSocket message envelope.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   any         `json:"payload"`
}

// NewMessage creates a new message with the current timestamp.
func NewMessage(msgType MessageType, payload any) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// JSON serializes the message to JSON bytes.
func (m Message) JSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReservationPayload is the payload for reservation.committed and
// reservation.cancelled events.
type ReservationPayload struct {
	ReservationID string   `json:"reservation_id"`
	Username      string   `json:"username"`
	PropertyID    int      `json:"property_id"`
	Start         string   `json:"start"`
	End           string   `json:"end"`
	Source        string   `json:"source"`
	Days          []string `json:"days"` // days added or released
}

// CalendarImportPayload is the payload for calendar.imported events.
type CalendarImportPayload struct {
	PropertyID    int `json:"property_id"`
	EventsFound   int `json:"events_found"`
	Reservations  int `json:"reservations_created"`
	SkippedEvents int `json:"skipped_events"`
	DaysBooked    int `json:"days_booked"`
}

// CatalogPayload is the payload for catalog.reloaded events.
type CatalogPayload struct {
	Properties int `json:"properties"`
	Locations  int `json:"locations"`
}

// NotificationPayload is the payload for notification events.
type NotificationPayload struct {
	Level       string `json:"level"` // info, warning, error, success
	Title       string `json:"title"`
	Message     string `json:"message"`
	Dismissible bool   `json:"dismissible"`
}

// ErrorPayload is the payload for error messages.
type ErrorPayload struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	OriginalType string `json:"original_type,omitempty"`
}
