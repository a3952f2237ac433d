package websocket

import (
	"log"
	"time"

	"github.com/staymatch/backend/internal/storage/models"
)

// EventBroadcaster handles broadcasting WebSocket events.
type EventBroadcaster struct {
	hub *Hub
}

// NewEventBroadcaster creates a new event broadcaster.
func NewEventBroadcaster(hub *Hub) *EventBroadcaster {
	return &EventBroadcaster{hub: hub}
}

// BroadcastReservationCommitted sends a reservation committed event.
func (b *EventBroadcaster) BroadcastReservationCommitted(res models.Reservation, added []time.Time) {
	b.broadcast(NewMessage(TypeReservationCommitted, reservationPayload(res, added)))
}

// BroadcastReservationCancelled sends a reservation cancelled event.
func (b *EventBroadcaster) BroadcastReservationCancelled(res models.Reservation, released []time.Time) {
	b.broadcast(NewMessage(TypeReservationCancelled, reservationPayload(res, released)))
}

func reservationPayload(res models.Reservation, days []time.Time) ReservationPayload {
	p := ReservationPayload{
		ReservationID: res.ID,
		Username:      res.Username,
		PropertyID:    res.PropertyID,
		Start:         res.Start,
		End:           res.End,
		Source:        res.Source,
		Days:          make([]string, 0, len(days)),
	}
	for _, d := range days {
		p.Days = append(p.Days, d.Format(models.DateLayout))
	}
	return p
}

// BroadcastCalendarImported sends a calendar import summary.
func (b *EventBroadcaster) BroadcastCalendarImported(result models.CalendarImportResult) {
	b.broadcast(NewMessage(TypeCalendarImported, CalendarImportPayload{
		PropertyID:    result.PropertyID,
		EventsFound:   result.EventsFound,
		Reservations:  len(result.Reservations),
		SkippedEvents: len(result.SkippedEvents),
		DaysBooked:    result.DaysBooked,
	}))
}

// BroadcastCatalogReloaded sends a catalog reloaded event.
func (b *EventBroadcaster) BroadcastCatalogReloaded(properties, locations int) {
	b.broadcast(NewMessage(TypeCatalogReloaded, CatalogPayload{Properties: properties, Locations: locations}))
}

// BroadcastNotification sends a notification to all connected clients.
func (b *EventBroadcaster) BroadcastNotification(level, title, message string) {
	payload := NotificationPayload{
		Level:       level,
		Title:       title,
		Message:     message,
		Dismissible: true,
	}

	b.broadcast(NewMessage(TypeNotification, payload))
}

// BroadcastSystemStatusChanged sends a system status change event.
func (b *EventBroadcaster) BroadcastSystemStatusChanged(status map[string]any) {
	b.broadcast(NewMessage(TypeSystemStatusChanged, status))
}

// broadcast sends a message to all connected clients.
func (b *EventBroadcaster) broadcast(msg Message) {
	if b == nil || b.hub == nil {
		return
	}
	data, err := msg.JSON()
	if err != nil {
		log.Printf("Error encoding WebSocket message: %v", err)
		return
	}

	b.hub.Broadcast(data)
}
