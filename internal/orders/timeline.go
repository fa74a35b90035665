// Package orders reconstructs an order's lifecycle into a consistent,
// displayable timeline: status history, shipments, tracking events and
// returns.
package orders

import (
	"sort"
	"time"

	"github.com/revive-shop/commerce-core/internal/domain"
)

// Step is one rendered entry of an order timeline.
type Step struct {
	Status  domain.OrderStatus
	At      time.Time
	Note    string
	Current bool
}

// Reconstruct builds the timeline from an order's status history, sorted
// ascending by timestamp regardless of insertion order. The step matching
// the order's current status is marked current; when the status re-entered
// the history more than once, the last chronological match wins. An empty or
// absent history yields a degraded single-step timeline at now.
func Reconstruct(order *domain.OrderDetail) []Step {
	return ReconstructAt(order, time.Now())
}

func ReconstructAt(order *domain.OrderDetail, now time.Time) []Step {
	if len(order.StatusHistory) == 0 {
		return []Step{{Status: order.Status, At: now, Current: true}}
	}

	events := append([]domain.OrderStatusEvent(nil), order.StatusHistory...)
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].At.Before(events[j].At)
	})

	steps := make([]Step, len(events))
	current := -1
	for i, ev := range events {
		steps[i] = Step{Status: ev.Status, At: ev.At, Note: ev.Note}
		if ev.Status == order.Status {
			current = i
		}
	}
	if current >= 0 {
		steps[current].Current = true
	}
	return steps
}

// trackingEventLimit caps how many tracking events are surfaced; older
// events stay server-side and are not fetched again.
const trackingEventLimit = 5

// RecentTrackingEvents returns a shipment's tracking events sorted most
// recent first, capped at five. Independent of the order timeline.
func RecentTrackingEvents(shipment *domain.Shipment) []domain.TrackingEvent {
	if shipment == nil || shipment.Tracking == nil || len(shipment.Tracking.Events) == 0 {
		return nil
	}

	events := append([]domain.TrackingEvent(nil), shipment.Tracking.Events...)
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Date.After(events[j].Date)
	})
	if len(events) > trackingEventLimit {
		events = events[:trackingEventLimit]
	}
	return events
}
