package lifecycle

import (
	"fmt"
	"time"

	"example.com/mise/clients/counter/internal/models"
)

// UrgencyThresholdMinutes is how many whole minutes an active order may
// wait before the display flags it. Presentational only; the backend
// attaches no meaning to it.
const UrgencyThresholdMinutes = 10

// Transition is the single legal forward step available from an order's
// current status, with the action label the terminal shows for it.
type Transition struct {
	Next  models.OrderStatus
	Label string
}

// InvalidTransitionError signals that a caller asked to advance an order
// that has no forward transition. This is a programming-contract error on
// the caller's side, not an environment failure.
type InvalidTransitionError struct {
	Status models.OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("no forward transition from status %q", e.Status)
}

// Advance returns the next status on the forward path and its action
// label. The forward path is strict: pending, confirmed, preparing, ready,
// completed, with no skipping. Terminal statuses (completed, cancelled)
// return an InvalidTransitionError so callers cannot build an impossible
// UI state around them.
func Advance(order models.Order) (Transition, error) {
	switch order.Status {
	case models.StatusPending:
		return Transition{Next: models.StatusConfirmed, Label: "CONFIRM"}, nil
	case models.StatusConfirmed:
		return Transition{Next: models.StatusPreparing, Label: "START"}, nil
	case models.StatusPreparing:
		return Transition{Next: models.StatusReady, Label: "DONE"}, nil
	case models.StatusReady:
		return Transition{Next: models.StatusCompleted, Label: handoffLabel(order.Type)}, nil
	case models.StatusCompleted, models.StatusCancelled:
		return Transition{}, &InvalidTransitionError{Status: order.Status}
	default:
		return Transition{}, &InvalidTransitionError{Status: order.Status}
	}
}

// handoffLabel names the ready -> completed action for the order type.
func handoffLabel(t models.OrderType) string {
	switch t {
	case models.OrderTypeDineIn:
		return "DELIVERED"
	case models.OrderTypeDelivery:
		return "HANDED OFF"
	default:
		return "PICKED UP"
	}
}

// Bucket is a display grouping derived from status. It is never stored;
// deriving it on every read keeps it from drifting away from the
// authoritative status.
type Bucket string

const (
	BucketNew     Bucket = "New"
	BucketCooking Bucket = "Cooking"
	BucketReady   Bucket = "Ready"
)

// BucketFor maps a status to its display bucket. The second return is
// false for terminal statuses, which appear in no active-order view.
func BucketFor(status models.OrderStatus) (Bucket, bool) {
	switch status {
	case models.StatusPending, models.StatusConfirmed:
		return BucketNew, true
	case models.StatusPreparing:
		return BucketCooking, true
	case models.StatusReady:
		return BucketReady, true
	default:
		return "", false
	}
}

// Elapsed returns whole minutes since the order was created. Renderers
// recompute this on every tick; minute granularity is all that carries
// meaning.
func Elapsed(order models.Order, now time.Time) int {
	return int(now.Sub(order.CreatedAt) / time.Minute)
}

// IsUrgent reports whether the order has been waiting longer than the
// urgency threshold. Urgency is defined on whole elapsed minutes, so it
// begins at eleven minutes, not at ten minutes and one second.
func IsUrgent(order models.Order, now time.Time) bool {
	return Elapsed(order, now) > UrgencyThresholdMinutes
}
