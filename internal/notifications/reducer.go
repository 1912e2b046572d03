package notifications

import (
	"fmt"
	"sync"
	"time"

	"example.com/mise/clients/counter/internal/models"
)

// MaxRetained caps the notification list. The oldest entry past the cap is
// evicted silently.
const MaxRetained = 20

// Reducer turns the stream of order events into a bounded, dismissible
// list of staff-facing alerts. Session-scoped and in-memory only; nothing
// here survives a restart.
type Reducer struct {
	mu   sync.Mutex
	list []models.Notification
	now  func() time.Time
}

// NewReducer returns an empty reducer.
func NewReducer() *Reducer {
	return &Reducer{now: time.Now}
}

// notifyWorthy statuses surface an alert. Early-stage transitions are
// visible on the board already and would only add noise.
func notifyWorthy(status models.OrderStatus) bool {
	return status == models.StatusReady || status == models.StatusCompleted
}

// Apply inspects one inbound event and, if it is an update landing on a
// notify-worthy status, prepends a notification and truncates the list to
// MaxRetained. Returns the created notification, or nil when the event was
// absorbed.
func (r *Reducer) Apply(event models.OrderEvent) *models.Notification {
	if event.Kind != models.EventOrderUpdated {
		return nil
	}
	if !notifyWorthy(event.Order.Status) {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	created := r.now()
	n := models.Notification{
		ID:          fmt.Sprintf("%s-%d", event.Order.ID, created.UnixNano()),
		OrderNumber: event.Order.OrderNumber,
		Status:      event.Order.Status,
		Message:     messageFor(event.Order),
		CreatedAt:   created,
	}

	r.list = append([]models.Notification{n}, r.list...)
	if len(r.list) > MaxRetained {
		r.list = r.list[:MaxRetained]
	}

	return &n
}

func messageFor(order models.Order) string {
	switch order.Status {
	case models.StatusReady:
		return fmt.Sprintf("Order #%s is ready", order.OrderNumber)
	case models.StatusCompleted:
		return fmt.Sprintf("Order #%s completed", order.OrderNumber)
	default:
		return fmt.Sprintf("Order #%s is now %s", order.OrderNumber, order.Status)
	}
}

// Dismiss removes one notification by id. Dismissing an id that is absent
// is a no-op.
func (r *Reducer) Dismiss(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, n := range r.list {
		if n.ID == id {
			r.list = append(r.list[:i], r.list[i+1:]...)
			return
		}
	}
}

// DismissAll clears the list.
func (r *Reducer) DismissAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.list = nil
}

// List returns the notifications, most recent first.
func (r *Reducer) List() []models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.Notification, len(r.list))
	copy(out, r.list)
	return out
}
