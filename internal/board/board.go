package board

import (
	"reflect"
	"sort"
	"sync"
	"time"

	"example.com/mise/clients/counter/internal/lifecycle"
	"example.com/mise/clients/counter/internal/models"
)

// Board is the client-local view of the restaurant's active orders. Every
// inbound event is a full authoritative snapshot; the board replaces its
// copy wholesale and never merges fields. Optimistic updates go through a
// provisional overlay that the next authoritative snapshot wins over.
type Board struct {
	mu          sync.Mutex
	orders      map[string]models.Order
	provisional map[string]models.OrderStatus
}

// New returns an empty board.
func New() *Board {
	return &Board{
		orders:      make(map[string]models.Order),
		provisional: make(map[string]models.OrderStatus),
	}
}

// Apply stores the snapshot carried by an event, clearing any provisional
// status for that order. Reapplying an identical snapshot reports no
// change, so duplicate or out-of-order redelivery of the same update is
// harmless.
func (b *Board) Apply(event models.OrderEvent) bool {
	return b.ApplySnapshot(event.Order)
}

// ApplySnapshot is Apply for snapshots obtained outside the event stream,
// such as the order returned by a transition request.
func (b *Board) ApplySnapshot(order models.Order) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.provisional, order.ID)

	prev, ok := b.orders[order.ID]
	if ok && reflect.DeepEqual(prev, order) {
		return false
	}
	b.orders[order.ID] = order
	return true
}

// ReplaceAll swaps the entire board for a freshly fetched order list. Used
// by the polling fallback; provisional overlays do not survive a re-sync.
func (b *Board) ReplaceAll(orders []models.Order) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.orders = make(map[string]models.Order, len(orders))
	for _, o := range orders {
		b.orders[o.ID] = o
	}
	b.provisional = make(map[string]models.OrderStatus)
}

// MarkProvisional overlays an optimistic status on one order while a
// transition request is in flight. The stored snapshot is untouched.
func (b *Board) MarkProvisional(orderID string, status models.OrderStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.orders[orderID]; ok {
		b.provisional[orderID] = status
	}
}

// ClearProvisional drops the overlay, reverting reads to the last
// authoritative status. Called when a transition request fails.
func (b *Board) ClearProvisional(orderID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.provisional, orderID)
}

// Get returns the order with any provisional overlay applied.
func (b *Board) Get(orderID string) (models.Order, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	order, ok := b.orders[orderID]
	if !ok {
		return models.Order{}, false
	}
	return b.overlay(order), true
}

func (b *Board) overlay(order models.Order) models.Order {
	if status, ok := b.provisional[order.ID]; ok {
		order.Status = status
	}
	return order
}

// Entry is one order as a bucket view renders it.
type Entry struct {
	Order          models.Order
	ElapsedMinutes int
	Urgent         bool
}

// Buckets groups the active orders for display, oldest first within each
// bucket. Terminal orders are excluded entirely.
func (b *Board) Buckets(now time.Time) map[lifecycle.Bucket][]Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[lifecycle.Bucket][]Entry)
	for _, order := range b.orders {
		order = b.overlay(order)
		bucket, active := lifecycle.BucketFor(order.Status)
		if !active {
			continue
		}
		out[bucket] = append(out[bucket], Entry{
			Order:          order,
			ElapsedMinutes: lifecycle.Elapsed(order, now),
			Urgent:         lifecycle.IsUrgent(order, now),
		})
	}

	for bucket := range out {
		entries := out[bucket]
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Order.CreatedAt.Before(entries[j].Order.CreatedAt)
		})
	}
	return out
}
