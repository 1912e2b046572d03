package lifecycle

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/mise/clients/counter/internal/models"
)

func orderWith(status models.OrderStatus, typ models.OrderType) models.Order {
	return models.Order{
		ID:          "ord-1",
		OrderNumber: "1042",
		Type:        typ,
		Status:      status,
		CreatedAt:   time.Now(),
	}
}

func TestAdvanceForwardChain(t *testing.T) {
	cases := []struct {
		status models.OrderStatus
		next   models.OrderStatus
		label  string
	}{
		{models.StatusPending, models.StatusConfirmed, "CONFIRM"},
		{models.StatusConfirmed, models.StatusPreparing, "START"},
		{models.StatusPreparing, models.StatusReady, "DONE"},
		{models.StatusReady, models.StatusCompleted, "PICKED UP"},
	}

	for _, tc := range cases {
		tr, err := Advance(orderWith(tc.status, models.OrderTypePickup))
		require.NoError(t, err, "status %s", tc.status)
		require.Equal(t, tc.next, tr.Next)
		require.Equal(t, tc.label, tr.Label)
		require.NotEmpty(t, tr.Label)
	}
}

func TestAdvanceHandoffLabelPerOrderType(t *testing.T) {
	cases := map[models.OrderType]string{
		models.OrderTypeDineIn:   "DELIVERED",
		models.OrderTypePickup:   "PICKED UP",
		models.OrderTypeDelivery: "HANDED OFF",
	}

	for typ, label := range cases {
		tr, err := Advance(orderWith(models.StatusReady, typ))
		require.NoError(t, err)
		require.Equal(t, models.StatusCompleted, tr.Next)
		require.Equal(t, label, tr.Label)
	}
}

func TestAdvanceTerminalStatusErrors(t *testing.T) {
	for _, status := range []models.OrderStatus{models.StatusCompleted, models.StatusCancelled} {
		_, err := Advance(orderWith(status, models.OrderTypeDineIn))
		require.Error(t, err)

		var ite *InvalidTransitionError
		require.True(t, errors.As(err, &ite))
		require.Equal(t, status, ite.Status)
	}
}

func TestBucketForIsPureOnStatus(t *testing.T) {
	cases := []struct {
		status models.OrderStatus
		bucket Bucket
		active bool
	}{
		{models.StatusPending, BucketNew, true},
		{models.StatusConfirmed, BucketNew, true},
		{models.StatusPreparing, BucketCooking, true},
		{models.StatusReady, BucketReady, true},
		{models.StatusCompleted, "", false},
		{models.StatusCancelled, "", false},
	}

	for _, tc := range cases {
		bucket, active := BucketFor(tc.status)
		require.Equal(t, tc.active, active, "status %s", tc.status)
		require.Equal(t, tc.bucket, bucket, "status %s", tc.status)
	}

	// Same status, wildly different orders: bucket must not depend on
	// anything but status.
	a := orderWith(models.StatusConfirmed, models.OrderTypeDineIn)
	b := orderWith(models.StatusConfirmed, models.OrderTypeDelivery)
	b.OrderNumber = "9999"
	b.CreatedAt = b.CreatedAt.Add(-2 * time.Hour)

	ba, _ := BucketFor(a.Status)
	bb, _ := BucketFor(b.Status)
	require.Equal(t, ba, bb)
}

func TestUrgency(t *testing.T) {
	created := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	order := models.Order{Status: models.StatusPreparing, CreatedAt: created}

	require.False(t, IsUrgent(order, created.Add(9*time.Minute)))
	require.True(t, IsUrgent(order, created.Add(11*time.Minute)))

	// Whole-minute semantics: inside the eleventh minute the elapsed count
	// is still 10, so the order is not yet urgent.
	require.False(t, IsUrgent(order, created.Add(10*time.Minute+30*time.Second)))
	require.False(t, IsUrgent(order, created.Add(10*time.Minute+59*time.Second)))
	require.True(t, IsUrgent(order, created.Add(11*time.Minute+1*time.Second)))

	require.Equal(t, 9, Elapsed(order, created.Add(9*time.Minute+30*time.Second)))
	require.Equal(t, 10, Elapsed(order, created.Add(10*time.Minute+59*time.Second)))
	require.Equal(t, 11, Elapsed(order, created.Add(11*time.Minute)))
}
