package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/mise/clients/counter/internal/device"
	"example.com/mise/clients/counter/internal/models"
	"example.com/mise/clients/counter/internal/realtime"
	"example.com/mise/clients/counter/internal/rest"
)

// fakeBackend serves just enough of the order REST API for session tests.
type fakeBackend struct {
	srv *httptest.Server

	mu          sync.Mutex
	orders      []models.Order
	patchStatus int
	patchCalls  int
}

func newFakeBackend(t *testing.T) *fakeBackend {
	fb := &fakeBackend{patchStatus: http.StatusOK}

	mux := http.NewServeMux()
	mux.HandleFunc("/orders", func(w http.ResponseWriter, r *http.Request) {
		fb.mu.Lock()
		defer fb.mu.Unlock()
		json.NewEncoder(w).Encode(fb.orders)
	})
	mux.HandleFunc("/orders/", func(w http.ResponseWriter, r *http.Request) {
		fb.mu.Lock()
		defer fb.mu.Unlock()
		fb.patchCalls++

		if fb.patchStatus != http.StatusOK {
			w.WriteHeader(fb.patchStatus)
			json.NewEncoder(w).Encode(map[string]string{"error": "concurrent modification"})
			return
		}

		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		order := fb.orders[0]
		order.Status = models.OrderStatus(body["status"])
		json.NewEncoder(w).Encode(order)
	})
	mux.HandleFunc("/restaurant/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	fb.srv = httptest.NewServer(mux)
	t.Cleanup(fb.srv.Close)
	return fb
}

func (fb *fakeBackend) setOrders(orders []models.Order) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.orders = orders
}

func (fb *fakeBackend) patches() int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.patchCalls
}

func newTestSession(t *testing.T, fb *fakeBackend) *Session {
	identity := device.Identity{DeviceID: "dev-1", DeviceType: models.DevicePOS}
	restc := rest.NewClient(fb.srv.URL, time.Second)
	// Unreachable socket endpoint: these tests exercise the degraded path
	// and the advance flow, not the websocket itself.
	syncc := realtime.NewClient(realtime.Config{
		URL:            "ws://127.0.0.1:1/",
		MaxRetries:     1,
		BackoffMin:     time.Millisecond,
		BackoffMax:     time.Millisecond,
		ConnectTimeout: 100 * time.Millisecond,
	}, identity)

	s := NewSession(Config{
		RestaurantID: "rest-1",
		PollInterval: 20 * time.Millisecond,
		PollLimit:    10,
	}, identity, restc, syncc)
	t.Cleanup(s.Stop)
	return s
}

func activeOrder(status models.OrderStatus) models.Order {
	return models.Order{
		ID:          "o1",
		OrderNumber: "101",
		Type:        models.OrderTypeDineIn,
		Status:      status,
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	}
}

func TestStartLoadsInitialOrdersAndDegradesToPolling(t *testing.T) {
	fb := newFakeBackend(t)
	fb.setOrders([]models.Order{activeOrder(models.StatusPending)})

	s := newTestSession(t, fb)
	require.NoError(t, s.Start(context.Background()))

	got, ok := s.Board.Get("o1")
	require.True(t, ok)
	require.Equal(t, models.StatusPending, got.Status)

	// The socket is unreachable, so the session must be in polling mode.
	require.False(t, s.Live())

	// The fallback poll picks up backend-side changes.
	fb.setOrders([]models.Order{activeOrder(models.StatusPreparing)})
	require.Eventually(t, func() bool {
		o, ok := s.Board.Get("o1")
		return ok && o.Status == models.StatusPreparing
	}, 2*time.Second, 10*time.Millisecond)
}

func TestAdvanceOrderAppliesAuthoritativeEcho(t *testing.T) {
	fb := newFakeBackend(t)
	fb.setOrders([]models.Order{activeOrder(models.StatusConfirmed)})

	s := newTestSession(t, fb)
	s.Board.ReplaceAll([]models.Order{activeOrder(models.StatusConfirmed)})

	updated, err := s.AdvanceOrder(context.Background(), "o1")
	require.NoError(t, err)
	require.Equal(t, models.StatusPreparing, updated.Status)

	got, _ := s.Board.Get("o1")
	require.Equal(t, models.StatusPreparing, got.Status)
}

func TestAdvanceOrderRejectionRevertsToAuthoritative(t *testing.T) {
	fb := newFakeBackend(t)
	fb.patchStatus = http.StatusConflict

	s := newTestSession(t, fb)
	s.Board.ReplaceAll([]models.Order{activeOrder(models.StatusReady)})

	_, err := s.AdvanceOrder(context.Background(), "o1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "concurrent modification")

	// The optimistic guess must not survive the rejection.
	got, _ := s.Board.Get("o1")
	require.Equal(t, models.StatusReady, got.Status)
}

func TestAdvanceTerminalOrderNeverReachesBackend(t *testing.T) {
	fb := newFakeBackend(t)
	s := newTestSession(t, fb)
	s.Board.ReplaceAll([]models.Order{activeOrder(models.StatusCompleted)})

	_, err := s.AdvanceOrder(context.Background(), "o1")
	require.Error(t, err)
	require.Equal(t, 0, fb.patches())
}

func TestAdvanceUnknownOrder(t *testing.T) {
	fb := newFakeBackend(t)
	s := newTestSession(t, fb)

	_, err := s.AdvanceOrder(context.Background(), "ghost")
	require.Error(t, err)
}

func TestLiveTransitionStopsPolling(t *testing.T) {
	fb := newFakeBackend(t)
	s := newTestSession(t, fb)

	s.setLive(false)
	require.False(t, s.Live())
	s.mu.Lock()
	require.NotNil(t, s.poller)
	s.mu.Unlock()

	s.setLive(true)
	require.True(t, s.Live())
	s.mu.Lock()
	require.Nil(t, s.poller)
	s.mu.Unlock()
}
