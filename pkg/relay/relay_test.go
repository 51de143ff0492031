package relay

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/nanostore/pkg/engine"
	"github.com/vango-dev/nanostore/pkg/events"
	"github.com/vango-dev/nanostore/pkg/persistent"
)

const waitFor = 2 * time.Second

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) dispatch(ev events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) snapshot() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}

func startHub(t *testing.T, opts ...HubOption) (*Hub, string) {
	t.Helper()
	hub := NewHub(opts...)
	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url string, opts ...ClientOption) *Client {
	t.Helper()
	c, err := Dial(context.Background(), url, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestMessageEvent(t *testing.T) {
	msg := MessageOf(events.Event{Key: "k", Value: "stale", Deleted: true, Origin: "a"})
	assert.Equal(t, events.Event{Key: "k", Deleted: true, Origin: "a"}, msg.Event())

	data, err := encodeMessage(Message{Key: "k", Value: "v", Origin: "a"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"key":"k","value":"v","deleted":false,"origin":"a"}`, string(data))
}

func TestHubRelaysToOtherClients(t *testing.T) {
	hub, url := startHub(t)

	var a, b recorder
	ca := dial(t, url, WithDispatcher(a.dispatch))
	dial(t, url, WithDispatcher(b.dispatch))
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, waitFor, 10*time.Millisecond)

	require.NoError(t, ca.Publish(events.Event{Key: "theme", Value: "dark"}))

	require.Eventually(t, func() bool { return len(b.snapshot()) == 1 }, waitFor, 10*time.Millisecond)
	got := b.snapshot()[0]
	assert.Equal(t, "theme", got.Key)
	assert.Equal(t, "dark", got.Value)
	assert.Equal(t, ca.Origin(), got.Origin)

	// The sender never hears its own event back.
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, a.snapshot())
}

func TestClientSkipsOwnOrigin(t *testing.T) {
	hub, url := startHub(t)

	var b recorder
	ca := dial(t, url, WithOrigin("shared"))
	dial(t, url, WithOrigin("shared"), WithDispatcher(b.dispatch))
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, waitFor, 10*time.Millisecond)

	require.NoError(t, ca.Publish(events.Event{Key: "k", Value: "v"}))
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, b.snapshot())
}

func TestClientDispatchesIntoChannel(t *testing.T) {
	hub, url := startHub(t)
	ch := events.NewChannel()

	received := make(chan events.Event, 1)
	ch.Subscribe("k", func(ev events.Event) error {
		received <- ev
		return nil
	})

	ca := dial(t, url)
	dial(t, url, WithChannel(ch))
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, waitFor, 10*time.Millisecond)

	require.NoError(t, ca.Publish(events.Event{Key: "k", Deleted: true}))
	select {
	case ev := <-received:
		assert.True(t, ev.Deleted)
	case <-time.After(waitFor):
		t.Fatal("event not delivered")
	}
}

func TestPersistentAtomsAcrossRelay(t *testing.T) {
	hub, url := startHub(t)

	chA, chB := events.NewChannel(), events.NewChannel()
	memA, memB := engine.NewMemory(), engine.NewMemory()
	ca := dial(t, url, WithChannel(chA))
	dial(t, url, WithChannel(chB))
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, waitFor, 10*time.Millisecond)

	a, err := persistent.NewAtom("theme", "light",
		persistent.WithEngine(Broadcast(memA, ca)), persistent.WithEvents(chA))
	require.NoError(t, err)
	b, err := persistent.NewAtom("theme", "light",
		persistent.WithEngine(memB), persistent.WithEvents(chB))
	require.NoError(t, err)

	require.NoError(t, a.Set("dark"))
	require.Eventually(t, func() bool { return b.Get() == "dark" }, waitFor, 10*time.Millisecond)

	// Remote values are applied without writing the receiving backend.
	assert.Equal(t, "light", memB.Snapshot()["theme"])
	assert.Equal(t, "dark", memA.Snapshot()["theme"])
}

type failingPublisher struct{ calls int }

func (f *failingPublisher) Publish(events.Event) error {
	f.calls++
	return errors.New("offline")
}

type capturePublisher struct{ events []events.Event }

func (c *capturePublisher) Publish(ev events.Event) error {
	c.events = append(c.events, ev)
	return nil
}

func TestBroadcastPublishesSuccessfulWrites(t *testing.T) {
	mem := engine.NewMemory()
	pub := &capturePublisher{}
	e := Broadcast(mem, pub)

	require.NoError(t, e.Set("a", "1"))
	require.NoError(t, e.Delete("a"))

	assert.Equal(t, []events.Event{
		{Key: "a", Value: "1"},
		{Key: "a", Deleted: true},
	}, pub.events)
	assert.Same(t, mem, e.(interface{ Unwrap() engine.Engine }).Unwrap())
}

func TestBroadcastKeepsWriteWhenPublishFails(t *testing.T) {
	mem := engine.NewMemory()
	pub := &failingPublisher{}
	var logs bytes.Buffer
	e := Broadcast(mem, pub, WithBroadcastLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	require.NoError(t, e.Set("a", "1"))
	assert.Equal(t, 1, pub.calls)
	assert.Equal(t, "1", mem.Snapshot()["a"])
	assert.Contains(t, logs.String(), "relay publish failed")
	assert.Contains(t, logs.String(), "offline")
}

func TestHubHealthAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	hub := NewHub(WithRegistry(reg))
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	dial(t, url)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, waitFor, 10*time.Millisecond)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "nanostore_relay_clients 1")
}

func TestDialFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := Dial(ctx, "ws://127.0.0.1:1/ws")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRelay)
}

func TestHubCloseDisconnectsClients(t *testing.T) {
	hub, url := startHub(t)
	c := dial(t, url)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, waitFor, 10*time.Millisecond)

	hub.Close()
	select {
	case <-c.Done():
	case <-time.After(waitFor):
		t.Fatal("client not disconnected")
	}
	assert.Equal(t, 0, hub.ClientCount())
}
