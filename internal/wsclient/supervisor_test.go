package wsclient

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingAdapter struct {
	mu          sync.Mutex
	connects    int
	frames      [][]byte
	disconnects int
}

func (a *recordingAdapter) OnConnect(conn *Conn) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.connects++
	return nil
}

func (a *recordingAdapter) OnFrame(messageType int, data []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	cp := append([]byte(nil), data...)
	a.frames = append(a.frames, cp)
}

func (a *recordingAdapter) OnDisconnect() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.disconnects++
}

func (a *recordingAdapter) snapshot() (int, int, int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.connects, len(a.frames), a.disconnects
}

func echoServer(t *testing.T) (*httptest.Server, string) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		if err := conn.WriteMessage(websocket.TextMessage, []byte("hello")); err != nil {
			return
		}
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, data); err != nil {
				return
			}
		}
	}))
	wsURL := "ws" + srv.URL[len("http"):]
	return srv, wsURL
}

// Property 6 (reconnect): on_connect is invoked again on reconnect.
func TestSupervisor_ReconnectsAndReinvokesOnConnect(t *testing.T) {
	var mu sync.Mutex
	accepted := 0
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		mu.Lock()
		accepted++
		first := accepted == 1
		mu.Unlock()
		if first {
			return // drop the first session to force a reconnect
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()
	url := "ws" + srv.URL[len("http"):]

	adapter := &recordingAdapter{}
	sup := New(url, adapter, nil)
	require.NoError(t, sup.Start())
	defer sup.Close()

	require.Eventually(t, func() bool {
		c, _, d := adapter.snapshot()
		return c == 2 && d >= 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestSupervisor_DeliversFrames(t *testing.T) {
	srv, url := echoServer(t)
	defer srv.Close()

	adapter := &recordingAdapter{}
	sup := New(url, adapter, nil)
	require.NoError(t, sup.Start())
	defer sup.Close()

	require.Eventually(t, func() bool {
		_, f, _ := adapter.snapshot()
		return f == 1
	}, time.Second, 10*time.Millisecond)

	adapter.mu.Lock()
	defer adapter.mu.Unlock()
	assert.Equal(t, []byte("hello"), adapter.frames[0])
}
