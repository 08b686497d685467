package binance

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/BullionBear/marketfeed/internal/marketdata"
	"github.com/BullionBear/marketfeed/internal/orderbook"
	"github.com/BullionBear/marketfeed/internal/streaming"
	"github.com/BullionBear/marketfeed/internal/venue"
	"github.com/BullionBear/marketfeed/internal/wsclient"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []marketdata.LiveEvent
}

func (r *recorder) Emit(event marketdata.LiveEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) all() []marketdata.LiveEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]marketdata.LiveEvent(nil), r.events...)
}

type fakeSnapshotter struct {
	bids, asks []orderbook.PriceLevel
}

func (f *fakeSnapshotter) Snapshot(ctx context.Context, pair venue.Pair, depth int) (*orderbook.Aggregator, error) {
	agg := orderbook.NewAggregator(pair, depth)
	agg.ResetAsks(f.asks)
	agg.ResetBids(f.bids)
	return agg, nil
}

func dialPair(t *testing.T) (client *websocket.Conn, received chan []byte, closeFn func()) {
	received = make(chan []byte, 16)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		go func() {
			for {
				_, data, err := conn.ReadMessage()
				if err != nil {
					return
				}
				received <- data
			}
		}()
	}))
	wsURL := "ws" + srv.URL[len("http"):]
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	return client, received, srv.Close
}

// S4: subscribe frames carry lowercase symbol@channel params and a
// positive integer id.
func TestAdapter_S4SubscriptionFrames(t *testing.T) {
	registry := venue.BinanceRegistry()
	subs := []streaming.Subscription{
		{Channel: venue.ChannelLiveTrades, Pair: venue.PairBTCUSDT},
		{Channel: venue.ChannelLiveFullOrderBook, Pair: venue.PairBTCUSDT},
	}
	snap := &fakeSnapshotter{}
	adapter := New(registry, subs, &recorder{}, snap, 5, nil)

	client, received, closeFn := dialPair(t)
	defer closeFn()
	defer client.Close()

	require.NoError(t, adapter.OnConnect(wsclient.NewConn(client)))

	var frames []subscribeFrame
	for i := 0; i < 2; i++ {
		select {
		case data := <-received:
			var f subscribeFrame
			require.NoError(t, json.Unmarshal(data, &f))
			frames = append(frames, f)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for subscribe frame")
		}
	}
	assert.Equal(t, "SUBSCRIBE", frames[0].Method)
	assert.Equal(t, []string{"btcusdt@trade"}, frames[0].Params)
	assert.Greater(t, frames[0].ID, int64(0))
	assert.Equal(t, []string{"btcusdt@depth@100ms"}, frames[1].Params)
	assert.Greater(t, frames[1].ID, int64(0))
}

// is_buyer_maker derives the trade side: true => Sell, false => Buy.
func TestAdapter_TradeSideFromIsBuyerMaker(t *testing.T) {
	registry := venue.BinanceRegistry()
	rec := &recorder{}
	adapter := New(registry, nil, rec, &fakeSnapshotter{}, 5, nil)

	adapter.OnFrame(websocket.TextMessage, []byte(`{"e":"trade","s":"BTCUSDT","p":"100","q":"1","T":123,"m":true}`))
	adapter.OnFrame(websocket.TextMessage, []byte(`{"e":"trade","s":"BTCUSDT","p":"100","q":"1","T":124,"m":false}`))

	events := rec.all()
	require.Len(t, events, 2)
	assert.Equal(t, marketdata.SideSell, events[0].Trade.Side)
	assert.Equal(t, marketdata.SideBuy, events[1].Trade.Side)
}

// Staged sequence: deltas arriving before the snapshot completes are
// buffered and applied once the snapshot installs.
func TestAdapter_StagedSnapshotThenDeltas(t *testing.T) {
	registry := venue.BinanceRegistry()
	subs := []streaming.Subscription{{Channel: venue.ChannelLiveFullOrderBook, Pair: venue.PairBTCUSDT}}
	rec := &recorder{}
	snap := &fakeSnapshotter{
		asks: []orderbook.PriceLevel{orderbook.NewPriceLevel(decimal.RequireFromString("101"), decimal.RequireFromString("1"))},
		bids: []orderbook.PriceLevel{orderbook.NewPriceLevel(decimal.RequireFromString("100"), decimal.RequireFromString("1"))},
	}
	adapter := New(registry, subs, rec, snap, 5, nil)

	client, _, closeFn := dialPair(t)
	defer closeFn()
	defer client.Close()
	require.NoError(t, adapter.OnConnect(wsclient.NewConn(client)))

	adapter.OnFrame(websocket.TextMessage, []byte(`{"e":"depthUpdate","s":"BTCUSDT","b":[],"a":[["101","0"]]}`))

	require.Eventually(t, func() bool {
		return len(rec.all()) >= 2
	}, time.Second, 10*time.Millisecond)

	events := rec.all()
	last := events[len(events)-1]
	require.Equal(t, marketdata.EventOrderbook, last.Kind)
	assert.Empty(t, last.Orderbook.Asks)
}

