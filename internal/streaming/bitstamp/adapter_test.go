package bitstamp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/BullionBear/marketfeed/internal/marketdata"
	"github.com/BullionBear/marketfeed/internal/streaming"
	"github.com/BullionBear/marketfeed/internal/venue"
	"github.com/BullionBear/marketfeed/internal/wsclient"
	"github.com/gorilla/websocket"
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

func TestAdapter_OnConnectSendsSubscriptions(t *testing.T) {
	registry := venue.BitstampRegistry()
	subs := []streaming.Subscription{
		{Channel: venue.ChannelLiveTrades, Pair: venue.PairBTCUSD},
		{Channel: venue.ChannelLiveFullOrderBook, Pair: venue.PairETHUSD},
	}
	rec := &recorder{}
	adapter := New(registry, subs, rec, 5, nil)

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
			t.Fatal("timed out waiting for subscription frame")
		}
	}
	assert.Equal(t, "live_trades_btcusd", frames[0].Data.Channel)
	assert.Equal(t, "diff_order_book_ethusd", frames[1].Data.Channel)
}

// S3: bts:request_reconnect re-issues all subscriptions in original
// order without tearing down the connection.
func TestAdapter_RequestReconnectResubscribes(t *testing.T) {
	registry := venue.BitstampRegistry()
	subs := []streaming.Subscription{
		{Channel: venue.ChannelLiveTrades, Pair: venue.PairBTCUSD},
	}
	rec := &recorder{}
	adapter := New(registry, subs, rec, 5, nil)

	client, received, closeFn := dialPair(t)
	defer closeFn()
	defer client.Close()

	require.NoError(t, adapter.OnConnect(wsclient.NewConn(client)))
	<-received // initial subscribe

	adapter.OnFrame(websocket.TextMessage, []byte(`{"event":"bts:request_reconnect"}`))

	select {
	case data := <-received:
		var f subscribeFrame
		require.NoError(t, json.Unmarshal(data, &f))
		assert.Equal(t, "live_trades_btcusd", f.Data.Channel)
	case <-time.After(time.Second):
		t.Fatal("expected resubscribe frame after bts:request_reconnect")
	}
}

func TestAdapter_TradeDecode(t *testing.T) {
	registry := venue.BitstampRegistry()
	rec := &recorder{}
	adapter := New(registry, nil, rec, 5, nil)

	adapter.OnFrame(websocket.TextMessage, []byte(`{"event":"trade","channel":"live_trades_btcusd","data":{"amount":"0.5","price":"100.25","type":1,"microtimestamp":"1000000"}}`))

	events := rec.all()
	require.Len(t, events, 1)
	require.Equal(t, marketdata.EventTrade, events[0].Kind)
	assert.Equal(t, marketdata.SideSell, events[0].Trade.Side)
	assert.Equal(t, venue.PairBTCUSD, events[0].Trade.Pair)
}

func TestAdapter_DiffOrderBookUpdatesAggregator(t *testing.T) {
	registry := venue.BitstampRegistry()
	subs := []streaming.Subscription{{Channel: venue.ChannelLiveFullOrderBook, Pair: venue.PairBTCUSD}}
	rec := &recorder{}
	adapter := New(registry, subs, rec, 5, nil)

	client, _, closeFn := dialPair(t)
	defer closeFn()
	defer client.Close()
	require.NoError(t, adapter.OnConnect(wsclient.NewConn(client)))

	adapter.OnFrame(websocket.TextMessage, []byte(`{"event":"data","channel":"diff_order_book_btcusd","data":{"bids":[["100","1"]],"asks":[["101","2"]],"timestamp":"1"}}`))

	events := rec.all()
	require.Len(t, events, 1)
	require.Equal(t, marketdata.EventOrderbook, events[0].Kind)
	assert.Len(t, events[0].Orderbook.Bids, 1)
	assert.Len(t, events[0].Orderbook.Asks, 1)
}
