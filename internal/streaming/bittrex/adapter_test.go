package bittrex

import (
	"bytes"
	"compress/flate"
	"encoding/base64"
	"encoding/json"
	"sync"
	"testing"

	"github.com/BullionBear/marketfeed/internal/marketdata"
	"github.com/BullionBear/marketfeed/internal/orderbook"
	"github.com/BullionBear/marketfeed/internal/venue"
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

func encodePayload(t *testing.T, v interface{}) string {
	raw, err := json.Marshal(v)
	require.NoError(t, err)

	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	require.NoError(t, err)
	_, err = w.Write(raw)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func inboundFrame(t *testing.T, method string, args ...interface{}) []byte {
	rawArgs := make([]json.RawMessage, len(args))
	for i, a := range args {
		b, err := json.Marshal(a)
		require.NoError(t, err)
		rawArgs[i] = b
	}
	msg := InboundMessage{M: []HubCall{{H: hubName, M: method, A: rawArgs}}}
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	return data
}

// S2 (Bittrex deflate): uE delta removes an ask and adds a bid; one
// Orderbook emission results.
func TestAdapter_S2BittrexDeflateDelta(t *testing.T) {
	registry := venue.BittrexRegistry()
	rec := &recorder{}
	adapter := New(registry, nil, rec, 5, nil)
	adapter.aggregators[venue.PairETHBTC] = orderbook.NewAggregator(venue.PairETHBTC, 5)
	adapter.aggregators[venue.PairETHBTC].ResetAsks([]orderbook.PriceLevel{
		orderbook.NewPriceLevel(decimal.NewFromFloat(0.02), decimal.NewFromFloat(5)),
	})

	delta := exchangeDelta{
		MarketName: "BTC-ETH",
		Sells:      []deltaLevel{{Rate: 0.02, Quantity: 0}},
		Buys:       []deltaLevel{{Rate: 0.019, Quantity: 3}},
		Fills:      []fill{},
	}
	b64 := encodePayload(t, delta)
	frame := inboundFrame(t, "uE", []string{b64})

	adapter.OnFrame(0, frame)

	ob := adapter.aggregators[venue.PairETHBTC].OrderBook()
	assert.Empty(t, ob.Asks)
	require.Len(t, ob.Bids, 1)
	assert.True(t, ob.Bids[0].Price.Equal(decimal.NewFromFloat(0.019)))
	assert.True(t, ob.Bids[0].Volume.Equal(decimal.NewFromFloat(3)))

	events := rec.all()
	require.Len(t, events, 1)
	assert.Equal(t, marketdata.EventOrderbook, events[0].Kind)
}

func TestAdapter_SnapshotSeedsAggregator(t *testing.T) {
	registry := venue.BittrexRegistry()
	rec := &recorder{}
	adapter := New(registry, nil, rec, 5, nil)

	state := exchangeState{
		MarketName: "BTC-ETH",
		Sells:      []snapshotLevel{{R: 0.02, Q: 1}},
		Buys:       []snapshotLevel{{R: 0.019, Q: 2}},
	}
	b64 := encodePayload(t, state)
	frame := inboundFrame(t, "QE2", b64)

	adapter.OnFrame(0, frame)

	events := rec.all()
	require.Len(t, events, 1)
	require.Equal(t, marketdata.EventOrderbook, events[0].Kind)
	require.Len(t, events[0].Orderbook.Asks, 1)
	require.Len(t, events[0].Orderbook.Bids, 1)
}

func TestDecodePayload_RoundTrip(t *testing.T) {
	payload := map[string]string{"hello": "world"}
	b64 := encodePayload(t, payload)

	raw, err := DecodePayload(b64)
	require.NoError(t, err)

	var out map[string]string
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, payload, out)
}
