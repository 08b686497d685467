package bittrex

import (
	"encoding/json"
	"strings"

	"github.com/BullionBear/marketfeed/internal/marketdata"
	"github.com/BullionBear/marketfeed/internal/orderbook"
	"github.com/BullionBear/marketfeed/internal/streaming"
	"github.com/BullionBear/marketfeed/internal/venue"
	"github.com/BullionBear/marketfeed/internal/wsclient"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type deltaLevel struct {
	Rate     float64 `json:"Rate"`
	Quantity float64 `json:"Quantity"`
	Type     int     `json:"Type"`
}

type fill struct {
	Rate      float64 `json:"Rate"`
	Quantity  float64 `json:"Quantity"`
	OrderType string  `json:"OrderType"`
	TimeStamp string  `json:"TimeStamp"`
}

type exchangeDelta struct {
	MarketName string       `json:"MarketName"`
	Sells      []deltaLevel `json:"Sells"`
	Buys       []deltaLevel `json:"Buys"`
	Fills      []fill       `json:"Fills"`
}

type snapshotLevel struct {
	R float64 `json:"R"`
	Q float64 `json:"Q"`
}

type exchangeState struct {
	MarketName string          `json:"MarketName"`
	Sells      []snapshotLevel `json:"Sells"`
	Buys       []snapshotLevel `json:"Buys"`
}

// Adapter implements wsclient.Adapter for Bittrex's SignalR Hub protocol.
type Adapter struct {
	registry      *venue.Registry
	subscriptions []streaming.Subscription
	emitter       streaming.Emitter
	logger        *zerolog.Logger
	depth         int

	aggregators map[venue.Pair]*orderbook.Aggregator
	wantTrades  map[venue.Pair]bool
}

func New(registry *venue.Registry, subs []streaming.Subscription, emitter streaming.Emitter, depth int, logger *zerolog.Logger) *Adapter {
	if logger == nil {
		disabled := zerolog.New(nil).Level(zerolog.Disabled)
		logger = &disabled
	}
	return &Adapter{
		registry:      registry,
		subscriptions: subs,
		emitter:       emitter,
		depth:         depth,
		logger:        logger,
		aggregators:   make(map[venue.Pair]*orderbook.Aggregator),
		wantTrades:    make(map[venue.Pair]bool),
	}
}

// OnConnect sends SubscribeToExchangeDeltas and QueryExchangeState for
// every subscribed pair, with invocation ids "1" and "QE2" respectively.
func (a *Adapter) OnConnect(conn *wsclient.Conn) error {
	for _, sub := range a.subscriptions {
		symbol, ok := a.registry.PairToSymbol(sub.Pair)
		if !ok {
			continue
		}
		if sub.Channel == venue.ChannelLiveTrades {
			a.wantTrades[sub.Pair] = true
		}
		if _, exists := a.aggregators[sub.Pair]; !exists {
			a.aggregators[sub.Pair] = orderbook.NewAggregator(sub.Pair, a.depth)
		}

		subscribe := HubMessage{H: hubName, M: "SubscribeToExchangeDeltas", A: []interface{}{symbol}, I: "1"}
		if err := writeHubMessage(conn, subscribe); err != nil {
			return err
		}
		query := HubMessage{H: hubName, M: "QueryExchangeState", A: []interface{}{symbol}, I: "QE2"}
		if err := writeHubMessage(conn, query); err != nil {
			return err
		}
	}
	return nil
}

func writeHubMessage(conn *wsclient.Conn, msg HubMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return conn.WriteText(payload)
}

func (a *Adapter) OnDisconnect() {}

// OnFrame dispatches uE (delta), uS (summary, dropped after validation),
// and any QE* (snapshot) hub call.
func (a *Adapter) OnFrame(messageType int, data []byte) {
	var inbound InboundMessage
	if err := json.Unmarshal(data, &inbound); err != nil {
		a.logger.Trace().Err(err).Msg("bittrex: frame decode failed")
		return
	}
	for _, call := range inbound.M {
		a.dispatch(call)
	}
}

func (a *Adapter) dispatch(call HubCall) {
	switch {
	case call.M == "uE":
		a.handleDelta(call)
	case call.M == "uS":
		a.handleSummary(call)
	case strings.HasPrefix(call.M, "QE"):
		a.handleSnapshot(call)
	}
}

func firstArgBase64(args []json.RawMessage) (string, bool) {
	if len(args) == 0 {
		return "", false
	}
	var single string
	if err := json.Unmarshal(args[0], &single); err == nil {
		return single, true
	}
	var list []string
	if err := json.Unmarshal(args[0], &list); err == nil && len(list) > 0 {
		return list[0], true
	}
	return "", false
}

func (a *Adapter) handleDelta(call HubCall) {
	b64, ok := firstArgBase64(call.A)
	if !ok {
		return
	}
	raw, err := DecodePayload(b64)
	if err != nil {
		a.logger.Trace().Err(err).Msg("bittrex: delta payload decode failed")
		return
	}
	var delta exchangeDelta
	if err := json.Unmarshal(raw, &delta); err != nil {
		a.logger.Trace().Err(err).Msg("bittrex: delta JSON decode failed")
		return
	}
	pair, ok := a.registry.SymbolToPair(delta.MarketName)
	if !ok {
		return
	}
	agg, ok := a.aggregators[pair]
	if !ok {
		agg = orderbook.NewAggregator(pair, a.depth)
		a.aggregators[pair] = agg
	}
	agg.UpdateAsks(deltaLevelsToPriceLevels(delta.Sells))
	agg.UpdateBids(deltaLevelsToPriceLevels(delta.Buys))

	if ob, emitted := agg.LatestOrderBook(); emitted {
		a.emitter.Emit(marketdata.OrderbookEvent(ob))
	}

	if a.wantTrades[pair] {
		for _, f := range delta.Fills {
			side := marketdata.SideBuy
			if strings.Contains(strings.ToUpper(f.OrderType), "SELL") {
				side = marketdata.SideSell
			}
			a.emitter.Emit(marketdata.TradeEvent(marketdata.LiveTrade{
				Pair:   pair,
				Amount: decimal.NewFromFloat(f.Quantity),
				Price:  decimal.NewFromFloat(f.Rate),
				Side:   side,
			}))
		}
	}
}

func (a *Adapter) handleSummary(call HubCall) {
	// Parsed only for validation, then dropped: confirm the payload at
	// least decodes before discarding it.
	if b64, ok := firstArgBase64(call.A); ok {
		if _, err := DecodePayload(b64); err != nil {
			a.logger.Trace().Err(err).Msg("bittrex: summary payload decode failed")
		}
	}
}

func (a *Adapter) handleSnapshot(call HubCall) {
	b64, ok := firstArgBase64(call.A)
	if !ok {
		return
	}
	raw, err := DecodePayload(b64)
	if err != nil {
		a.logger.Trace().Err(err).Msg("bittrex: snapshot payload decode failed")
		return
	}
	var state exchangeState
	if err := json.Unmarshal(raw, &state); err != nil {
		a.logger.Trace().Err(err).Msg("bittrex: snapshot JSON decode failed")
		return
	}
	pair, ok := a.registry.SymbolToPair(state.MarketName)
	if !ok {
		return
	}
	agg, ok := a.aggregators[pair]
	if !ok {
		agg = orderbook.NewAggregator(pair, a.depth)
		a.aggregators[pair] = agg
	}
	agg.ResetAsks(snapshotLevelsToPriceLevels(state.Sells))
	agg.ResetBids(snapshotLevelsToPriceLevels(state.Buys))

	a.emitter.Emit(marketdata.OrderbookEvent(agg.OrderBook()))
}

func deltaLevelsToPriceLevels(levels []deltaLevel) []orderbook.PriceLevel {
	out := make([]orderbook.PriceLevel, len(levels))
	for i, l := range levels {
		out[i] = orderbook.NewPriceLevel(decimal.NewFromFloat(l.Rate), decimal.NewFromFloat(l.Quantity))
	}
	return out
}

func snapshotLevelsToPriceLevels(levels []snapshotLevel) []orderbook.PriceLevel {
	out := make([]orderbook.PriceLevel, len(levels))
	for i, l := range levels {
		out[i] = orderbook.NewPriceLevel(decimal.NewFromFloat(l.R), decimal.NewFromFloat(l.Q))
	}
	return out
}
