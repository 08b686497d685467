// Package bitstamp decodes Bitstamp's JSON/WebSocket framing into
// normalized marketdata events, grounded on the source's
// bts:subscribe/bts:request_reconnect protocol.
package bitstamp

import (
	"encoding/json"

	"github.com/BullionBear/marketfeed/internal/marketdata"
	"github.com/BullionBear/marketfeed/internal/orderbook"
	"github.com/BullionBear/marketfeed/internal/streaming"
	"github.com/BullionBear/marketfeed/internal/venue"
	"github.com/BullionBear/marketfeed/internal/wsclient"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const StreamURL = "wss://ws.bitstamp.net"

func channelString(ch venue.Channel) string {
	switch ch {
	case venue.ChannelLiveTrades:
		return "live_trades"
	case venue.ChannelLiveOrders:
		return "live_orders"
	case venue.ChannelLiveOrderBook:
		return "order_book"
	case venue.ChannelLiveDetailOrderBook:
		return "detail_order_book"
	case venue.ChannelLiveFullOrderBook:
		return "diff_order_book"
	default:
		return ""
	}
}

type subscribeFrame struct {
	Event string        `json:"event"`
	Data  subscribeData `json:"data"`
}

type subscribeData struct {
	Channel string `json:"channel"`
}

type inboundFrame struct {
	Event   string          `json:"event"`
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

type tradeData struct {
	Amount string `json:"amount"`
	Price  string `json:"price"`
	Type   int    `json:"type"` // 0 = buy-side taker, 1 = sell-side taker
	Micro  int64  `json:"microtimestamp,string"`
}

type diffBookData struct {
	Bids      [][2]string `json:"bids"`
	Asks      [][2]string `json:"asks"`
	Timestamp string      `json:"timestamp"`
}

// Adapter implements wsclient.Adapter for Bitstamp.
type Adapter struct {
	registry      *venue.Registry
	subscriptions []streaming.Subscription
	emitter       streaming.Emitter
	logger        *zerolog.Logger

	depth       int
	aggregators map[venue.Pair]*orderbook.Aggregator

	conn *wsclient.Conn
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
	}
}

// OnConnect re-issues every subscription frame in original order, as
// binary frames (matching the source's Message::Binary for subscribes).
func (a *Adapter) OnConnect(conn *wsclient.Conn) error {
	a.conn = conn
	return a.resubscribe()
}

// resubscribe re-sends every subscription frame in the original
// configured order. Used both for the initial connect and for
// bts:request_reconnect, which keeps the socket open.
func (a *Adapter) resubscribe() error {
	for _, sub := range a.subscriptions {
		symbol, ok := a.registry.PairToSymbol(sub.Pair)
		if !ok {
			continue
		}
		chanName := channelString(sub.Channel)
		if chanName == "" {
			continue
		}
		frame := subscribeFrame{
			Event: "bts:subscribe",
			Data:  subscribeData{Channel: chanName + "_" + symbol},
		}
		payload, err := json.Marshal(frame)
		if err != nil {
			return err
		}
		if err := a.conn.WriteBinary(payload); err != nil {
			return err
		}
		if sub.Channel == venue.ChannelLiveFullOrderBook || sub.Channel == venue.ChannelLiveOrderBook || sub.Channel == venue.ChannelLiveDetailOrderBook {
			if _, ok := a.aggregators[sub.Pair]; !ok {
				a.aggregators[sub.Pair] = orderbook.NewAggregator(sub.Pair, a.depth)
			}
		}
	}
	return nil
}

func (a *Adapter) OnDisconnect() {}

// OnFrame parses a text/binary frame; parse failures are logged at
// trace level and swallowed, never killing the connection.
func (a *Adapter) OnFrame(messageType int, data []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		a.logger.Trace().Err(err).Msg("bitstamp: frame decode failed")
		return
	}

	switch frame.Event {
	case "bts:subscription_succeeded":
		return
	case "bts:request_reconnect":
		a.logger.Debug().Msg("bitstamp: reconnect requested, re-subscribing")
		if err := a.resubscribe(); err != nil {
			a.logger.Debug().Err(err).Msg("bitstamp: resubscribe after request_reconnect failed")
		}
		return
	case "trade":
		a.handleTrade(frame)
	case "data":
		a.handleDiffBook(frame)
	}
}

func symbolPairFromChannel(channel string) (base string, pair string) {
	for i := len(channel) - 1; i >= 0; i-- {
		if channel[i] == '_' {
			return channel[:i], channel[i+1:]
		}
	}
	return channel, ""
}

func (a *Adapter) pairForChannel(channel string) (venue.Pair, bool) {
	_, symbol := symbolPairFromChannel(channel)
	return a.registry.SymbolToPair(symbol)
}

func (a *Adapter) handleTrade(frame inboundFrame) {
	var td tradeData
	if err := json.Unmarshal(frame.Data, &td); err != nil {
		a.logger.Trace().Err(err).Msg("bitstamp: trade decode failed")
		return
	}
	pair, ok := a.pairForChannel(frame.Channel)
	if !ok {
		return
	}
	price, err1 := decimal.NewFromString(td.Price)
	amount, err2 := decimal.NewFromString(td.Amount)
	if err1 != nil || err2 != nil {
		a.logger.Trace().Msg("bitstamp: trade numeric decode failed")
		return
	}
	side := marketdata.SideBuy
	if td.Type == 1 {
		side = marketdata.SideSell
	}
	a.emitter.Emit(marketdata.TradeEvent(marketdata.LiveTrade{
		EventMs: td.Micro / 1000,
		Pair:    pair,
		Amount:  amount,
		Price:   price,
		Side:    side,
	}))
}

func (a *Adapter) handleDiffBook(frame inboundFrame) {
	var db diffBookData
	if err := json.Unmarshal(frame.Data, &db); err != nil {
		a.logger.Trace().Err(err).Msg("bitstamp: diff book decode failed")
		return
	}
	pair, ok := a.pairForChannel(frame.Channel)
	if !ok {
		return
	}
	agg, ok := a.aggregators[pair]
	if !ok {
		agg = orderbook.NewAggregator(pair, a.depth)
		a.aggregators[pair] = agg
	}
	agg.UpdateAsks(parseLevels(db.Asks))
	agg.UpdateBids(parseLevels(db.Bids))

	if ob, emitted := agg.LatestOrderBook(); emitted {
		a.emitter.Emit(marketdata.OrderbookEvent(ob))
	}
}

func parseLevels(raw [][2]string) []orderbook.PriceLevel {
	levels := make([]orderbook.PriceLevel, 0, len(raw))
	for _, entry := range raw {
		price, err1 := decimal.NewFromString(entry[0])
		vol, err2 := decimal.NewFromString(entry[1])
		if err1 != nil || err2 != nil {
			continue
		}
		levels = append(levels, orderbook.NewPriceLevel(price, vol))
	}
	return levels
}
