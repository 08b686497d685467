// Package marketdata holds the normalized event model every venue
// adapter decodes into and every recipient consumes.
package marketdata

import (
	"github.com/BullionBear/marketfeed/internal/venue"
	"github.com/shopspring/decimal"
)

// Ticker is a normalized last-trade/best-quote snapshot.
type Ticker struct {
	TimestampMs    int64
	Pair           venue.Pair
	LastTradePrice decimal.Decimal
	LowestAsk      decimal.Decimal
	HighestBid     decimal.Decimal
	Volume         *decimal.Decimal
}

// PriceLevel is a single (price, volume) entry of a book side.
type PriceLevel struct {
	Price  decimal.Decimal
	Volume decimal.Decimal
}

// Orderbook is a top-K snapshot of one (venue, pair) book at emission
// time. Asks are ascending by price, bids descending.
type Orderbook struct {
	TimestampMs int64
	Pair        venue.Pair
	Asks        []PriceLevel
	Bids        []PriceLevel
}

// Side identifies the aggressor of a trade.
type Side string

const (
	SideBuy  Side = "Buy"
	SideSell Side = "Sell"
)

// LiveTrade is a single executed trade.
type LiveTrade struct {
	EventMs int64
	Pair    venue.Pair
	Amount  decimal.Decimal
	Price   decimal.Decimal
	Side    Side
}

// OrderType mirrors the REST façade's order-placement kinds.
type OrderType string

const (
	OrderTypeBuyLimit   OrderType = "BuyLimit"
	OrderTypeSellLimit  OrderType = "SellLimit"
	OrderTypeBuyMarket  OrderType = "BuyMarket"
	OrderTypeSellMarket OrderType = "SellMarket"
)

// LiveOrder carries an order lifecycle update from an authenticated
// private stream. Modeled but not required for public-tape correctness.
type LiveOrder struct {
	EventMs int64
	Pair    venue.Pair
	OrderID string
	Type    OrderType
	Amount  decimal.Decimal
	Price   decimal.Decimal
}

// EventKind discriminates the LiveEvent union.
type EventKind int

const (
	EventNoop EventKind = iota
	EventTrade
	EventOrderbook
	EventOrder
)

// LiveEvent is the normalized event sum type. Exactly one of the typed
// fields is populated according to Kind; EventNoop carries none.
type LiveEvent struct {
	Kind      EventKind
	Trade     *LiveTrade
	Orderbook *Orderbook
	Order     *LiveOrder
}

func NoopEvent() LiveEvent { return LiveEvent{Kind: EventNoop} }

func TradeEvent(t LiveTrade) LiveEvent {
	return LiveEvent{Kind: EventTrade, Trade: &t}
}

func OrderbookEvent(ob Orderbook) LiveEvent {
	return LiveEvent{Kind: EventOrderbook, Orderbook: &ob}
}

func OrderEvent(o LiveOrder) LiveEvent {
	return LiveEvent{Kind: EventOrder, Order: &o}
}

// LiveEventEnvelope tags a normalized event with its source venue; this
// is what every recipient mailbox actually receives.
type LiveEventEnvelope struct {
	Exchange venue.Exchange
	Event    LiveEvent
}
