// Package rest is the synchronous REST façade: ticker, order book
// snapshot, balances and order placement, one implementation per venue.
package rest

import (
	"context"

	"github.com/BullionBear/marketfeed/internal/marketdata"
	"github.com/BullionBear/marketfeed/internal/marketerr"
	"github.com/BullionBear/marketfeed/internal/venue"
	"github.com/shopspring/decimal"
)

// Credentials is the minimal contract a venue client needs; loading
// from a JSON file is internal/credentials' concern.
type Credentials interface {
	Exchange() venue.Exchange
	Get(key string) (string, bool)
}

// OrderInfo is returned by AddOrder on success.
type OrderInfo struct {
	OrderID string
	Pair    venue.Pair
	Type    marketdata.OrderType
	Amount  decimal.Decimal
	Price   decimal.Decimal
}

// Connector is the four operations spec names, narrowed from the
// teacher's broader exchange.Connector surface.
type Connector interface {
	Ticker(ctx context.Context, pair venue.Pair) (marketdata.Ticker, error)
	Orderbook(ctx context.Context, pair venue.Pair) (marketdata.Orderbook, error)
	AddOrder(ctx context.Context, orderType marketdata.OrderType, pair venue.Pair, quantity decimal.Decimal, price *decimal.Decimal) (OrderInfo, error)
	Balances(ctx context.Context) (map[venue.Currency]decimal.Decimal, error)
}

// ValidateAddOrder enforces the shared request-time contract: limit
// orders require a price, market orders must not carry one.
func ValidateAddOrder(orderType marketdata.OrderType, price *decimal.Decimal) error {
	isLimit := orderType == marketdata.OrderTypeBuyLimit || orderType == marketdata.OrderTypeSellLimit
	if isLimit && price == nil {
		return marketerr.MissingPrice()
	}
	isMarket := orderType == marketdata.OrderTypeBuyMarket || orderType == marketdata.OrderTypeSellMarket
	if isMarket && price != nil {
		return marketerr.New(marketerr.KindInvalidArguments, "market orders do not take a price")
	}
	return nil
}
