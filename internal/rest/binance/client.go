// Package binance implements the REST façade for Binance, wrapping
// github.com/adshao/go-binance/v2 rather than hand-rolling signing and
// request plumbing the library already provides.
package binance

import (
	"context"
	"fmt"
	"time"

	"github.com/BullionBear/marketfeed/internal/marketdata"
	"github.com/BullionBear/marketfeed/internal/marketerr"
	"github.com/BullionBear/marketfeed/internal/orderbook"
	"github.com/BullionBear/marketfeed/internal/rest"
	"github.com/BullionBear/marketfeed/internal/rest/ratelimit"
	"github.com/BullionBear/marketfeed/internal/venue"
	binancesdk "github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"
)

const snapshotDepthLimit = 1000

// MinRequestInterval is Binance's advisory minimum spacing between REST
// calls under the module's default weight budget.
const MinRequestInterval = 100 * time.Millisecond

// Client implements rest.Connector for Binance spot.
type Client struct {
	sdk      *binancesdk.Client
	registry *venue.Registry
	limiter  *ratelimit.Limiter
}

func New(registry *venue.Registry, creds rest.Credentials) *Client {
	apiKey, _ := creds.Get("api_key")
	apiSecret, _ := creds.Get("api_secret")
	return &Client{
		sdk:      binancesdk.NewClient(apiKey, apiSecret),
		registry: registry,
		limiter:  ratelimit.New(MinRequestInterval),
	}
}

func (c *Client) symbolOrErr(pair venue.Pair) (string, error) {
	symbol, ok := c.registry.PairToSymbol(pair)
	if !ok {
		return "", marketerr.PairUnsupported(string(pair))
	}
	return symbol, nil
}

func (c *Client) Ticker(ctx context.Context, pair venue.Pair) (marketdata.Ticker, error) {
	symbol, err := c.symbolOrErr(pair)
	if err != nil {
		return marketdata.Ticker{}, err
	}
	c.limiter.Wait(false)

	prices, err := c.sdk.NewListBookTickersService().Symbol(symbol).Do(ctx)
	if err != nil {
		return marketdata.Ticker{}, marketerr.Wrap(marketerr.KindHTTP, "binance ticker", err)
	}
	if len(prices) == 0 {
		return marketdata.Ticker{}, marketerr.New(marketerr.KindExchangeSpecific, "empty ticker response")
	}
	bid := decimal.RequireFromString(prices[0].BidPrice)
	ask := decimal.RequireFromString(prices[0].AskPrice)
	return marketdata.Ticker{
		TimestampMs:    time.Now().UnixMilli(),
		Pair:           pair,
		LastTradePrice: ask,
		LowestAsk:      ask,
		HighestBid:     bid,
	}, nil
}

func (c *Client) Orderbook(ctx context.Context, pair venue.Pair) (marketdata.Orderbook, error) {
	agg, err := c.Snapshot(ctx, pair, orderbook.DefaultDepth)
	if err != nil {
		return marketdata.Orderbook{}, err
	}
	return agg.OrderBook(), nil
}

// Snapshot fetches a depth snapshot and seeds a fresh Aggregator. This is
// the REST half of the Binance staged sequence in SPEC_FULL §4.6: the
// streaming adapter owns the resulting aggregator and applies deltas to it.
func (c *Client) Snapshot(ctx context.Context, pair venue.Pair, depth int) (*orderbook.Aggregator, error) {
	symbol, err := c.symbolOrErr(pair)
	if err != nil {
		return nil, err
	}
	c.limiter.Wait(false)

	resp, err := c.sdk.NewDepthService().Symbol(symbol).Limit(snapshotDepthLimit).Do(ctx)
	if err != nil {
		return nil, marketerr.Wrap(marketerr.KindHTTP, "binance depth snapshot", err)
	}

	agg := orderbook.NewAggregator(pair, depth)
	agg.ResetAsks(toLevels(resp.Asks))
	agg.ResetBids(toLevels(resp.Bids))
	return agg, nil
}

func toLevels(entries []binancesdk.Ask) []orderbook.PriceLevel {
	levels := make([]orderbook.PriceLevel, 0, len(entries))
	for _, e := range entries {
		price, err1 := decimal.NewFromString(e.Price)
		vol, err2 := decimal.NewFromString(e.Quantity)
		if err1 != nil || err2 != nil {
			continue
		}
		levels = append(levels, orderbook.NewPriceLevel(price, vol))
	}
	return levels
}

func (c *Client) AddOrder(ctx context.Context, orderType marketdata.OrderType, pair venue.Pair, quantity decimal.Decimal, price *decimal.Decimal) (rest.OrderInfo, error) {
	if err := rest.ValidateAddOrder(orderType, price); err != nil {
		return rest.OrderInfo{}, err
	}
	symbol, err := c.symbolOrErr(pair)
	if err != nil {
		return rest.OrderInfo{}, err
	}
	c.limiter.Wait(false)

	side := binancesdk.SideTypeBuy
	sdkType := binancesdk.OrderTypeMarket
	switch orderType {
	case marketdata.OrderTypeSellLimit:
		side = binancesdk.SideTypeSell
		sdkType = binancesdk.OrderTypeLimit
	case marketdata.OrderTypeBuyLimit:
		sdkType = binancesdk.OrderTypeLimit
	case marketdata.OrderTypeSellMarket:
		side = binancesdk.SideTypeSell
	}

	svc := c.sdk.NewCreateOrderService().
		Symbol(symbol).
		Side(side).
		Type(sdkType).
		Quantity(quantity.String())
	if price != nil {
		svc = svc.Price(price.String()).TimeInForce(binancesdk.TimeInForceTypeGTC)
	}

	resp, err := svc.Do(ctx)
	if err != nil {
		return rest.OrderInfo{}, marketerr.Wrap(marketerr.KindHTTP, "binance add_order", err)
	}
	return rest.OrderInfo{
		OrderID: fmt.Sprintf("%d", resp.OrderID),
		Pair:    pair,
		Type:    orderType,
		Amount:  quantity,
		Price:   derefOrZero(price),
	}, nil
}

func derefOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

func (c *Client) Balances(ctx context.Context) (map[venue.Currency]decimal.Decimal, error) {
	c.limiter.Wait(false)
	account, err := c.sdk.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, marketerr.Wrap(marketerr.KindHTTP, "binance balances", err)
	}
	balances := make(map[venue.Currency]decimal.Decimal, len(account.Balances))
	for _, b := range account.Balances {
		if !venue.IsKnownCurrency(b.Asset) {
			continue // asset code outside the closed Currency enumeration
		}
		free, err := decimal.NewFromString(b.Free)
		if err != nil {
			continue // unparseable amount
		}
		balances[venue.Currency(b.Asset)] = free
	}
	return balances, nil
}
