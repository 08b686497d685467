// Package bittrex implements the REST façade for Bittrex v3. Like
// bitstamp, no bespoke REST client exists in the example pack for this
// venue; this wraps net/http directly, documented in DESIGN.md.
package bittrex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/BullionBear/marketfeed/internal/marketdata"
	"github.com/BullionBear/marketfeed/internal/marketerr"
	"github.com/BullionBear/marketfeed/internal/rest"
	"github.com/BullionBear/marketfeed/internal/rest/ratelimit"
	"github.com/BullionBear/marketfeed/internal/venue"
	"github.com/shopspring/decimal"
)

const baseURL = "https://api.bittrex.com/v3"

const MinRequestInterval = 200 * time.Millisecond

type Client struct {
	http     *http.Client
	registry *venue.Registry
	limiter  *ratelimit.Limiter
	creds    rest.Credentials
}

func New(registry *venue.Registry, creds rest.Credentials) *Client {
	return &Client{
		http:     &http.Client{Timeout: 10 * time.Second},
		registry: registry,
		limiter:  ratelimit.New(MinRequestInterval),
		creds:    creds,
	}
}

func (c *Client) symbolOrErr(pair venue.Pair) (string, error) {
	symbol, ok := c.registry.PairToSymbol(pair)
	if !ok {
		return "", marketerr.PairUnsupported(string(pair))
	}
	return symbol, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	c.limiter.Wait(false)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+path, nil)
	if err != nil {
		return marketerr.Wrap(marketerr.KindHTTP, "bittrex build request", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return marketerr.Wrap(marketerr.KindHTTP, "bittrex request", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return marketerr.Wrap(marketerr.KindHTTP, "bittrex read body", err)
	}
	if resp.StatusCode != http.StatusOK {
		return marketerr.New(marketerr.KindExchangeSpecific, fmt.Sprintf("bittrex %s: %s", path, strings.TrimSpace(string(body))))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return marketerr.Wrap(marketerr.KindJSON, "bittrex decode", err)
	}
	return nil
}

// marketSymbol converts the registry's "BTC-ETH" dash form to v3's
// "ETH-BTC" base-quote order (v3 flipped the legacy v1.1 ordering).
func marketSymbol(legacy string) string {
	parts := strings.SplitN(legacy, "-", 2)
	if len(parts) != 2 {
		return legacy
	}
	return parts[1] + "-" + parts[0]
}

type tickerResponse struct {
	Symbol      string `json:"symbol"`
	LastTradeRate string `json:"lastTradeRate"`
	BidRate     string `json:"bidRate"`
	AskRate     string `json:"askRate"`
}

func (c *Client) Ticker(ctx context.Context, pair venue.Pair) (marketdata.Ticker, error) {
	symbol, err := c.symbolOrErr(pair)
	if err != nil {
		return marketdata.Ticker{}, err
	}
	var resp tickerResponse
	if err := c.get(ctx, "/markets/"+marketSymbol(symbol)+"/ticker", &resp); err != nil {
		return marketdata.Ticker{}, err
	}
	last, err1 := decimal.NewFromString(resp.LastTradeRate)
	bid, err2 := decimal.NewFromString(resp.BidRate)
	ask, err3 := decimal.NewFromString(resp.AskRate)
	if err1 != nil || err2 != nil || err3 != nil {
		return marketdata.Ticker{}, marketerr.New(marketerr.KindBadParse, "bittrex ticker")
	}
	return marketdata.Ticker{
		TimestampMs:    time.Now().UnixMilli(),
		Pair:           pair,
		LastTradePrice: last,
		LowestAsk:      ask,
		HighestBid:     bid,
	}, nil
}

type bookEntry struct {
	Quantity string `json:"quantity"`
	Rate     string `json:"rate"`
}

type bookResponse struct {
	Bid []bookEntry `json:"bid"`
	Ask []bookEntry `json:"ask"`
}

func (c *Client) Orderbook(ctx context.Context, pair venue.Pair) (marketdata.Orderbook, error) {
	symbol, err := c.symbolOrErr(pair)
	if err != nil {
		return marketdata.Orderbook{}, err
	}
	var resp bookResponse
	if err := c.get(ctx, "/markets/"+marketSymbol(symbol)+"/orderbook", &resp); err != nil {
		return marketdata.Orderbook{}, err
	}
	return marketdata.Orderbook{
		TimestampMs: time.Now().UnixMilli(),
		Pair:        pair,
		Asks:        toLevels(resp.Ask),
		Bids:        toLevels(resp.Bid),
	}, nil
}

func toLevels(entries []bookEntry) []marketdata.PriceLevel {
	levels := make([]marketdata.PriceLevel, 0, len(entries))
	for _, e := range entries {
		price, err1 := decimal.NewFromString(e.Rate)
		vol, err2 := decimal.NewFromString(e.Quantity)
		if err1 != nil || err2 != nil {
			continue
		}
		levels = append(levels, marketdata.PriceLevel{Price: price, Volume: vol})
	}
	return levels
}

// AddOrder and Balances require Bittrex's HMAC-SHA512 request-signing
// scheme, not exercised by this module's streaming/snapshot focus.
func (c *Client) AddOrder(ctx context.Context, orderType marketdata.OrderType, pair venue.Pair, quantity decimal.Decimal, price *decimal.Decimal) (rest.OrderInfo, error) {
	if err := rest.ValidateAddOrder(orderType, price); err != nil {
		return rest.OrderInfo{}, err
	}
	if _, ok := c.creds.Get("api_key"); !ok {
		return rest.OrderInfo{}, marketerr.MissingField("api_key")
	}
	return rest.OrderInfo{}, marketerr.New(marketerr.KindExchangeSpecific, "bittrex authenticated order placement not implemented")
}

func (c *Client) Balances(ctx context.Context) (map[venue.Currency]decimal.Decimal, error) {
	if _, ok := c.creds.Get("api_key"); !ok {
		return nil, marketerr.MissingField("api_key")
	}
	return nil, marketerr.New(marketerr.KindExchangeSpecific, "bittrex authenticated balances not implemented")
}
