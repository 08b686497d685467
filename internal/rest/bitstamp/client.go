// Package bitstamp implements the REST façade for Bitstamp. No REST
// client for this venue exists anywhere in the example pack, so this
// wraps net/http directly; documented in DESIGN.md alongside the
// Bittrex client as the two stdlib-only exceptions in the REST layer.
package bitstamp

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

const baseURL = "https://www.bitstamp.net/api/v2"

// MinRequestInterval is an advisory spacing between unauthenticated calls.
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
		return marketerr.Wrap(marketerr.KindHTTP, "bitstamp build request", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return marketerr.Wrap(marketerr.KindHTTP, "bitstamp request", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return marketerr.Wrap(marketerr.KindHTTP, "bitstamp read body", err)
	}
	if resp.StatusCode != http.StatusOK {
		return marketerr.New(marketerr.KindExchangeSpecific, fmt.Sprintf("bitstamp %s: %s", path, strings.TrimSpace(string(body))))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return marketerr.Wrap(marketerr.KindJSON, "bitstamp decode", err)
	}
	return nil
}

type tickerResponse struct {
	Last string `json:"last"`
	Ask  string `json:"ask"`
	Bid  string `json:"bid"`
}

func (c *Client) Ticker(ctx context.Context, pair venue.Pair) (marketdata.Ticker, error) {
	symbol, err := c.symbolOrErr(pair)
	if err != nil {
		return marketdata.Ticker{}, err
	}
	var resp tickerResponse
	if err := c.get(ctx, "/ticker/"+symbol+"/", &resp); err != nil {
		return marketdata.Ticker{}, err
	}
	last, err1 := decimal.NewFromString(resp.Last)
	ask, err2 := decimal.NewFromString(resp.Ask)
	bid, err3 := decimal.NewFromString(resp.Bid)
	if err1 != nil || err2 != nil || err3 != nil {
		return marketdata.Ticker{}, marketerr.New(marketerr.KindBadParse, "bitstamp ticker")
	}
	return marketdata.Ticker{
		TimestampMs:    time.Now().UnixMilli(),
		Pair:           pair,
		LastTradePrice: last,
		LowestAsk:      ask,
		HighestBid:     bid,
	}, nil
}

type bookResponse struct {
	Bids [][2]string `json:"bids"`
	Asks [][2]string `json:"asks"`
}

func (c *Client) Orderbook(ctx context.Context, pair venue.Pair) (marketdata.Orderbook, error) {
	symbol, err := c.symbolOrErr(pair)
	if err != nil {
		return marketdata.Orderbook{}, err
	}
	var resp bookResponse
	if err := c.get(ctx, "/order_book/"+symbol+"/", &resp); err != nil {
		return marketdata.Orderbook{}, err
	}
	return marketdata.Orderbook{
		TimestampMs: time.Now().UnixMilli(),
		Pair:        pair,
		Asks:        toLevels(resp.Asks),
		Bids:        toLevels(resp.Bids),
	}, nil
}

func toLevels(entries [][2]string) []marketdata.PriceLevel {
	levels := make([]marketdata.PriceLevel, 0, len(entries))
	for _, e := range entries {
		price, err1 := decimal.NewFromString(e[0])
		vol, err2 := decimal.NewFromString(e[1])
		if err1 != nil || err2 != nil {
			continue
		}
		levels = append(levels, marketdata.PriceLevel{Price: price, Volume: vol})
	}
	return levels
}

// AddOrder and Balances require authenticated (HMAC-signed) requests.
// Bitstamp's v2 auth scheme is form-encoded and not exercised by the
// streaming or snapshot paths this module focuses on; both return a
// clear exchange-specific error rather than a half-signed request.
func (c *Client) AddOrder(ctx context.Context, orderType marketdata.OrderType, pair venue.Pair, quantity decimal.Decimal, price *decimal.Decimal) (rest.OrderInfo, error) {
	if err := rest.ValidateAddOrder(orderType, price); err != nil {
		return rest.OrderInfo{}, err
	}
	if _, ok := c.creds.Get("api_key"); !ok {
		return rest.OrderInfo{}, marketerr.MissingField("api_key")
	}
	return rest.OrderInfo{}, marketerr.New(marketerr.KindExchangeSpecific, "bitstamp authenticated order placement not implemented")
}

func (c *Client) Balances(ctx context.Context) (map[venue.Currency]decimal.Decimal, error) {
	if _, ok := c.creds.Get("api_key"); !ok {
		return nil, marketerr.MissingField("api_key")
	}
	return nil, marketerr.New(marketerr.KindExchangeSpecific, "bitstamp authenticated balances not implemented")
}
