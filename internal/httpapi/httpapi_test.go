package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/BullionBear/marketfeed/internal/marketdata"
	"github.com/BullionBear/marketfeed/internal/rest"
	"github.com/BullionBear/marketfeed/internal/venue"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConnector struct{}

func (fakeConnector) Ticker(ctx context.Context, pair venue.Pair) (marketdata.Ticker, error) {
	return marketdata.Ticker{Pair: pair, LastTradePrice: decimal.NewFromInt(100)}, nil
}

func (fakeConnector) Orderbook(ctx context.Context, pair venue.Pair) (marketdata.Orderbook, error) {
	return marketdata.Orderbook{Pair: pair}, nil
}

func (fakeConnector) AddOrder(ctx context.Context, orderType marketdata.OrderType, pair venue.Pair, quantity decimal.Decimal, price *decimal.Decimal) (rest.OrderInfo, error) {
	if err := rest.ValidateAddOrder(orderType, price); err != nil {
		return rest.OrderInfo{}, err
	}
	return rest.OrderInfo{OrderID: "1", Pair: pair, Type: orderType, Amount: quantity}, nil
}

func (fakeConnector) Balances(ctx context.Context) (map[venue.Currency]decimal.Decimal, error) {
	return map[venue.Currency]decimal.Decimal{venue.CurrencyBTC: decimal.NewFromInt(1)}, nil
}

func newTestRouter(audit AuditRecorder) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	v := Venues{venue.ExchangeBinance: fakeConnector{}}
	New(r.Group("/api/v1"), v, audit)
	return r
}

type recordingAudit struct {
	exchange venue.Exchange
	info     rest.OrderInfo
	calls    int
}

func (a *recordingAudit) Record(exchange venue.Exchange, info rest.OrderInfo) error {
	a.exchange = exchange
	a.info = info
	a.calls++
	return nil
}

func TestGetTicker(t *testing.T) {
	r := newTestRouter(nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/Binance/ticker/BTCUSDT", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetTicker_UnknownExchange(t *testing.T) {
	r := newTestRouter(nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/Kraken/ticker/BTCUSDT", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPostOrder_MissingPriceOnLimit(t *testing.T) {
	r := newTestRouter(nil)
	body := `{"pair":"BTCUSDT","type":"BuyLimit","quantity":"1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/Binance/order", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetBalances(t *testing.T) {
	r := newTestRouter(nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/Binance/balances", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPostOrder_RecordsSuccessfulOrderToAudit(t *testing.T) {
	audit := &recordingAudit{}
	r := newTestRouter(audit)
	body := `{"pair":"BTCUSDT","type":"BuyLimit","quantity":"1","price":"100"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/Binance/order", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, audit.calls)
	assert.Equal(t, venue.ExchangeBinance, audit.exchange)
	assert.Equal(t, "1", audit.info.OrderID)
}
