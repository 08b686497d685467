package bittrex

import (
	"context"
	"testing"

	"github.com/BullionBear/marketfeed/internal/marketdata"
	"github.com/BullionBear/marketfeed/internal/venue"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarketSymbol_FlipsLegacyOrdering(t *testing.T) {
	assert.Equal(t, "ETH-BTC", marketSymbol("BTC-ETH"))
	assert.Equal(t, "whatever", marketSymbol("whatever"))
}

func TestToLevels_SkipsUnparseableEntries(t *testing.T) {
	levels := toLevels([]bookEntry{
		{Rate: "0.02", Quantity: "5"},
		{Rate: "bad", Quantity: "1"},
	})
	require.Len(t, levels, 1)
	assert.Equal(t, "0.02", levels[0].Price.String())
}

type noCreds struct{}

func (noCreds) Exchange() venue.Exchange       { return venue.ExchangeBittrex }
func (noCreds) Get(key string) (string, bool) { return "", false }

func TestClient_AddOrderRequiresCredentials(t *testing.T) {
	c := New(venue.BittrexRegistry(), noCreds{})
	price := decimal.RequireFromString("1")
	_, err := c.AddOrder(context.Background(), marketdata.OrderTypeBuyLimit, venue.PairETHBTC, decimal.RequireFromString("1"), &price)
	assert.Error(t, err)
}
