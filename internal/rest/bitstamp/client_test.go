package bitstamp

import (
	"context"
	"testing"

	"github.com/BullionBear/marketfeed/internal/marketdata"
	"github.com/BullionBear/marketfeed/internal/marketerr"
	"github.com/BullionBear/marketfeed/internal/venue"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToLevels_SkipsUnparseableEntries(t *testing.T) {
	levels := toLevels([][2]string{
		{"0.02", "5"},
		{"bad", "1"},
	})
	require.Len(t, levels, 1)
	assert.Equal(t, "0.02", levels[0].Price.String())
}

type noCreds struct{}

func (noCreds) Exchange() venue.Exchange      { return venue.ExchangeBitstamp }
func (noCreds) Get(key string) (string, bool) { return "", false }

func TestClient_BalancesRequiresCredentials(t *testing.T) {
	c := New(venue.BitstampRegistry(), noCreds{})
	_, err := c.Balances(context.Background())
	assert.Error(t, err)
}

func TestClient_AddOrderValidatesPriceBeforeCredentials(t *testing.T) {
	c := New(venue.BitstampRegistry(), noCreds{})
	_, err := c.AddOrder(context.Background(), marketdata.OrderTypeBuyLimit, venue.PairBTCUSD, decimal.RequireFromString("1"), nil)
	assert.ErrorIs(t, err, marketerr.MissingPrice())
}
