package orderlog

import (
	"testing"

	"github.com/BullionBear/marketfeed/internal/rest"
	"github.com/BullionBear/marketfeed/internal/venue"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestEntry_TableName(t *testing.T) {
	assert.Equal(t, "order_log", Entry{}.TableName())
}

func TestStore_RecordBuildsEntryFromOrderInfo(t *testing.T) {
	info := rest.OrderInfo{
		OrderID: "42",
		Pair:    venue.PairBTCUSDT,
		Type:    "BuyLimit",
		Amount:  decimal.NewFromInt(1),
		Price:   decimal.NewFromInt(100),
	}
	entry := newEntry(venue.ExchangeBinance, info)
	assert.Equal(t, "42", entry.OrderID)
	assert.Equal(t, "BTC_USDT", entry.Pair)
}
