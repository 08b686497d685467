package venue

import "strings"

// Pair is a canonical BASE_QUOTE trading pair identifier.
type Pair string

const (
	PairBTCUSD Pair = "BTC_USD"
	PairETHUSD Pair = "ETH_USD"
	PairETHBTC Pair = "ETH_BTC"
	PairLTCUSD Pair = "LTC_USD"
	PairXRPUSD Pair = "XRP_USD"
	PairBTCUSDT Pair = "BTC_USDT"
	PairETHUSDT Pair = "ETH_USDT"
)

// Currency is a closed enumeration of asset codes. A representative
// subset ships here; the full table is out of scope.
type Currency string

const (
	CurrencyBTC  Currency = "BTC"
	CurrencyETH  Currency = "ETH"
	CurrencyLTC  Currency = "LTC"
	CurrencyXRP  Currency = "XRP"
	CurrencyUSD  Currency = "USD"
	CurrencyUSDT Currency = "USDT"
)

var knownCurrencies = map[Currency]bool{
	CurrencyBTC:  true,
	CurrencyETH:  true,
	CurrencyLTC:  true,
	CurrencyXRP:  true,
	CurrencyUSD:  true,
	CurrencyUSDT: true,
}

// IsKnownCurrency reports whether code is in the closed currency
// enumeration, so a venue-returned balance for an asset we don't model
// can be skipped instead of surfaced under a made-up Currency value.
func IsKnownCurrency(code string) bool {
	return knownCurrencies[Currency(code)]
}

// Exchange is the closed enumeration of supported venues.
type Exchange string

const (
	ExchangeBitstamp Exchange = "Bitstamp"
	ExchangeKraken   Exchange = "Kraken"
	ExchangePoloniex Exchange = "Poloniex"
	ExchangeBittrex  Exchange = "Bittrex"
	ExchangeGdax     Exchange = "Gdax"
	ExchangeBinance  Exchange = "Binance"
)

var exchangeByLowerName = map[string]Exchange{
	"bitstamp": ExchangeBitstamp,
	"kraken":   ExchangeKraken,
	"poloniex": ExchangePoloniex,
	"bittrex":  ExchangeBittrex,
	"gdax":     ExchangeGdax,
	"binance":  ExchangeBinance,
}

// ParseExchange is case-insensitive, mirroring the source's FromStr.
func ParseExchange(name string) (Exchange, bool) {
	ex, ok := exchangeByLowerName[strings.ToLower(name)]
	return ex, ok
}

// Channel is the set of streamable feed kinds.
type Channel string

const (
	ChannelLiveTrades          Channel = "LiveTrades"
	ChannelLiveOrders          Channel = "LiveOrders"
	ChannelLiveOrderBook       Channel = "LiveOrderBook"
	ChannelLiveDetailOrderBook Channel = "LiveDetailOrderBook"
	ChannelLiveFullOrderBook   Channel = "LiveFullOrderBook"
)
