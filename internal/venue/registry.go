package venue

// SymbolMapping binds a canonical Pair to one venue's wire symbol.
type SymbolMapping struct {
	Pair   Pair
	Symbol string
}

// Registry is an immutable, bidirectional Pair<->symbol mapping for a
// single venue. It is built once at construction time and never mutated
// afterwards, matching spec's process-wide-at-startup requirement.
type Registry struct {
	pairToSymbol map[Pair]string
	symbolToPair map[string]Pair
}

// NewRegistry builds a Registry from a mapping table. Duplicate entries
// overwrite earlier ones; callers are expected to pass a de-duplicated
// table.
func NewRegistry(mappings []SymbolMapping) *Registry {
	r := &Registry{
		pairToSymbol: make(map[Pair]string, len(mappings)),
		symbolToPair: make(map[string]Pair, len(mappings)),
	}
	for _, m := range mappings {
		r.pairToSymbol[m.Pair] = m.Symbol
		r.symbolToPair[m.Symbol] = m.Pair
	}
	return r
}

// PairToSymbol returns the venue symbol for pair, case-sensitive.
// Unknown pairs are not an error: ok is false and the caller drops it.
func (r *Registry) PairToSymbol(pair Pair) (symbol string, ok bool) {
	symbol, ok = r.pairToSymbol[pair]
	return
}

// SymbolToPair returns the canonical pair for a venue symbol, strict match.
func (r *Registry) SymbolToPair(symbol string) (pair Pair, ok bool) {
	pair, ok = r.symbolToPair[symbol]
	return
}

// FilterPairs returns the subset of pairs known to the registry, dropping
// unknown ones silently (per spec's dispatch-time filtering rule).
func (r *Registry) FilterPairs(pairs []Pair) []Pair {
	out := make([]Pair, 0, len(pairs))
	for _, p := range pairs {
		if _, ok := r.pairToSymbol[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// BitstampRegistry is the representative symbol table for Bitstamp.
func BitstampRegistry() *Registry {
	return NewRegistry([]SymbolMapping{
		{PairBTCUSD, "btcusd"},
		{PairETHUSD, "ethusd"},
		{PairETHBTC, "ethbtc"},
		{PairLTCUSD, "ltcusd"},
		{PairXRPUSD, "xrpusd"},
	})
}

// BinanceRegistry is the representative symbol table for Binance.
func BinanceRegistry() *Registry {
	return NewRegistry([]SymbolMapping{
		{PairBTCUSDT, "BTCUSDT"},
		{PairETHUSDT, "ETHUSDT"},
		{PairETHBTC, "ETHBTC"},
		{PairLTCUSD, "LTCUSDT"},
	})
}

// BittrexRegistry is the representative symbol table for Bittrex, using
// the venue's QUOTE-BASE dash notation (e.g. BTC-ETH for ETH_BTC).
func BittrexRegistry() *Registry {
	return NewRegistry([]SymbolMapping{
		{PairETHBTC, "BTC-ETH"},
		{PairLTCUSD, "USD-LTC"},
		{PairXRPUSD, "USD-XRP"},
	})
}
