package config

import (
	"encoding/json"
	"os"

	"github.com/BullionBear/marketfeed/internal/marketerr"
	"github.com/BullionBear/marketfeed/internal/venue"
)

// FeedSettings lists the pairs a bot wants on one channel kind.
type FeedSettings struct {
	Symbols []venue.Pair `json:"symbols"`
}

// ExchangeSettings is one venue bot's subscription selection: which pairs
// get order book updates, which get trade updates, and the book depth to
// maintain per pair.
type ExchangeSettings struct {
	Exchange venue.Exchange `json:"exchange"`
	// Account names an entry in the credentials file passed via -creds;
	// empty means run this bot unauthenticated (public feeds only).
	Account     string        `json:"account,omitempty"`
	Orderbook   *FeedSettings `json:"orderbook,omitempty"`
	Trades      *FeedSettings `json:"trades,omitempty"`
	Depth       int           `json:"depth"`
	NATSSubject string        `json:"nats_subject,omitempty"`
}

// Channels expands the settings into the channel->pairs selection
// dispatch.FilterChannels consumes.
func (e ExchangeSettings) Channels() map[venue.Channel][]venue.Pair {
	out := make(map[venue.Channel][]venue.Pair)
	if e.Orderbook != nil && len(e.Orderbook.Symbols) > 0 {
		out[venue.ChannelLiveOrderBook] = e.Orderbook.Symbols
	}
	if e.Trades != nil && len(e.Trades.Symbols) > 0 {
		out[venue.ChannelLiveTrades] = e.Trades.Symbols
	}
	return out
}

// BotsConfig is the top-level bot-selection file: one ExchangeSettings
// per venue to bring up, plus an optional NATS target shared by every
// bot's recipient set.
type BotsConfig struct {
	Bots []ExchangeSettings `json:"bots"`
	NATS *NATSConfig        `json:"nats,omitempty"`
}

// LoadBotsConfig reads and validates the bot-selection file.
func LoadBotsConfig(path string) (*BotsConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg BotsConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, marketerr.New(marketerr.KindBadParse, err.Error())
	}

	for i, bot := range cfg.Bots {
		if bot.Exchange == "" {
			return nil, marketerr.MissingField("bots[].exchange")
		}
		if bot.Depth <= 0 {
			cfg.Bots[i].Depth = 5
		}
	}
	return &cfg, nil
}
