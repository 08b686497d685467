// Package dispatch builds a venue Bot from a wsclient.Adapter and fans
// normalized events out to an arbitrary set of recipients, tagging each
// with its source venue.
package dispatch

import (
	"github.com/BullionBear/marketfeed/internal/marketdata"
	"github.com/BullionBear/marketfeed/internal/streaming"
	"github.com/BullionBear/marketfeed/internal/venue"
	"github.com/BullionBear/marketfeed/internal/wsclient"
	"github.com/rs/zerolog"
)

// Recipient is a send-only mailbox accepting LiveEventEnvelope,
// non-blocking and at-most-once from the core's perspective.
type Recipient interface {
	Send(envelope marketdata.LiveEventEnvelope)
}

// Fanout implements streaming.Emitter, tagging each event with exchange
// and broadcasting to every recipient captured at construction time.
// Recipients are captured by value (the slice is not mutated after
// Start); adding recipients after start is not supported.
type Fanout struct {
	exchange   venue.Exchange
	recipients []Recipient
	logger     *zerolog.Logger
}

func NewFanout(exchange venue.Exchange, recipients []Recipient, logger *zerolog.Logger) *Fanout {
	if logger == nil {
		disabled := zerolog.New(nil).Level(zerolog.Disabled)
		logger = &disabled
	}
	return &Fanout{
		exchange:   exchange,
		recipients: append([]Recipient(nil), recipients...),
		logger:     logger,
	}
}

// Emit broadcasts the envelope to every recipient. If none are
// registered, the event is logged at debug level instead: a development
// convenience, not part of the public contract.
func (f *Fanout) Emit(event marketdata.LiveEvent) {
	envelope := marketdata.LiveEventEnvelope{Exchange: f.exchange, Event: event}
	if len(f.recipients) == 0 {
		f.logger.Debug().Str("exchange", string(f.exchange)).Msg("no recipients registered, dropping event")
		return
	}
	for _, r := range f.recipients {
		r.Send(envelope)
	}
}

var _ streaming.Emitter = (*Fanout)(nil)

// Bot supervises one venue's WebSocket session. Each Bot owns its
// adapter and aggregators exclusively. Frames are handled on a single
// goroutine inside Supervisor; the Binance adapter's snapshot goroutines
// also touch aggregators, and take a per-pair lock to do so.
type Bot struct {
	Exchange   venue.Exchange
	supervisor *wsclient.Supervisor
}

// NewBot wires a pre-built Adapter (already holding a Fanout-backed
// Emitter) to a supervised WebSocket session against endpoint.
func NewBot(exchange venue.Exchange, endpoint string, adapter wsclient.Adapter, logger *zerolog.Logger) *Bot {
	return &Bot{
		Exchange:   exchange,
		supervisor: wsclient.New(endpoint, adapter, logger),
	}
}

// Start opens the session. Per spec, late REST snapshots (Binance) do
// not block this from returning.
func (b *Bot) Start() error {
	return b.supervisor.Start()
}

// Stop closes the socket and cancels the heartbeat timer. In-flight REST
// snapshot goroutines are not cancelled: a snapshot that completes after
// Stop is still installed and its order book emitted to the recipients.
func (b *Bot) Stop() error {
	return b.supervisor.Close()
}

// FilterChannels drops pairs the registry doesn't recognize from a
// channel->pairs selection, per the symbol-registry filtering step of
// new_bot.
func FilterChannels(registry *venue.Registry, channels map[venue.Channel][]venue.Pair) []streaming.Subscription {
	var subs []streaming.Subscription
	for channel, pairs := range channels {
		for _, pair := range registry.FilterPairs(pairs) {
			subs = append(subs, streaming.Subscription{Channel: channel, Pair: pair})
		}
	}
	return subs
}
