// Package streaming holds the shared emit/recipient plumbing each
// per-venue adapter package (bitstamp, binance, bittrex) builds on.
package streaming

import (
	"github.com/BullionBear/marketfeed/internal/marketdata"
	"github.com/BullionBear/marketfeed/internal/venue"
)

// Emitter is the single output every adapter pushes normalized events
// through. It is implemented by internal/dispatch.Fanout in production and
// by a channel-backed recorder in tests.
type Emitter interface {
	Emit(event marketdata.LiveEvent)
}

// EmitterFunc adapts a plain function to Emitter.
type EmitterFunc func(event marketdata.LiveEvent)

func (f EmitterFunc) Emit(event marketdata.LiveEvent) { f(event) }

// Subscription is one (channel, pair) the bot was configured with, after
// registry filtering has already dropped unknown pairs.
type Subscription struct {
	Channel venue.Channel
	Pair    venue.Pair
}
