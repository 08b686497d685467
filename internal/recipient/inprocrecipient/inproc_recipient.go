// Package inprocrecipient is an in-process channel recipient, the Go
// analogue of the teacher's pkg/eventbus/inprocbus fan-out: a buffered
// channel mailbox consumed by a same-process subscriber.
package inprocrecipient

import (
	"github.com/BullionBear/marketfeed/internal/marketdata"
	"github.com/rs/zerolog"
)

// Recipient delivers envelopes onto a buffered channel. Send is
// non-blocking: if the channel is full, the envelope is dropped and
// logged, matching the "recipient back-pressure is the recipient's
// concern" contract.
type Recipient struct {
	ch     chan marketdata.LiveEventEnvelope
	logger *zerolog.Logger
}

func New(bufferSize int, logger *zerolog.Logger) *Recipient {
	if logger == nil {
		disabled := zerolog.New(nil).Level(zerolog.Disabled)
		logger = &disabled
	}
	return &Recipient{
		ch:     make(chan marketdata.LiveEventEnvelope, bufferSize),
		logger: logger,
	}
}

func (r *Recipient) Send(envelope marketdata.LiveEventEnvelope) {
	select {
	case r.ch <- envelope:
	default:
		r.logger.Debug().Str("exchange", string(envelope.Exchange)).Msg("inproc recipient buffer full, dropping envelope")
	}
}

// Events returns the read side of the mailbox for a consumer to range over.
func (r *Recipient) Events() <-chan marketdata.LiveEventEnvelope {
	return r.ch
}
