// Package natsrecipient publishes envelopes to NATS JetStream, one
// internal/jetstream.Publisher per venue, reusing the teacher's publish
// wrapper instead of calling JetStreamContext.Publish directly.
package natsrecipient

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/BullionBear/marketfeed/internal/jetstream"
	"github.com/BullionBear/marketfeed/internal/marketdata"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Recipient JSON-encodes each envelope and publishes it onto
// "<subjectPrefix>.<exchange>" via a dedicated jetstream.Publisher.
// Send may be called concurrently: a venue bot's read loop and any
// detached snapshot goroutines both emit onto the same Recipient.
type Recipient struct {
	nc            *nats.Conn
	js            nats.JetStreamContext
	subjectPrefix string
	logger        *zerolog.Logger

	mu         sync.Mutex
	publishers map[string]*jetstream.Publisher
}

func New(nc *nats.Conn, js nats.JetStreamContext, subjectPrefix string, logger *zerolog.Logger) *Recipient {
	if logger == nil {
		disabled := zerolog.New(nil).Level(zerolog.Disabled)
		logger = &disabled
	}
	return &Recipient{
		nc:            nc,
		js:            js,
		subjectPrefix: subjectPrefix,
		logger:        logger,
		publishers:    make(map[string]*jetstream.Publisher),
	}
}

// Send publishes non-blockingly from the caller's perspective: JetStream
// publish errors are logged and dropped, never surfaced to the venue bot.
func (r *Recipient) Send(envelope marketdata.LiveEventEnvelope) {
	payload, err := json.Marshal(envelope)
	if err != nil {
		r.logger.Debug().Err(err).Msg("natsrecipient: envelope marshal failed")
		return
	}
	subject := fmt.Sprintf("%s.%s", r.subjectPrefix, envelope.Exchange)
	pub := r.publisherFor(subject)
	if err := pub.Publish(payload); err != nil {
		r.logger.Debug().Err(err).Str("subject", subject).Msg("natsrecipient: publish failed")
	}
}

// publisherFor lazily builds one Publisher per subject; envelopes for a
// given exchange always resolve to the same subject, so this converges
// to one Publisher per venue. Guarded by mu since Send can be called
// concurrently from a read loop and a detached snapshot goroutine.
func (r *Recipient) publisherFor(subject string) *jetstream.Publisher {
	r.mu.Lock()
	defer r.mu.Unlock()
	if pub, ok := r.publishers[subject]; ok {
		return pub
	}
	pub := jetstream.NewPublisher(r.nc, &r.js, subject)
	r.publishers[subject] = pub
	return pub
}
