// Package natsfeed publishes committed change-ledger entries to NATS
// JetStream, one subject per tenant and model, so downstream consumers
// (sync jobs, notification workers) can follow mutations without
// polling the ledger tables.
package natsfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/bblanco3/erp-backend/internal/domain/ledger"
)

const streamName = "ERP_LEDGER"

// Feed is a JetStream-backed change feed.
type Feed struct {
	nc  *nats.Conn
	js  jetstream.JetStream
	log *slog.Logger
}

// Handler consumes one feed entry. Returning an error NAKs the message
// for redelivery.
type Handler func(entry *ledger.Entry) error

// Connect establishes the NATS connection and ensures the ledger stream
// exists.
func Connect(ctx context.Context, url string, log *slog.Logger) (*Feed, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{"ledger.>"},
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream stream create: %w", err)
	}

	log.Info("change feed connected", "url", url, "stream", streamName)
	return &Feed{nc: nc, js: js, log: log}, nil
}

// Subject returns the feed subject for a ledger entry.
func Subject(e *ledger.Entry) string {
	return fmt.Sprintf("ledger.%s.%s", e.TenantID, e.ModelType)
}

// Publish sends one committed ledger entry to the feed.
func (f *Feed) Publish(ctx context.Context, e *ledger.Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode ledger entry %s: %w", e.ID, err)
	}
	if _, err := f.js.Publish(ctx, Subject(e), data); err != nil {
		return fmt.Errorf("publish ledger entry %s: %w", e.ID, err)
	}
	return nil
}

// Subscribe registers a durable consumer for a subject filter, e.g.
// "ledger.>" for everything or "ledger.*.estimate" for one model type.
func (f *Feed) Subscribe(ctx context.Context, durable, filter string, handler Handler) (func(), error) {
	consumer, err := f.js.CreateOrUpdateConsumer(ctx, streamName, jetstream.ConsumerConfig{
		Durable:       durable,
		FilterSubject: filter,
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("feed consumer create: %w", err)
	}

	cons, err := consumer.Consume(func(msg jetstream.Msg) {
		var entry ledger.Entry
		if err := json.Unmarshal(msg.Data(), &entry); err != nil {
			// Undecodable entries would redeliver forever.
			f.log.Error("discarding malformed feed entry", "subject", msg.Subject(), "error", err)
			_ = msg.Term()
			return
		}
		if err := handler(&entry); err != nil {
			f.log.Error("feed handler failed", "subject", msg.Subject(), "entry_id", entry.ID, "error", err)
			if nakErr := msg.Nak(); nakErr != nil {
				f.log.Error("feed nak failed", "error", nakErr)
			}
			return
		}
		if ackErr := msg.Ack(); ackErr != nil {
			f.log.Error("feed ack failed", "error", ackErr)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("feed consume: %w", err)
	}

	return cons.Stop, nil
}

// KeyValue returns (creating if needed) a JetStream KV bucket. The L2
// read-model cache lives in one of these.
func (f *Feed) KeyValue(ctx context.Context, bucket string, ttl time.Duration) (jetstream.KeyValue, error) {
	kv, err := f.js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket: bucket,
		TTL:    ttl,
	})
	if err != nil {
		return nil, fmt.Errorf("kv bucket %s: %w", bucket, err)
	}
	return kv, nil
}

// IsConnected reports whether the NATS connection is up.
func (f *Feed) IsConnected() bool {
	return f.nc != nil && f.nc.IsConnected()
}

// Close shuts down the NATS connection.
func (f *Feed) Close() error {
	f.nc.Close()
	return nil
}
