package eventlog

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/quirybot/pipeline/internal/schema"
)

func TestEnvelope_RoundTrip(t *testing.T) {
	env := schema.LogEnvelope{
		EventType: schema.EventTypeDiscordMessage,
		MessageID: "m1",
		GuildID:   "g1",
		ChannelID: "c1",
		Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		DiscordMessage: &schema.MessageEvent{
			MessageID: "m1", GuildID: "g1", ChannelID: "c1", AuthorID: "u1", Text: "hi",
		},
	}

	data, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded schema.LogEnvelope
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.DiscordMessage == nil || decoded.DiscordMessage.Text != "hi" {
		t.Fatalf("expected discord message payload to round-trip, got %+v", decoded)
	}
	if decoded.PartitionKey() != "g1" {
		t.Errorf("expected partition key g1, got %q", decoded.PartitionKey())
	}
}

func TestEnvelope_PartitionKey_DMFallsBackToChannel(t *testing.T) {
	env := schema.LogEnvelope{ChannelID: "dm-chan"}
	if env.PartitionKey() != "dm-chan" {
		t.Errorf("expected channel id as partition key for DMs, got %q", env.PartitionKey())
	}
}

func TestNewProducerConsumer_DoesNotPanic(t *testing.T) {
	// NewProducer/NewConsumer only construct kafka-go clients lazily; they
	// do not dial brokers until the first read/write, so this is safe
	// without a live Kafka cluster.
	p := NewProducer([]string{"localhost:9092"})
	defer p.Close()

	c := NewConsumer([]string{"localhost:9092"}, "quiry-test")
	defer c.Close()
}
