package config

import "testing"

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DISCORD_TOKEN", "discord-token")
	t.Setenv("COHERE_API_KEY", "cohere-key")
	t.Setenv("PINECONE_API_KEY", "pinecone-key")
	t.Setenv("PINECONE_HOST", "https://index-abc.svc.pinecone.io")
	t.Setenv("PINECONE_INDEX", "quiry")
}

func TestFromEnv_MinimalRequiredSet(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("ELASTICSEARCH_URL", "")
	t.Setenv("ELASTICSEARCH_INDEX", "")

	cfg, err := FromEnv("ingestworker")
	if err != nil {
		t.Fatalf("FromEnv returned error: %v", err)
	}
	if cfg.Vector.Namespace != "default" {
		t.Errorf("expected default namespace, got %q", cfg.Vector.Namespace)
	}
	if cfg.Kafka.Enabled {
		t.Errorf("expected Kafka disabled when KAFKA_BROKERS unset")
	}
	if cfg.Search.Enabled {
		t.Errorf("expected keyword index disabled when ELASTICSEARCH_URL unset")
	}
	if cfg.Port != 8083 {
		t.Errorf("expected ingestworker default port 8083, got %d", cfg.Port)
	}
}

func TestFromEnv_MissingRequired(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	t.Setenv("COHERE_API_KEY", "")
	t.Setenv("PINECONE_API_KEY", "")
	t.Setenv("PINECONE_HOST", "")
	t.Setenv("PINECONE_INDEX", "")

	if _, err := FromEnv("gateway"); err == nil {
		t.Fatalf("expected error when required vars are missing")
	}
}

func TestFromEnv_KafkaEnabledWithGroupSuffix(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("KAFKA_BROKERS", "broker-1:9092,broker-2:9092")
	t.Setenv("KAFKA_GROUP_ID", "quiry-bot")
	t.Setenv("ELASTICSEARCH_URL", "")
	t.Setenv("ELASTICSEARCH_INDEX", "")

	cfg, err := FromEnv("retriever")
	if err != nil {
		t.Fatalf("FromEnv returned error: %v", err)
	}
	if !cfg.Kafka.Enabled {
		t.Fatalf("expected Kafka enabled")
	}
	if len(cfg.Kafka.Brokers) != 2 {
		t.Errorf("expected 2 brokers, got %d: %v", len(cfg.Kafka.Brokers), cfg.Kafka.Brokers)
	}
	if cfg.Kafka.GroupID != "quiry-bot-retriever" {
		t.Errorf("expected per-worker group id suffix, got %q", cfg.Kafka.GroupID)
	}
}

func TestFromEnv_ElasticsearchPartialPairRejected(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("ELASTICSEARCH_URL", "http://localhost:9200")
	t.Setenv("ELASTICSEARCH_INDEX", "")

	if _, err := FromEnv("ingestworker"); err == nil {
		t.Fatalf("expected error when only ELASTICSEARCH_URL is set")
	}
}
