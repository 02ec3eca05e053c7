// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/quirybot/pipeline/internal/logger"
)

// Config captures all runtime configuration for the pipeline. Only the
// gateway, Cohere and Pinecone credentials are hard-required; the log and
// keyword index are optional collaborators and are validated as
// present-or-absent pairs instead.
type Config struct {
	DiscordToken string

	Cohere CohereConfig
	Vector VectorConfig
	Kafka  KafkaConfig
	Search SearchConfig

	Port int
}

type CohereConfig struct {
	APIKey string
}

type VectorConfig struct {
	APIKey    string
	Host      string
	Index     string
	Namespace string
}

// KafkaConfig is the nil-zero-value of the durable log collaborator. Enabled
// is false when KAFKA_BROKERS was not set, in which case the supervisor
// falls back to inline processing per the degraded-mode design.
type KafkaConfig struct {
	Enabled bool
	Brokers []string
	GroupID string
}

// SearchConfig is the nil-zero-value of the keyword index collaborator.
type SearchConfig struct {
	Enabled bool
	URL     string
	Index   string
}

// FromEnv loads a .env file (if present), binds environment variables via
// viper, validates the hard-required set and returns a ready Config. Any
// missing required variable is a fatal config error: the caller is expected
// to crash the process on it, per the degraded-mode design only covering the
// optional collaborators.
func FromEnv(workerName string) (Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debugf("FromEnv: no .env file loaded: %v", err)
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("PINECONE_NAMESPACE", "default")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_GROUP_ID", "quiry-bot")
	v.SetDefault("ELASTICSEARCH_URL", "")
	v.SetDefault("ELASTICSEARCH_INDEX", "")
	v.SetDefault("PORT", defaultPort(workerName))

	cfg := Config{
		DiscordToken: v.GetString("DISCORD_TOKEN"),
		Cohere: CohereConfig{
			APIKey: v.GetString("COHERE_API_KEY"),
		},
		Vector: VectorConfig{
			APIKey:    v.GetString("PINECONE_API_KEY"),
			Host:      v.GetString("PINECONE_HOST"),
			Index:     v.GetString("PINECONE_INDEX"),
			Namespace: v.GetString("PINECONE_NAMESPACE"),
		},
		Port: v.GetInt("PORT"),
	}

	brokers := strings.TrimSpace(v.GetString("KAFKA_BROKERS"))
	if brokers != "" {
		cfg.Kafka = KafkaConfig{
			Enabled: true,
			Brokers: strings.Split(brokers, ","),
			GroupID: v.GetString("KAFKA_GROUP_ID") + "-" + workerName,
		}
	} else {
		logger.Warnf("FromEnv: KAFKA_BROKERS not set, durable log disabled, falling back to inline processing")
	}

	esURL := strings.TrimSpace(v.GetString("ELASTICSEARCH_URL"))
	esIndex := strings.TrimSpace(v.GetString("ELASTICSEARCH_INDEX"))
	if esURL != "" && esIndex != "" {
		cfg.Search = SearchConfig{Enabled: true, URL: esURL, Index: esIndex}
	} else if esURL != "" || esIndex != "" {
		return Config{}, fmt.Errorf("ELASTICSEARCH_URL and ELASTICSEARCH_INDEX must both be set or both be absent")
	} else {
		logger.Warnf("FromEnv: ELASTICSEARCH_URL/ELASTICSEARCH_INDEX not set, keyword index disabled, falling back to dense-only retrieval")
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	if c.DiscordToken == "" {
		return fmt.Errorf("DISCORD_TOKEN is required")
	}
	if c.Cohere.APIKey == "" {
		return fmt.Errorf("COHERE_API_KEY is required")
	}
	if c.Vector.APIKey == "" {
		return fmt.Errorf("PINECONE_API_KEY is required")
	}
	if c.Vector.Host == "" {
		return fmt.Errorf("PINECONE_HOST is required")
	}
	if c.Vector.Index == "" {
		return fmt.Errorf("PINECONE_INDEX is required")
	}
	return nil
}

func defaultPort(workerName string) int {
	switch workerName {
	case "ingestworker":
		return 8083
	case "retriever":
		return 8084
	case "gateway":
		return 8085
	default:
		return 8080
	}
}
