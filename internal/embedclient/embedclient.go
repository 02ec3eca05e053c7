// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package embedclient

import "context"

// Client generates vector embeddings from text.
type Client interface {
	// Embed generates an embedding vector for a single piece of text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the dimension of the embedding vectors this client
	// produces.
	Dimension() int
}

// New constructs a Client based on the provided type. Supported types are
// "cohere" and "mock" (for tests and degraded local development).
func New(clientType string, apiKey string) (Client, error) {
	switch clientType {
	case "cohere":
		return NewCohereClient(apiKey), nil
	case "mock":
		return NewMockClient(1024), nil
	default:
		return nil, errUnknownClientType(clientType)
	}
}

type unknownClientTypeError string

func (e unknownClientTypeError) Error() string {
	return "embedclient: unknown client type " + string(e)
}

func errUnknownClientType(t string) error {
	return unknownClientTypeError(t)
}
