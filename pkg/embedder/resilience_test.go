package embedder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyEmbedder fails a fixed number of times before succeeding.
type flakyEmbedder struct {
	failures int
	err      error
	calls    int
}

func (c *flakyEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls++
	if c.calls <= c.failures {
		return nil, c.err
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{1, 0}
	}
	return vectors, nil
}

func (c *flakyEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	if c.calls <= c.failures {
		return nil, c.err
	}
	return []float32{1, 0}, nil
}

func (c *flakyEmbedder) Dimensions() int { return 2 }
func (c *flakyEmbedder) Close() error    { return nil }

func fastRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:        3,
		InitialDelay:      time.Millisecond,
		MaxDelay:          5 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

func TestRetryClient(t *testing.T) {
	t.Run("retries transient errors", func(t *testing.T) {
		inner := &flakyEmbedder{failures: 2, err: errors.New("429 rate limit exceeded")}
		client := NewRetryClient(inner, fastRetryConfig())

		vector, err := client.EmbedSingle(context.Background(), "hi")
		require.NoError(t, err)
		assert.Equal(t, []float32{1, 0}, vector)
		assert.Equal(t, 3, inner.calls)
	})

	t.Run("batch calls retry too", func(t *testing.T) {
		inner := &flakyEmbedder{failures: 1, err: errors.New("503 service unavailable")}
		client := NewRetryClient(inner, fastRetryConfig())

		vectors, err := client.Embed(context.Background(), []string{"a", "b"})
		require.NoError(t, err)
		assert.Len(t, vectors, 2)
		assert.Equal(t, 2, inner.calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		inner := &flakyEmbedder{failures: 10, err: errors.New("503 service unavailable")}
		client := NewRetryClient(inner, fastRetryConfig())

		_, err := client.EmbedSingle(context.Background(), "hi")
		require.Error(t, err)
		assert.Equal(t, 4, inner.calls) // initial attempt plus three retries
	})

	t.Run("non-retryable error fails immediately", func(t *testing.T) {
		inner := &flakyEmbedder{failures: 10, err: errors.New("invalid api key")}
		client := NewRetryClient(inner, fastRetryConfig())

		_, err := client.EmbedSingle(context.Background(), "hi")
		require.Error(t, err)
		assert.Equal(t, 1, inner.calls)
	})

	t.Run("context cancellation is not retried", func(t *testing.T) {
		inner := &flakyEmbedder{failures: 10, err: context.Canceled}
		client := NewRetryClient(inner, fastRetryConfig())

		_, err := client.EmbedSingle(context.Background(), "hi")
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, inner.calls)
	})
}

func TestCircuitBreakerClient(t *testing.T) {
	t.Run("passes successes through", func(t *testing.T) {
		inner := &flakyEmbedder{}
		client := NewCircuitBreakerClient(inner, CircuitBreakerConfig{Timeout: 60}, "test", nil)

		vector, err := client.EmbedSingle(context.Background(), "hi")
		require.NoError(t, err)
		assert.Equal(t, []float32{1, 0}, vector)
		assert.Equal(t, 2, client.Dimensions())
	})

	t.Run("opens after repeated failures and fails fast", func(t *testing.T) {
		inner := &flakyEmbedder{failures: 100, err: errors.New("model down")}
		client := NewCircuitBreakerClient(inner, CircuitBreakerConfig{Timeout: 60}, "test", nil)

		for i := 0; i < 3; i++ {
			_, err := client.EmbedSingle(context.Background(), "hi")
			require.Error(t, err)
		}
		callsBeforeOpen := inner.calls

		_, err := client.EmbedSingle(context.Background(), "hi")
		assert.ErrorIs(t, err, ErrUnavailable)
		assert.Equal(t, callsBeforeOpen, inner.calls)

		_, err = client.Embed(context.Background(), []string{"hi"})
		assert.ErrorIs(t, err, ErrUnavailable)
		assert.Equal(t, callsBeforeOpen, inner.calls)
	})
}
