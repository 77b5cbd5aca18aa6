package embed

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProvider struct{}

func (countingProvider) Dimensions() int { return 2 }
func (countingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}
func (countingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, nil
}

func TestCacheConstructsOnce(t *testing.T) {
	builds := 0
	c := NewCache(func() (Provider, error) {
		builds++
		return countingProvider{}, nil
	})

	p1, err := c.Get()
	require.NoError(t, err)
	p2, err := c.Get()
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
	assert.Equal(t, 1, builds)
}

func TestCacheRetriesAfterFailure(t *testing.T) {
	attempts := 0
	c := NewCache(func() (Provider, error) {
		attempts++
		if attempts == 1 {
			return nil, fmt.Errorf("not ready")
		}
		return countingProvider{}, nil
	})

	_, err := c.Get()
	assert.Error(t, err)
	p, err := c.Get()
	require.NoError(t, err)
	assert.NotNil(t, p)
}
