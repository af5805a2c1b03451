package ai

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestGeminiProvider_ClientInitializedOnce(t *testing.T) {
	p := NewGeminiProvider("test-key", time.Second, nil)

	var wg sync.WaitGroup
	clients := make([]*genai.Client, 8)
	errs := make([]error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			clients[i], errs[i] = p.getClient(context.Background())
		}(i)
	}
	wg.Wait()

	for i := 1; i < 8; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, clients[0], clients[i])
	}
}
