package source

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ratings-engine/internal/resilience"
	"github.com/sells-group/ratings-engine/pkg/jina"
)

func TestGuardJina_PassesThrough(t *testing.T) {
	t.Parallel()

	stub := &stubJina{
		pages: map[string]*jina.Page{
			"https://acme.example/ir": {Title: "IR", URL: "https://acme.example/ir", Content: "text"},
		},
		results: []jina.SearchResult{{Title: "hit", URL: "https://news.example/a"}},
	}
	g := GuardJina(resilience.NewWrapper(resilience.NewBreakers()), stub)

	page, err := g.Read(context.Background(), "https://acme.example/ir")
	require.NoError(t, err)
	assert.Equal(t, "text", page.Content)

	results, err := g.Search(context.Background(), "acme credit rating")
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestGuardJina_ReaderBreakerOpensAtThree(t *testing.T) {
	t.Parallel()

	stub := &stubJina{readErr: errors.New("reader down")}
	breakers := resilience.NewBreakers()
	g := GuardJina(resilience.NewWrapper(breakers), stub)

	for i := 0; i < 3; i++ {
		_, err := g.Read(context.Background(), "https://acme.example/ir")
		require.Error(t, err)
	}
	assert.True(t, breakers.States()["jina-reader"].Open)

	// The fourth call is rejected before the endpoint is touched.
	_, err := g.Read(context.Background(), "https://acme.example/ir")
	assert.Equal(t, resilience.CodeCircuitOpen, resilience.CodeOf(err))
	assert.Equal(t, int32(3), stub.readCalls.Load())
}

func TestGuardJina_EndpointsBreakIndependently(t *testing.T) {
	t.Parallel()

	stub := &stubJina{
		readErr: errors.New("reader down"),
		results: []jina.SearchResult{{Title: "hit", URL: "https://news.example/a"}},
	}
	breakers := resilience.NewBreakers()
	g := GuardJina(resilience.NewWrapper(breakers), stub)

	for i := 0; i < 3; i++ {
		_, _ = g.Read(context.Background(), "https://acme.example/ir")
	}
	require.True(t, breakers.States()["jina-reader"].Open)

	// Search keeps working while the reader is open.
	results, err := g.Search(context.Background(), "acme credit rating")
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.False(t, breakers.States()["jina-search"].Open)
}
