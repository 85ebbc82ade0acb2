package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ratings-engine/internal/model"
)

func TestCache_FreshnessLifecycle(t *testing.T) {
	t.Parallel()

	now := time.Now()
	c := New(6*time.Hour, 2*time.Hour).WithNow(func() time.Time { return now })

	resp := model.Response{Query: "microsoft", Status: model.StatusOK}
	c.Set("ticker:MSFT", resp)

	t.Run("immediate read is fresh", func(t *testing.T) {
		data, stale, ok := c.Get("ticker:MSFT")
		require.True(t, ok)
		assert.False(t, stale)
		assert.Equal(t, "microsoft", data.Query)
	})

	t.Run("three hours later is stale with identical data", func(t *testing.T) {
		c.WithNow(func() time.Time { return now.Add(3 * time.Hour) })
		data, stale, ok := c.Get("ticker:MSFT")
		require.True(t, ok)
		assert.True(t, stale)
		assert.Equal(t, resp, data)
	})

	t.Run("past the TTL is a miss", func(t *testing.T) {
		c.WithNow(func() time.Time { return now.Add(7 * time.Hour) })
		_, _, ok := c.Get("ticker:MSFT")
		assert.False(t, ok)
	})

	t.Run("expired entry was evicted on read", func(t *testing.T) {
		assert.Equal(t, 0, c.Len())
	})
}

func TestCache_MissOnUnknownKey(t *testing.T) {
	t.Parallel()

	c := New(6*time.Hour, 2*time.Hour)
	_, _, ok := c.Get("isin:US5949181045")
	assert.False(t, ok)
}

func TestCache_SetReplacesEntry(t *testing.T) {
	t.Parallel()

	now := time.Now()
	c := New(6*time.Hour, 2*time.Hour).WithNow(func() time.Time { return now })

	c.Set("q:vale", model.Response{Status: model.StatusDegraded})

	// A rewrite resets the entry's age.
	c.WithNow(func() time.Time { return now.Add(5 * time.Hour) })
	c.Set("q:vale", model.Response{Status: model.StatusOK})

	c.WithNow(func() time.Time { return now.Add(6 * time.Hour) })
	data, stale, ok := c.Get("q:vale")
	require.True(t, ok)
	assert.False(t, stale)
	assert.Equal(t, model.StatusOK, data.Status)
}

func TestEntityCacheKeyPriority(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		entity model.Entity
		want   string
	}{
		{"isin wins", model.Entity{ISIN: "us5949181045", LEI: "L", Ticker: "MSFT"}, "isin:US5949181045"},
		{"lei next", model.Entity{LEI: "inr2ejn1eran0w5zp974", Ticker: "MSFT"}, "lei:INR2EJN1ERAN0W5ZP974"},
		{"ticker next", model.Entity{Ticker: "msft", LegalName: "Microsoft"}, "ticker:MSFT"},
		{"normalized query last", model.Entity{LegalName: "Pétrobras  S.A.", Query: "Pétrobras  S.A."}, "q:petrobras s.a."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.entity.CacheKey())
		})
	}
}
