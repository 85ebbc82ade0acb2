package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ratings-engine/internal/model"
	"github.com/sells-group/ratings-engine/internal/resilience"
)

func TestVendorFetch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/ratings", r.URL.Path)
		assert.Equal(t, "US5949181045", r.URL.Query().Get("isin"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ratings":[
			{"agency":"S&P","rating":"AAA","outlook":"Stable","as_of":"2025-03-14","source":"https://feed.example/msft"},
			{"agency":"Moodys","rating":"Aaa","outlook":"Stable","as_of":"2025-02-01"},
			{"agency":"DBRS","rating":"AAA","outlook":"Stable","as_of":"2025-01-01"}
		]}`))
	}))
	defer srv.Close()

	v := NewVendor(srv.URL, "test-key")
	out, err := v.Fetch(context.Background(),
		model.Entity{ISIN: "US5949181045", LegalName: "Microsoft Corporation"}, model.Agencies)
	require.NoError(t, err)
	require.Len(t, out, 2, "unsupported agencies are dropped")

	sp := out[model.AgencySP]
	assert.Equal(t, "AAA", sp.Token)
	assert.Equal(t, model.OutlookStable, sp.Outlook)
	assert.Equal(t, model.MethodVendor, sp.Method)
	assert.Equal(t, "https://feed.example/msft", sp.SourceRef)
	require.NotNil(t, sp.AsOf)
	assert.Equal(t, "2025-03-14", sp.AsOf.Format("2006-01-02"))

	moodys := out[model.AgencyMoodys]
	assert.Equal(t, model.ScaleMoodys, moodys.Scale)
	assert.NotEmpty(t, moodys.SourceRef, "request URL stands in when the feed omits a source")
}

func TestVendorFetchFiltersToMissing(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"ratings":[
			{"agency":"S&P","rating":"AA","as_of":"2025-03-14"},
			{"agency":"Fitch","rating":"AA-","as_of":"2025-03-14"}
		]}`))
	}))
	defer srv.Close()

	out, err := NewVendor(srv.URL, "k").Fetch(context.Background(),
		model.Entity{Ticker: "X"}, []model.Agency{model.AgencyFitch})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Contains(t, out, model.AgencyFitch)
}

func TestVendorNotFoundIsNotRated(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewVendor(srv.URL, "k").Fetch(context.Background(),
		model.Entity{Ticker: "NOPE"}, model.Agencies)
	require.Error(t, err)
	assert.Equal(t, resilience.CodeNotRated, resilience.CodeOf(err))
	assert.False(t, resilience.IsTransient(err), "a confirmed miss must not be retried")
}

func TestVendorServerErrorIsFetchError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewVendor(srv.URL, "k").Fetch(context.Background(),
		model.Entity{Ticker: "X"}, model.Agencies)
	require.Error(t, err)
	assert.Equal(t, resilience.CodeFetchError, resilience.CodeOf(err))
}

func TestVendorIdentifierPriority(t *testing.T) {
	t.Parallel()

	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"ratings":[]}`))
	}))
	defer srv.Close()

	v := NewVendor(srv.URL, "k")
	_, err := v.Fetch(context.Background(),
		model.Entity{ISIN: "US0378331005", LEI: "HWUPKR0MPOU8FGXBT394", Ticker: "AAPL"}, model.Agencies)
	require.NoError(t, err)
	assert.Equal(t, "isin=US0378331005", query, "ISIN wins over LEI and ticker")

	_, err = v.Fetch(context.Background(),
		model.Entity{LEI: "HWUPKR0MPOU8FGXBT394", Ticker: "AAPL"}, model.Agencies)
	require.NoError(t, err)
	assert.Equal(t, "lei=HWUPKR0MPOU8FGXBT394", query)
}
