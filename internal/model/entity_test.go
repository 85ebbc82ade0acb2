package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveEntity(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		query string
		check func(t *testing.T, e Entity)
	}{
		{"isin", "US5949181045", func(t *testing.T, e Entity) {
			assert.Equal(t, "US5949181045", e.ISIN)
			assert.True(t, e.HasStrongIdentifier())
		}},
		{"lowercase isin", "us5949181045", func(t *testing.T, e Entity) {
			assert.Equal(t, "US5949181045", e.ISIN)
		}},
		{"lei", "HWUPKR0MPOU8FGXBT394", func(t *testing.T, e Entity) {
			assert.Equal(t, "HWUPKR0MPOU8FGXBT394", e.LEI)
			assert.Empty(t, e.ISIN)
		}},
		{"ticker", "MSFT", func(t *testing.T, e Entity) {
			assert.Equal(t, "MSFT", e.Ticker)
		}},
		{"name", "Johnson & Johnson", func(t *testing.T, e Entity) {
			assert.False(t, e.HasStrongIdentifier())
			assert.Equal(t, "Johnson & Johnson", e.LegalName)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			tc.check(t, ResolveEntity(tc.query))
		})
	}
}

func TestNormalizeName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "petroleo brasileiro s.a.", NormalizeName("Petróleo  Brasileiro   S.A."))
	assert.Equal(t, "nestle", NormalizeName("Nestlé"))
	assert.Equal(t, "abc", NormalizeName("  ABC  "))
}

func TestStripLegalSuffix(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Petrobras S.A.":         "Petrobras",
		"Example Holdings Inc.":  "Example",
		"Apple Inc.":             "Apple",
		"Siemens AG":             "Siemens",
		"Plain Name":             "Plain Name",
		"Inc.":                   "Inc.", // never strip down to nothing
	}
	for in, want := range cases {
		assert.Equal(t, want, StripLegalSuffix(in), "input %q", in)
	}
}

func TestRatingSetFillOnce(t *testing.T) {
	t.Parallel()

	set := NewRatingSet()
	assert.True(t, set.Fill(AgencyRating{Agency: AgencySP, Token: "AA"}))
	assert.False(t, set.Fill(AgencyRating{Agency: AgencySP, Token: "BBB"}),
		"a filled slot must stay filled")
	assert.Equal(t, "AA", set.Ratings[AgencySP].Token)

	assert.Equal(t, []Agency{AgencyFitch, AgencyMoodys}, set.Missing())
	assert.False(t, set.Complete())

	set.Fill(AgencyRating{Agency: AgencyFitch, Token: "AA-"})
	set.Fill(AgencyRating{Agency: AgencyMoodys, Token: "Aa2"})
	assert.True(t, set.Complete())
	assert.Nil(t, set.Missing())

	list := set.List()
	assert.Equal(t, AgencySP, list[0].Agency)
	assert.Equal(t, AgencyMoodys, list[2].Agency)
}

func TestDeriveStatus(t *testing.T) {
	t.Parallel()

	assert.Equal(t, StatusOK, DeriveStatus(3))
	assert.Equal(t, StatusPartial, DeriveStatus(2))
	assert.Equal(t, StatusDegraded, DeriveStatus(1))
	assert.Equal(t, StatusError, DeriveStatus(0))
}
