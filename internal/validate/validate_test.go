package validate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ratings-engine/internal/model"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testValidator() *Validator {
	return New(DefaultConfig()).WithNow(func() time.Time { return testNow })
}

func daysAgo(n int) *time.Time {
	t := testNow.AddDate(0, 0, -n)
	return &t
}

func goodRating() model.AgencyRating {
	return model.AgencyRating{
		Agency:    model.AgencySP,
		Token:     "AA-",
		Outlook:   model.OutlookStable,
		AsOf:      daysAgo(30),
		Scale:     model.ScaleSPFitch,
		SourceRef: "https://vendor.example/ratings/msft",
		Method:    model.MethodVendor,
	}
}

func TestValidateRatingClean(t *testing.T) {
	t.Parallel()

	res := testValidator().ValidateRating(goodRating())

	assert.True(t, res.IsValid)
	assert.Empty(t, res.Errors)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, model.ConfidenceHigh, res.Confidence)
	assert.Len(t, res.Checksum, 16)
	assert.NotEmpty(t, res.AuditTrail)
}

func TestValidateRatingBadToken(t *testing.T) {
	t.Parallel()

	r := goodRating()
	r.Token = "ZZZ"
	res := testValidator().ValidateRating(r)

	assert.False(t, res.IsValid)
	assert.Equal(t, model.ConfidenceRejected, res.Confidence)
	require.NotEmpty(t, res.Errors)
	assert.Contains(t, res.Errors[0], "INVALID_RATING_VALUE")
}

func TestValidateRatingUnknownOutlookWarnsOnly(t *testing.T) {
	t.Parallel()

	r := goodRating()
	r.Outlook = "Sideways"
	res := testValidator().ValidateRating(r)

	assert.True(t, res.IsValid, "a bad outlook must not reject the rating")
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "INVALID_OUTLOOK")
}

func TestValidateRatingFreshness(t *testing.T) {
	t.Parallel()

	t.Run("older than a year is rejected", func(t *testing.T) {
		t.Parallel()
		r := goodRating()
		r.AsOf = daysAgo(400)
		res := testValidator().ValidateRating(r)
		assert.False(t, res.IsValid)
		assert.Contains(t, res.Errors[0], "STALE_RATING")
	})

	t.Run("older than six months warns", func(t *testing.T) {
		t.Parallel()
		r := goodRating()
		r.AsOf = daysAgo(200)
		res := testValidator().ValidateRating(r)
		assert.True(t, res.IsValid)
		require.Len(t, res.Warnings, 1)
	})

	t.Run("future date is rejected", func(t *testing.T) {
		t.Parallel()
		r := goodRating()
		future := testNow.AddDate(0, 0, 10)
		r.AsOf = &future
		res := testValidator().ValidateRating(r)
		assert.False(t, res.IsValid)
		assert.Contains(t, res.Errors[0], "FUTURE_DATE")
	})

	t.Run("missing date rejected for vendor", func(t *testing.T) {
		t.Parallel()
		r := goodRating()
		r.AsOf = nil
		res := testValidator().ValidateRating(r)
		assert.False(t, res.IsValid)
		assert.Contains(t, res.Errors[0], "MISSING_DATE")
	})

	t.Run("missing date tolerated for heuristic", func(t *testing.T) {
		t.Parallel()
		r := goodRating()
		r.AsOf = nil
		r.Method = model.MethodHeuristic
		res := testValidator().ValidateRating(r)
		assert.True(t, res.IsValid)
	})
}

func TestValidateRatingMissingSourceRef(t *testing.T) {
	t.Parallel()

	r := goodRating()
	r.SourceRef = ""
	res := testValidator().ValidateRating(r)

	assert.False(t, res.IsValid)
	assert.Contains(t, res.Errors, "MISSING_SOURCE_REF")
}

func TestConfidenceGrading(t *testing.T) {
	t.Parallel()

	t.Run("llm caps at low", func(t *testing.T) {
		t.Parallel()
		r := goodRating()
		r.Method = model.MethodLLM
		res := testValidator().ValidateRating(r)
		assert.True(t, res.IsValid)
		assert.Equal(t, model.ConfidenceLow, res.Confidence)
	})

	t.Run("two warnings drop to medium", func(t *testing.T) {
		t.Parallel()
		r := goodRating()
		r.Outlook = "Sideways"
		r.AsOf = daysAgo(200)
		res := testValidator().ValidateRating(r)
		assert.True(t, res.IsValid)
		assert.Len(t, res.Warnings, 2)
		assert.Equal(t, model.ConfidenceMedium, res.Confidence)
	})
}

func TestChecksumStableAndSensitive(t *testing.T) {
	t.Parallel()

	a := goodRating()
	b := goodRating()
	assert.Equal(t, Checksum(a), Checksum(b))

	b.Token = "AA"
	assert.NotEqual(t, Checksum(a), Checksum(b))
}

func TestCrossValidate(t *testing.T) {
	t.Parallel()

	t.Run("wide spread is inconsistent", func(t *testing.T) {
		t.Parallel()
		cv := CrossValidate([]model.AgencyRating{
			{Agency: model.AgencySP, Token: "AAA", Scale: model.ScaleSPFitch},
			{Agency: model.AgencyMoodys, Token: "Ba2", Scale: model.ScaleMoodys},
		})
		assert.False(t, cv.Consistent)
		require.NotEmpty(t, cv.Issues)
		// Each token carries its equivalent on the other scale.
		assert.Contains(t, cv.Issues[0], "AAA (Aaa)")
		assert.Contains(t, cv.Issues[0], "Ba2 (BB)")
	})

	t.Run("one notch apart is consistent", func(t *testing.T) {
		t.Parallel()
		cv := CrossValidate([]model.AgencyRating{
			{Agency: model.AgencySP, Token: "AA+", Scale: model.ScaleSPFitch},
			{Agency: model.AgencyFitch, Token: "AA", Scale: model.ScaleSPFitch},
		})
		assert.True(t, cv.Consistent)
		assert.Empty(t, cv.Issues)
	})

	t.Run("average skips unrecognized tokens", func(t *testing.T) {
		t.Parallel()
		cv := CrossValidate([]model.AgencyRating{
			{Agency: model.AgencySP, Token: "AA", Scale: model.ScaleSPFitch},    // 3
			{Agency: model.AgencyFitch, Token: "???", Scale: model.ScaleSPFitch}, // excluded
		})
		require.NotNil(t, cv.NormalizedAverage)
		assert.Equal(t, 3.0, *cv.NormalizedAverage)
	})

	t.Run("single rating yields no verdict", func(t *testing.T) {
		t.Parallel()
		cv := CrossValidate([]model.AgencyRating{
			{Agency: model.AgencySP, Token: "AA", Scale: model.ScaleSPFitch},
		})
		assert.True(t, cv.Consistent)
		assert.Empty(t, cv.Issues)
	})
}

func TestReportRollup(t *testing.T) {
	t.Parallel()

	set := model.NewRatingSet()
	set.Fill(goodRating())
	fitch := goodRating()
	fitch.Agency = model.AgencyFitch
	fitch.Token = "AA"
	set.Fill(fitch)

	report := testValidator().Report(set)

	assert.True(t, report.AllValid)
	assert.Equal(t, model.ConfidenceHigh, report.OverallConfidence)
	require.NotNil(t, report.CrossAgency)
	assert.True(t, report.CrossAgency.Consistent)
	assert.Len(t, report.Results, 2)
}

func TestReportEmptySet(t *testing.T) {
	t.Parallel()

	report := testValidator().Report(model.NewRatingSet())

	assert.Empty(t, report.Results)
	assert.False(t, report.AllValid)
	assert.Equal(t, model.ConfidenceLow, report.OverallConfidence)
	assert.Nil(t, report.CrossAgency)
}

func TestReportMixedConfidence(t *testing.T) {
	t.Parallel()

	set := model.NewRatingSet()
	set.Fill(goodRating())
	llm := goodRating()
	llm.Agency = model.AgencyMoodys
	llm.Token = "Aa3"
	llm.Scale = model.ScaleMoodys
	llm.Method = model.MethodLLM
	set.Fill(llm)

	report := testValidator().Report(set)

	assert.True(t, report.AllValid)
	assert.Equal(t, model.ConfidenceMedium, report.OverallConfidence)
}
