// Package normalize maps agency-specific rating tokens onto a canonical
// 21-step ordinal scale. Ordinal 1 is the best grade (AAA/Aaa) and 21 is
// default/worst; investment grade ends at BBB-/Baa3 (ordinal 10).
package normalize

import (
	"math"
	"strings"

	"github.com/sells-group/ratings-engine/internal/model"
)

// Unrecognized is the sentinel score for tokens outside the canonical scales.
// The validator treats it as a format error.
const Unrecognized = 0

// InvestmentGradeMax is the worst ordinal still considered investment grade
// (BBB- / Baa3).
const InvestmentGradeMax = 10

// Category labels for a set of ratings.
const (
	CategoryInvestmentGrade = "Investment Grade"
	CategorySpeculative     = "Speculative"
	CategoryNotRated        = "Not Rated"
)

// S&P and Fitch share a scale. CCC sub-grades collapse to one bucket; SD and
// RD are the agencies' selective/restricted default notations.
var spFitchScale = map[string]int{
	"AAA": 1,
	"AA+": 2, "AA": 3, "AA-": 4,
	"A+": 5, "A": 6, "A-": 7,
	"BBB+": 8, "BBB": 9, "BBB-": 10,
	"BB+": 11, "BB": 12, "BB-": 13,
	"B+": 14, "B": 15, "B-": 16,
	"CCC+": 17, "CCC": 17, "CCC-": 17,
	"CC": 18,
	"C":  19,
	"D":  21, "SD": 21, "RD": 21,
}

var moodysScale = map[string]int{
	"Aaa": 1,
	"Aa1": 2, "Aa2": 3, "Aa3": 4,
	"A1": 5, "A2": 6, "A3": 7,
	"Baa1": 8, "Baa2": 9, "Baa3": 10,
	"Ba1": 11, "Ba2": 12, "Ba3": 13,
	"B1": 14, "B2": 15, "B3": 16,
	"Caa1": 17, "Caa2": 17, "Caa3": 17,
	"Ca": 18,
	"C":  19,
}

// notRatedTokens are notations meaning "no current rating".
var notRatedTokens = map[string]struct{}{
	"NR": {}, "WR": {}, "WD": {}, "N/A": {}, "NA": {},
	"WITHDRAWN": {}, "NOT RATED": {},
}

// CleanToken trims a raw token and drops parenthesized qualifiers such as
// "(local)" or "(national)".
func CleanToken(raw string) string {
	token := strings.TrimSpace(raw)
	if i := strings.Index(token, "("); i >= 0 {
		token = strings.TrimSpace(token[:i])
	}
	return token
}

// IsNotRated reports whether the token is a not-rated notation.
func IsNotRated(raw string) bool {
	_, ok := notRatedTokens[strings.ToUpper(CleanToken(raw))]
	return ok
}

// Score maps a rating token on the given scale to its canonical ordinal.
// Unknown or not-rated tokens return Unrecognized; Score never fails.
func Score(raw string, scale model.Scale) int {
	token := CleanToken(raw)
	if token == "" || IsNotRated(token) {
		return Unrecognized
	}

	if scale == model.ScaleMoodys {
		// Moody's tokens are case-significant (Baa2 vs BAA2), but scraped
		// text often arrives uppercased; canonicalize the casing.
		if s, ok := moodysScale[canonMoodysCase(token)]; ok {
			return s
		}
		return Unrecognized
	}

	if s, ok := spFitchScale[strings.ToUpper(token)]; ok {
		return s
	}
	return Unrecognized
}

// canonMoodysCase rewrites a Moody's token into the scale's canonical casing:
// leading letter upper, remaining letters lower ("BAA2" -> "Baa2").
func canonMoodysCase(token string) string {
	if token == "" {
		return token
	}
	return strings.ToUpper(token[:1]) + strings.ToLower(token[1:])
}

// Recognized reports whether a score is a real ordinal rather than the
// sentinel.
func Recognized(score int) bool {
	return score >= 1 && score <= 21
}

// AverageScore returns the arithmetic mean of the recognized ordinals among
// the given ratings, rounded to one decimal. Unrecognized tokens are
// excluded, never zero-filled. Returns nil when no rating is recognized.
func AverageScore(ratings []model.AgencyRating) *float64 {
	var sum, n int
	for _, r := range ratings {
		score := r.NormalizedScore
		if score == Unrecognized {
			score = Score(r.Token, r.Scale)
		}
		if Recognized(score) {
			sum += score
			n++
		}
	}
	if n == 0 {
		return nil
	}
	avg := math.Round(float64(sum)/float64(n)*10) / 10
	return &avg
}

// Category buckets a set of ratings by its recognized average: investment
// grade through BBB-/Baa3, speculative below, not rated when nothing is
// recognized.
func Category(ratings []model.AgencyRating) string {
	avg := AverageScore(ratings)
	if avg == nil {
		return CategoryNotRated
	}
	if *avg <= InvestmentGradeMax {
		return CategoryInvestmentGrade
	}
	return CategorySpeculative
}

// ToSPFitch converts a Moody's token to its approximate S&P/Fitch
// equivalent, or "" when the token is unrecognized.
func ToSPFitch(moodysToken string) string {
	return equivalent(Score(moodysToken, model.ScaleMoodys), spFitchOrder)
}

// ToMoodys converts an S&P/Fitch token to its approximate Moody's
// equivalent, or "" when the token is unrecognized.
func ToMoodys(spFitchToken string) string {
	return equivalent(Score(spFitchToken, model.ScaleSPFitch), moodysOrder)
}

// Canonical representative token per ordinal, used for cross-scale
// conversion. Collapsed buckets map to their middle grade.
var spFitchOrder = [22]string{
	0: "", 1: "AAA", 2: "AA+", 3: "AA", 4: "AA-", 5: "A+", 6: "A", 7: "A-",
	8: "BBB+", 9: "BBB", 10: "BBB-", 11: "BB+", 12: "BB", 13: "BB-",
	14: "B+", 15: "B", 16: "B-", 17: "CCC", 18: "CC", 19: "C", 21: "D",
}

var moodysOrder = [22]string{
	0: "", 1: "Aaa", 2: "Aa1", 3: "Aa2", 4: "Aa3", 5: "A1", 6: "A2", 7: "A3",
	8: "Baa1", 9: "Baa2", 10: "Baa3", 11: "Ba1", 12: "Ba2", 13: "Ba3",
	14: "B1", 15: "B2", 16: "B3", 17: "Caa2", 18: "Ca", 19: "C",
}

func equivalent(score int, order [22]string) string {
	if !Recognized(score) {
		return ""
	}
	return order[score]
}

// InScale reports whether the token belongs to the agency's canonical
// enumerated scale. Used by the validator's format check.
func InScale(raw string, scale model.Scale) bool {
	return Recognized(Score(raw, scale))
}
