// Package extract pulls agency rating tokens out of page text. Extraction is
// regex-first; when pattern matching finds nothing it falls back to an LLM
// with a strict JSON contract.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/ratings-engine/internal/model"
	"github.com/sells-group/ratings-engine/internal/normalize"
	"github.com/sells-group/ratings-engine/internal/resilience"
	"github.com/sells-group/ratings-engine/pkg/anthropic"
)

// Extraction is one agency rating pulled from text.
type Extraction struct {
	Token   string
	Outlook model.Outlook
	AsOf    *time.Time
	Method  model.Method // scraped (regex) or llm
}

// Extractor finds rating tokens for a single agency in free text.
type Extractor struct {
	llm      anthropic.Client
	llmModel string

	// nowFunc bounds accepted as-of dates. Test injectable.
	nowFunc func() time.Time
}

// New creates an extractor. llm may be nil, which disables the fallback.
func New(llm anthropic.Client, llmModel string) *Extractor {
	return &Extractor{llm: llm, llmModel: llmModel, nowFunc: time.Now}
}

// WithNow replaces the extractor clock. Test use only.
func (e *Extractor) WithNow(now func() time.Time) *Extractor {
	e.nowFunc = now
	return e
}

// agencyCues locate the section of text discussing a given agency.
var agencyCues = map[model.Agency][]string{
	model.AgencySP:     {"S&P", "Standard & Poor", "Standard and Poor"},
	model.AgencyFitch:  {"Fitch"},
	model.AgencyMoodys: {"Moody's", "Moodys", "Moody’s"},
}

// contextWindow is how much text around an agency mention is scanned for a
// rating token.
const contextWindow = 400

// Candidate token patterns. Strong tokens are unambiguous in prose; weak
// single-letter tokens additionally require a rating cue right before them.
var (
	spFitchStrong = regexp.MustCompile(`(AAA|AA[+-]?|BBB[+-]?|BB[+-]?|CCC[+-]?|CC|SD|RD|A[+-]|B[+-])`)
	spFitchWeak   = regexp.MustCompile(`(?i)(?:rating[s]?(?: of)?[:\s]+|rated[:\s]+)`)
	spFitchSingle = regexp.MustCompile(`(A|B|C|D)`)

	moodysStrong = regexp.MustCompile(`(Aaa|Aa[123]|Baa[123]|Ba[123]|Caa[123]|Ca|A[123]|B[123])`)
	moodysSingle = regexp.MustCompile(`(C)`)

	// Both word orders appear in the wild: "outlook stable" in agency
	// actions, "stable outlook" in IR prose.
	outlookAfter  = regexp.MustCompile(`(?i)outlook[^.\n]{0,60}?(positive|stable|negative|developing)`)
	outlookBefore = regexp.MustCompile(`(?i)(positive|stable|negative|developing)\s+outlook`)

	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:as of|dated|affirmed on|updated)\s+([A-Z][a-z]+ \d{1,2},? \d{4})`),
		regexp.MustCompile(`(?i)(?:as of|dated|affirmed on|updated)\s+(\d{4}-\d{2}-\d{2})`),
	}

	dateLayouts = []string{"January 2, 2006", "January 2 2006", "2006-01-02"}
)

// Extract finds agency's rating in text. sourceRef is only used for logging;
// the caller attaches provenance to the resulting AgencyRating.
func (e *Extractor) Extract(ctx context.Context, agency model.Agency, text, sourceRef string) (*Extraction, error) {
	if ext := e.extractRegex(agency, text); ext != nil {
		return ext, nil
	}

	if e.llm == nil {
		return nil, resilience.Errorf(resilience.CodeNotRated, "extractor",
			"no %s rating token in text", agency)
	}

	zap.L().Debug("regex extraction found nothing, falling back to llm",
		zap.String("agency", string(agency)),
		zap.String("source", sourceRef),
	)
	return e.extractLLM(ctx, agency, text)
}

// extractRegex scans windows around agency mentions for a scale token.
func (e *Extractor) extractRegex(agency model.Agency, text string) *Extraction {
	scale := model.ScaleFor(agency)

	for _, cue := range agencyCues[agency] {
		idx := strings.Index(text, cue)
		for idx >= 0 {
			start := max(0, idx-contextWindow/4)
			end := min(len(text), idx+contextWindow)
			window := text[start:end]

			if token := findToken(window, scale); token != "" {
				return &Extraction{
					Token:   token,
					Outlook: findOutlook(window),
					AsOf:    e.findDate(window),
					Method:  model.MethodScraped,
				}
			}

			next := strings.Index(text[idx+len(cue):], cue)
			if next < 0 {
				break
			}
			idx += len(cue) + next
		}
	}
	return nil
}

// findToken returns the first recognized token in the window, preferring
// strong multi-character tokens over cue-guarded single letters.
func findToken(window string, scale model.Scale) string {
	strong, single := spFitchStrong, spFitchSingle
	if scale == model.ScaleMoodys {
		strong, single = moodysStrong, moodysSingle
	}

	for _, loc := range strong.FindAllStringIndex(window, -1) {
		token := window[loc[0]:loc[1]]
		if isolated(window, loc[0], loc[1]) && normalize.InScale(token, scale) {
			return token
		}
	}

	// Single letters only count directly after a rating cue ("rated B").
	for _, cueLoc := range spFitchWeak.FindAllStringIndex(window, -1) {
		rest := window[cueLoc[1]:]
		loc := single.FindStringIndex(rest)
		if loc != nil && loc[0] == 0 && isolated(rest, loc[0], loc[1]) {
			token := rest[loc[0]:loc[1]]
			if normalize.InScale(token, scale) {
				return token
			}
		}
	}
	return ""
}

// isolated checks the match is not embedded in a larger word or identifier.
func isolated(s string, start, end int) bool {
	if start > 0 {
		prev := s[start-1]
		if isWordByte(prev) || prev == '+' || prev == '-' {
			return false
		}
	}
	if end < len(s) && isWordByte(s[end]) {
		return false
	}
	return true
}

func isWordByte(b byte) bool {
	return b == '_' || ('0' <= b && b <= '9') || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}

func findOutlook(window string) model.Outlook {
	m := outlookAfter.FindStringSubmatch(window)
	if m == nil {
		m = outlookBefore.FindStringSubmatch(window)
	}
	if m == nil {
		return ""
	}
	switch strings.ToLower(m[1]) {
	case "positive":
		return model.OutlookPositive
	case "stable":
		return model.OutlookStable
	case "negative":
		return model.OutlookNegative
	case "developing":
		return model.OutlookDeveloping
	}
	return ""
}

func (e *Extractor) findDate(window string) *time.Time {
	for _, p := range datePatterns {
		m := p.FindStringSubmatch(window)
		if m == nil {
			continue
		}
		for _, layout := range dateLayouts {
			t, err := time.Parse(layout, m[1])
			if err != nil {
				continue
			}
			// Dates after "now" are extraction noise, not ratings.
			if t.After(e.nowFunc()) {
				continue
			}
			return &t
		}
	}
	return nil
}

// llmExtraction is the JSON contract the model must answer with.
type llmExtraction struct {
	Rating  string `json:"rating"`
	Outlook string `json:"outlook"`
	AsOf    string `json:"as_of"`
}

const llmSystemPrompt = `You extract credit ratings from text. Answer with a single JSON object:
{"rating": "<token>", "outlook": "<Positive|Stable|Negative|Developing|N/A>", "as_of": "<YYYY-MM-DD or empty>"}
If the text contains no rating from the requested agency, answer {"rating": "", "outlook": "", "as_of": ""}.
Never invent values. Output only the JSON object.`

// llmTextLimit truncates page text before sending it to the model.
const llmTextLimit = 8000

func (e *Extractor) extractLLM(ctx context.Context, agency model.Agency, text string) (*Extraction, error) {
	if len(text) > llmTextLimit {
		text = text[:llmTextLimit]
	}

	resp, err := e.llm.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     e.llmModel,
		MaxTokens: 256,
		System:    llmSystemPrompt,
		Messages: []anthropic.Message{{
			Role: "user",
			Content: fmt.Sprintf("Agency: %s (scale: %s)\n\nText:\n%s",
				agency, model.ScaleFor(agency), text),
		}},
	})
	if err != nil {
		return nil, resilience.NewError(resilience.CodeFetchError, "llm-extractor", err)
	}

	var out llmExtraction
	if err := json.Unmarshal([]byte(extractJSON(resp.Text)), &out); err != nil {
		return nil, resilience.Errorf(resilience.CodeFetchError, "llm-extractor",
			"malformed llm answer: %v", err)
	}
	if out.Rating == "" || !normalize.InScale(out.Rating, model.ScaleFor(agency)) {
		return nil, resilience.Errorf(resilience.CodeNotRated, "llm-extractor",
			"llm found no %s rating", agency)
	}

	ext := &Extraction{
		Token:   normalize.CleanToken(out.Rating),
		Outlook: model.Outlook(out.Outlook),
		Method:  model.MethodLLM,
	}
	if out.AsOf != "" {
		if t, err := time.Parse("2006-01-02", out.AsOf); err == nil && !t.After(e.nowFunc()) {
			ext.AsOf = &t
		}
	}
	return ext, nil
}

// extractJSON isolates the first JSON object in a model answer, tolerating
// surrounding prose or code fences.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return s
	}
	return s[start : end+1]
}
