package source

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/ratings-engine/internal/model"
	"github.com/sells-group/ratings-engine/internal/resilience"
)

// Vendor queries a commercial ratings feed over HTTP. It is the optional
// second tier; the engine skips it entirely when no base URL is configured.
type Vendor struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewVendor creates a vendor adapter.
func NewVendor(baseURL, apiKey string) *Vendor {
	return &Vendor{
		baseURL: baseURL,
		apiKey:  apiKey,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// WithHTTPClient replaces the underlying HTTP client. Test use only.
func (v *Vendor) WithHTTPClient(hc *http.Client) *Vendor {
	v.http = hc
	return v
}

func (v *Vendor) Name() string { return "vendor" }

// vendorRating is the vendor's wire shape for one agency rating.
type vendorRating struct {
	Agency  string `json:"agency"`
	Rating  string `json:"rating"`
	Outlook string `json:"outlook"`
	AsOf    string `json:"as_of"`
	Source  string `json:"source"`
}

type vendorResponse struct {
	Ratings []vendorRating `json:"ratings"`
}

func (v *Vendor) Fetch(ctx context.Context, entity model.Entity, missing []model.Agency) (map[model.Agency]model.AgencyRating, error) {
	reqURL, err := v.buildURL(entity)
	if err != nil {
		return nil, resilience.NewError(resilience.CodeFetchError, v.Name(), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, resilience.NewError(resilience.CodeFetchError, v.Name(), err)
	}
	req.Header.Set("Authorization", "Bearer "+v.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := v.http.Do(req)
	if err != nil {
		return nil, resilience.NewError(resilience.CodeFetchError, v.Name(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.NewError(resilience.CodeFetchError, v.Name(), err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		// The feed is reachable and confirms the entity has no coverage.
		return nil, resilience.Errorf(resilience.CodeNotRated, v.Name(), "no vendor coverage for %q", entity.CacheKey())
	case resp.StatusCode != http.StatusOK:
		return nil, resilience.Errorf(resilience.CodeFetchError, v.Name(), "status %d: %s", resp.StatusCode, string(body))
	}

	var vr vendorResponse
	if err := json.Unmarshal(body, &vr); err != nil {
		return nil, resilience.NewError(resilience.CodeFetchError, v.Name(), eris.Wrap(err, "vendor: unmarshal response"))
	}

	wanted := make(map[model.Agency]bool, len(missing))
	for _, a := range missing {
		wanted[a] = true
	}

	out := make(map[model.Agency]model.AgencyRating)
	for _, r := range vr.Ratings {
		agency, ok := parseAgency(r.Agency)
		if !ok || !wanted[agency] {
			continue
		}
		rating := model.AgencyRating{
			Agency:    agency,
			Token:     r.Rating,
			Outlook:   model.Outlook(r.Outlook),
			Scale:     model.ScaleFor(agency),
			SourceRef: v.sourceRef(r.Source, reqURL),
			Method:    model.MethodVendor,
		}
		if r.AsOf != "" {
			if t, err := time.Parse("2006-01-02", r.AsOf); err == nil {
				rating.AsOf = &t
			}
		}
		out[agency] = rating
	}
	return out, nil
}

func (v *Vendor) buildURL(entity model.Entity) (string, error) {
	u, err := url.Parse(v.baseURL + "/v1/ratings")
	if err != nil {
		return "", eris.Wrap(err, "vendor: parse base url")
	}
	q := u.Query()
	switch {
	case entity.ISIN != "":
		q.Set("isin", entity.ISIN)
	case entity.LEI != "":
		q.Set("lei", entity.LEI)
	case entity.Ticker != "":
		q.Set("ticker", entity.Ticker)
	default:
		q.Set("name", entity.LegalName)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (v *Vendor) sourceRef(fromPayload, reqURL string) string {
	if fromPayload != "" {
		return fromPayload
	}
	return reqURL
}

// parseAgency accepts the agency spellings seen across vendor feeds.
func parseAgency(s string) (model.Agency, bool) {
	switch s {
	case "S&P", "SP", "sp", "Standard & Poor's":
		return model.AgencySP, true
	case "Fitch", "fitch":
		return model.AgencyFitch, true
	case "Moody's", "Moodys", "moodys":
		return model.AgencyMoodys, true
	}
	return "", false
}
