package source

import (
	"context"
	"fmt"
	"time"

	"github.com/sells-group/ratings-engine/internal/model"
)

// datasetRating is one agency's entry in the static table. Ages are stored
// relative so freshness checks stay meaningful as the process runs.
type datasetRating struct {
	token   string
	outlook model.Outlook
	ageDays int
}

type datasetEntry struct {
	name    string
	aliases []string // tickers, ISINs and name variants, matched after normalization
	ratings map[model.Agency]datasetRating
}

// The static dataset covers well-known issuers whose public ratings move
// rarely. It seeds tier 1 and doubles as the offline demo path.
var datasetEntries = []datasetEntry{
	{
		name:    "Microsoft Corporation",
		aliases: []string{"MSFT", "US5949181045", "microsoft", "microsoft corporation"},
		ratings: map[model.Agency]datasetRating{
			model.AgencySP:     {token: "AAA", outlook: model.OutlookStable, ageDays: 120},
			model.AgencyFitch:  {token: "AAA", outlook: model.OutlookStable, ageDays: 150},
			model.AgencyMoodys: {token: "Aaa", outlook: model.OutlookStable, ageDays: 95},
		},
	},
	{
		name:    "Apple Inc.",
		aliases: []string{"AAPL", "US0378331005", "apple", "apple inc"},
		ratings: map[model.Agency]datasetRating{
			model.AgencySP:     {token: "AA+", outlook: model.OutlookStable, ageDays: 200},
			model.AgencyMoodys: {token: "Aaa", outlook: model.OutlookStable, ageDays: 180},
		},
	},
	{
		name:    "Johnson & Johnson",
		aliases: []string{"JNJ", "US4781601046", "johnson & johnson", "johnson and johnson"},
		ratings: map[model.Agency]datasetRating{
			model.AgencySP:     {token: "AAA", outlook: model.OutlookStable, ageDays: 230},
			model.AgencyMoodys: {token: "Aaa", outlook: model.OutlookStable, ageDays: 210},
		},
	},
	{
		name:    "Petróleo Brasileiro S.A.",
		aliases: []string{"PBR", "PETR4", "petrobras", "petroleo brasileiro"},
		ratings: map[model.Agency]datasetRating{
			model.AgencySP:     {token: "BB-", outlook: model.OutlookStable, ageDays: 140},
			model.AgencyFitch:  {token: "BB-", outlook: model.OutlookStable, ageDays: 110},
			model.AgencyMoodys: {token: "Ba2", outlook: model.OutlookPositive, ageDays: 170},
		},
	},
	{
		name:    "Vale S.A.",
		aliases: []string{"VALE", "VALE3", "vale"},
		ratings: map[model.Agency]datasetRating{
			model.AgencySP:     {token: "BBB-", outlook: model.OutlookStable, ageDays: 160},
			model.AgencyFitch:  {token: "BBB-", outlook: model.OutlookStable, ageDays: 190},
			model.AgencyMoodys: {token: "Baa2", outlook: model.OutlookStable, ageDays: 220},
		},
	},
}

// Dataset is the synchronous, always-first tier backed by the static table.
type Dataset struct {
	index   map[string]*datasetEntry
	nowFunc func() time.Time
}

// NewDataset builds the lookup index over the built-in table.
func NewDataset() *Dataset {
	d := &Dataset{
		index:   make(map[string]*datasetEntry),
		nowFunc: time.Now,
	}
	for i := range datasetEntries {
		e := &datasetEntries[i]
		d.index[model.NormalizeName(e.name)] = e
		d.index[model.NormalizeName(model.StripLegalSuffix(e.name))] = e
		for _, alias := range e.aliases {
			d.index[model.NormalizeName(alias)] = e
		}
	}
	return d
}

// WithNow replaces the dataset clock. Test use only.
func (d *Dataset) WithNow(now func() time.Time) *Dataset {
	d.nowFunc = now
	return d
}

func (d *Dataset) Name() string { return "dataset" }

// Fetch is a pure in-memory lookup; it never fails.
func (d *Dataset) Fetch(_ context.Context, entity model.Entity, missing []model.Agency) (map[model.Agency]model.AgencyRating, error) {
	entry := d.lookup(entity)
	if entry == nil {
		return nil, nil
	}

	now := d.nowFunc()
	out := make(map[model.Agency]model.AgencyRating)
	for _, agency := range missing {
		dr, ok := entry.ratings[agency]
		if !ok {
			continue
		}
		asOf := now.AddDate(0, 0, -dr.ageDays)
		out[agency] = model.AgencyRating{
			Agency:    agency,
			Token:     dr.token,
			Outlook:   dr.outlook,
			AsOf:      &asOf,
			Scale:     model.ScaleFor(agency),
			SourceRef: fmt.Sprintf("dataset:%s", entry.name),
			Method:    model.MethodDataset,
		}
	}
	return out, nil
}

func (d *Dataset) lookup(entity model.Entity) *datasetEntry {
	for _, key := range []string{entity.ISIN, entity.Ticker, entity.LegalName, model.StripLegalSuffix(entity.LegalName), entity.Query} {
		if key == "" {
			continue
		}
		if e, ok := d.index[model.NormalizeName(key)]; ok {
			return e
		}
	}
	return nil
}
