package snapshot

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/account-intel/internal/index"
	"github.com/sells-group/account-intel/internal/model"
	"github.com/sells-group/account-intel/internal/resolve"
	"github.com/sells-group/account-intel/pkg/salesforce"
)

// SalesforceEnricher fills a record's missing segment and geography from the
// Salesforce Account of the same normalized name. Industry becomes the
// segment and BillingCountry the geography. Values already present in the
// record are never replaced.
type SalesforceEnricher struct {
	Client      salesforce.Client
	AccountType string // e.g. "Customer"; empty reads all accounts
}

// Name implements Enricher.
func (SalesforceEnricher) Name() string { return "salesforce" }

// Enrich implements Enricher.
func (e SalesforceEnricher) Enrich(ctx context.Context, clients []index.RawClient) error {
	accounts, err := salesforce.ListCustomerAccounts(ctx, e.Client, e.AccountType)
	if err != nil {
		return eris.Wrap(err, "snapshot: salesforce accounts")
	}

	byName := make(map[string]salesforce.Account, len(accounts))
	for _, a := range accounts {
		if key := resolve.NormalizeName(a.Name); key != "" {
			byName[key] = a
		}
	}

	filled := 0
	for i := range clients {
		a, ok := byName[resolve.NormalizeName(clients[i].Name())]
		if !ok {
			continue
		}
		if a.Industry != "" && clients[i].Text(model.OverrideSegment) == "" {
			clients[i].Override(model.OverrideSegment, a.Industry)
			filled++
		}
		if a.BillingCountry != "" && clients[i].Text(model.OverrideGeography) == "" {
			clients[i].Override(model.OverrideGeography, a.BillingCountry)
			filled++
		}
	}

	zap.L().Debug("snapshot: salesforce enrichment",
		zap.Int("accounts", len(accounts)),
		zap.Int("fields_filled", filled),
	)
	return nil
}
