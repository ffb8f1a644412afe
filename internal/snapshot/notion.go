package snapshot

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/account-intel/internal/model"
	"github.com/sells-group/account-intel/pkg/notion"
)

// Notion catalog database property names.
const (
	notionNameProp  = "Name"
	notionUnitProp  = "Billing Unit"
	notionOwnerProp = "Owner"
)

// NotionCatalog reads the product catalog from a Notion database with a
// "Name" title and optional "Billing Unit" and "Owner" properties.
type NotionCatalog struct {
	Client     notion.Client
	DatabaseID string
}

// LoadCatalog implements CatalogSource.
func (n NotionCatalog) LoadCatalog(ctx context.Context) ([]model.ProductCatalogEntry, error) {
	pages, err := notion.QuerySorted(ctx, n.Client, n.DatabaseID, notionNameProp)
	if err != nil {
		return nil, eris.Wrap(err, "snapshot: notion catalog")
	}

	out := make([]model.ProductCatalogEntry, 0, len(pages))
	for _, p := range pages {
		if p.Archived {
			continue
		}
		name := notion.PropertyText(p.Properties, notionNameProp)
		if name == "" {
			continue
		}
		out = append(out, model.ProductCatalogEntry{
			ProductName: name,
			BillingUnit: notion.PropertyText(p.Properties, notionUnitProp),
			Owner:       notion.PropertyText(p.Properties, notionOwnerProp),
		})
	}
	return out, nil
}
