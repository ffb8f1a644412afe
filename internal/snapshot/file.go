package snapshot

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/account-intel/internal/fetcher"
	"github.com/sells-group/account-intel/internal/index"
	"github.com/sells-group/account-intel/internal/model"
)

// FileClients reads a JSON array of client records from a path or URL.
// Elements that fail to decode are logged and skipped.
type FileClients struct {
	Path   string
	Opener fetcher.Opener
}

// LoadClients implements ClientSource.
func (f FileClients) LoadClients(ctx context.Context) ([]index.RawClient, error) {
	rc, err := opener(f.Opener).Open(ctx, f.Path)
	if err != nil {
		return nil, eris.Wrapf(err, "snapshot: open clients %s", f.Path)
	}
	defer rc.Close() //nolint:errcheck

	clients, err := fetcher.ReadJSONArray[index.RawClient](ctx, rc, func(pos int, err error) {
		zap.L().Debug("snapshot: skipping undecodable client record",
			zap.Int("position", pos),
			zap.Error(err),
		)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "snapshot: read clients %s", f.Path)
	}
	return clients, nil
}

// FileCatalog reads the product catalog from a .json, .csv or .xlsx file.
// Tabular files need a header row naming a product column; billing unit
// and owner columns are optional.
type FileCatalog struct {
	Path   string
	Opener fetcher.Opener
}

// LoadCatalog implements CatalogSource.
func (f FileCatalog) LoadCatalog(ctx context.Context) ([]model.ProductCatalogEntry, error) {
	switch strings.ToLower(filepath.Ext(f.Path)) {
	case ".xlsx":
		rows, err := fetcher.ReadXLSX(f.Path, fetcher.XLSXOptions{})
		if err != nil {
			return nil, eris.Wrapf(err, "snapshot: read catalog %s", f.Path)
		}
		return catalogFromRows(rows)
	case ".csv":
		rc, err := opener(f.Opener).Open(ctx, f.Path)
		if err != nil {
			return nil, eris.Wrapf(err, "snapshot: open catalog %s", f.Path)
		}
		defer rc.Close() //nolint:errcheck
		rows, err := fetcher.ReadCSV(rc)
		if err != nil {
			return nil, eris.Wrapf(err, "snapshot: read catalog %s", f.Path)
		}
		return catalogFromRows(rows)
	default:
		rc, err := opener(f.Opener).Open(ctx, f.Path)
		if err != nil {
			return nil, eris.Wrapf(err, "snapshot: open catalog %s", f.Path)
		}
		defer rc.Close() //nolint:errcheck
		entries, err := fetcher.ReadJSONArray[model.ProductCatalogEntry](ctx, rc, nil)
		if err != nil {
			return nil, eris.Wrapf(err, "snapshot: read catalog %s", f.Path)
		}
		return entries, nil
	}
}

var (
	productColumns = []string{"product_name", "product name", "product", "name", "api"}
	unitColumns    = []string{"billing_unit", "billing unit", "unit"}
	ownerColumns   = []string{"owner", "product_owner", "product owner"}
)

func catalogFromRows(rows [][]string) ([]model.ProductCatalogEntry, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	t := fetcher.NewTable(rows)
	productCol := t.Column(productColumns...)
	if productCol < 0 {
		return nil, eris.Errorf("snapshot: catalog has no product column (header %v)", t.Header)
	}
	unitCol, ownerCol := t.Column(unitColumns...), t.Column(ownerColumns...)

	out := make([]model.ProductCatalogEntry, 0, len(t.Rows))
	for _, row := range t.Rows {
		name := fetcher.Cell(row, productCol)
		if name == "" {
			continue
		}
		out = append(out, model.ProductCatalogEntry{
			ProductName: name,
			BillingUnit: fetcher.Cell(row, unitCol),
			Owner:       fetcher.Cell(row, ownerCol),
		})
	}
	return out, nil
}

func opener(o fetcher.Opener) fetcher.Opener {
	if o == nil {
		return fetcher.Source{}
	}
	return o
}
