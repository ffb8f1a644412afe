package model

// ProductCatalogEntry is one row of the master list of sellable products.
type ProductCatalogEntry struct {
	ProductName string `json:"product_name"`
	BillingUnit string `json:"billing_unit,omitempty"`
	Owner       string `json:"owner,omitempty"`
}
