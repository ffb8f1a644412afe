package salesforce

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Account is the subset of a Salesforce Account used to enrich client records.
type Account struct {
	ID             string  `json:"Id" salesforce:"Id"`
	Name           string  `json:"Name" salesforce:"Name"`
	Industry       string  `json:"Industry" salesforce:"Industry"`
	BillingCountry string  `json:"BillingCountry" salesforce:"BillingCountry"`
	Type           string  `json:"Type" salesforce:"Type"`
	AnnualRevenue  float64 `json:"AnnualRevenue" salesforce:"AnnualRevenue"`
}

// accountFields are the SOQL fields selected for Account queries.
var accountFields = []string{
	"Id", "Name", "Industry", "BillingCountry", "Type", "AnnualRevenue",
}

// ListCustomerAccounts returns every Account whose Type is accountType.
// An empty accountType returns all accounts.
func ListCustomerAccounts(ctx context.Context, c Client, accountType string) ([]Account, error) {
	soql := fmt.Sprintf("SELECT %s FROM Account", strings.Join(accountFields, ", "))
	if accountType != "" {
		soql += fmt.Sprintf(" WHERE Type = '%s'", escapeSoql(accountType))
	}
	soql += " ORDER BY Name"

	var accounts []Account
	if err := c.Query(ctx, soql, &accounts); err != nil {
		return nil, eris.Wrap(err, "sf: list customer accounts")
	}
	return accounts, nil
}

// FindAccountByName queries Salesforce for an Account with the exact name.
// Returns nil if no account is found.
func FindAccountByName(ctx context.Context, c Client, name string) (*Account, error) {
	soql := fmt.Sprintf(
		"SELECT %s FROM Account WHERE Name = '%s' LIMIT 1",
		strings.Join(accountFields, ", "),
		escapeSoql(name),
	)

	var accounts []Account
	if err := c.Query(ctx, soql, &accounts); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("sf: find account by name %s", name))
	}
	if len(accounts) == 0 {
		return nil, nil
	}
	return &accounts[0], nil
}

// escapeSoql escapes backslashes and single quotes in SOQL string literals.
func escapeSoql(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "'", `\'`)
}
