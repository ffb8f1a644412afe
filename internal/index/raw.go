// Package index builds the in-memory client catalog every scoring component
// reads. It owns the normalization boundary between loosely-typed upstream
// records and model.Client.
package index

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// Logical field names and their accepted spellings, most specific first.
// When several spellings are present and non-empty the first one wins.
var fieldSpellings = map[string][]string{
	fieldID:           {"clientId", "client_id", "id", "accountId"},
	fieldName:         {"clientName", "client_name", "companyName", "company_name", "name", "legalName"},
	fieldAliases:      {"aliases", "legalName", "legal_name", "brandNames", "brand_names"},
	fieldSegment:      {"segment", "industrySegment", "industry_segment", "category"},
	fieldGeography:    {"geography", "region", "country"},
	fieldPaymentModel: {"paymentModel", "payment_model", "billingModel", "billing_model"},
	fieldRevenue:      {"totalRevenue", "total_revenue", "annualRevenue", "annual_revenue", "revenue"},
	fieldProducts:     {"products", "apisUsed", "apis_used", "apis"},
	fieldUsage:        {"monthlyUsage", "monthly_usage", "usage"},
}

const (
	fieldID           = "id"
	fieldName         = "name"
	fieldAliases      = "aliases"
	fieldSegment      = "segment"
	fieldGeography    = "geography"
	fieldPaymentModel = "payment_model"
	fieldRevenue      = "revenue"
	fieldProducts     = "products"
	fieldUsage        = "usage"
)

// RawClient is one upstream client record as delivered by the snapshot
// collaborator. All fields are retained; unknown ones are preserved but ignored.
type RawClient struct {
	fields map[string]any
}

// NewRawClient wraps an already-decoded record.
func NewRawClient(fields map[string]any) RawClient {
	return RawClient{fields: fields}
}

// UnmarshalJSON decodes any JSON object, keeping numbers as json.Number.
func (r *RawClient) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return eris.Wrap(err, "index: decode raw client")
	}
	r.fields = fields
	return nil
}

// MarshalJSON encodes the retained fields.
func (r RawClient) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.fields)
}

// Fields returns the underlying field map.
func (r RawClient) Fields() map[string]any {
	return r.fields
}

// Set overwrites a field; used when merging overrides into a snapshot.
func (r *RawClient) Set(key string, value any) {
	if r.fields == nil {
		r.fields = make(map[string]any)
	}
	r.fields[key] = value
}

// Override replaces a logical field ("segment", "geography",
// "payment_model") so the new value wins over every other spelling.
func (r *RawClient) Override(logical string, value any) {
	spellings := fieldSpellings[logical]
	if len(spellings) == 0 {
		r.Set(logical, value)
		return
	}
	for _, key := range spellings[1:] {
		delete(r.fields, key)
	}
	r.Set(spellings[0], value)
}

// Text returns the trimmed value of a logical field, or "" when absent.
func (r RawClient) Text(logical string) string {
	return r.text(logical)
}

// Name returns the record's display name using the declared spelling priority.
func (r RawClient) Name() string {
	return r.text(fieldName)
}

// lookup returns the first present, non-empty value among the spellings of
// a logical field.
func (r RawClient) lookup(logical string) (any, bool) {
	for _, key := range fieldSpellings[logical] {
		v, ok := r.fields[key]
		if !ok || isEmpty(v) {
			continue
		}
		return v, true
	}
	return nil, false
}

func (r RawClient) text(logical string) string {
	v, ok := r.lookup(logical)
	if !ok {
		return ""
	}
	return strings.TrimSpace(asString(v))
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case nil:
		return ""
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return strings.Trim(string(b), `"`)
	}
}
