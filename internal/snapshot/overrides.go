package snapshot

import (
	"github.com/sells-group/account-intel/internal/index"
	"github.com/sells-group/account-intel/internal/model"
	"github.com/sells-group/account-intel/internal/resolve"
)

// ApplyOverrides writes each override onto every record whose normalized
// name matches the override's client name. Overrides are applied in slice
// order, so a later override of the same field wins. It returns how many
// field writes were made.
func ApplyOverrides(clients []index.RawClient, overrides []model.Override) int {
	if len(overrides) == 0 || len(clients) == 0 {
		return 0
	}

	byName := make(map[string][]int, len(clients))
	for i := range clients {
		key := resolve.NormalizeName(clients[i].Name())
		if key != "" {
			byName[key] = append(byName[key], i)
		}
	}

	applied := 0
	for _, o := range overrides {
		if !model.ValidOverrideField(o.Field) {
			continue
		}
		for _, i := range byName[resolve.NormalizeName(o.ClientName)] {
			clients[i].Override(o.Field, o.Value)
			applied++
		}
	}
	return applied
}
