package resolve

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/account-intel/internal/index"
)

type testClient struct {
	id      string
	name    string
	revenue float64
	aliases string
}

func buildIndex(t *testing.T, clients ...testClient) *index.Index {
	t.Helper()
	raws := make([]index.RawClient, 0, len(clients))
	for _, c := range clients {
		fields := map[string]any{
			"id":           c.id,
			"name":         c.name,
			"products":     "Core API",
			"totalRevenue": c.revenue,
		}
		if c.aliases != "" {
			fields["aliases"] = c.aliases
		}
		raws = append(raws, index.NewRawClient(fields))
	}
	idx := index.Build(raws)
	require.Equal(t, len(clients), idx.Len())
	return idx
}

func TestResolve_ExactNormalizedMatch(t *testing.T) {
	idx := buildIndex(t,
		testClient{id: "1", name: "Swiggy Pvt. Ltd.", revenue: 100},
		testClient{id: "2", name: "Zomato Limited", revenue: 100},
	)
	r := New()
	table := r.NewTable(idx)

	for _, q := range []string{"swiggy", "SWIGGY", "Swiggy Pvt Ltd", "Swiggy, Inc.", " swiggy private limited "} {
		t.Run(q, func(t *testing.T) {
			m, ok := r.Resolve(q, table)
			require.True(t, ok)
			assert.Equal(t, "1", m.Client.ID)
			assert.Equal(t, 100.0, m.Confidence)
			assert.True(t, m.Exact)
		})
	}
}

func TestResolve_ExactMatchOnAlias(t *testing.T) {
	idx := buildIndex(t,
		testClient{id: "1", name: "Swiggy", revenue: 100, aliases: "Bundl Technologies Private Limited"},
	)
	r := New()
	m, ok := r.Resolve("Bundl Technologies", r.NewTable(idx))
	require.True(t, ok)
	assert.Equal(t, "1", m.Client.ID)
	assert.Equal(t, "Bundl Technologies Private Limited", m.MatchedOn)
}

func TestResolve_ExactTiePrefersLargerAccount(t *testing.T) {
	idx := buildIndex(t,
		testClient{id: "1", name: "Acme Ltd", revenue: 100},
		testClient{id: "2", name: "ACME Inc", revenue: 500},
	)
	r := New()
	m, ok := r.Resolve("acme", r.NewTable(idx))
	require.True(t, ok)
	assert.Equal(t, "2", m.Client.ID)
}

func TestResolve_SuffixStrippedQueryMatchesCanonical(t *testing.T) {
	idx := buildIndex(t,
		testClient{id: "1", name: "Acme Pvt Ltd", revenue: 1000},
		testClient{id: "2", name: "Acme Technologies", revenue: 5000},
	)
	r := New()
	m, ok := r.Resolve("acme", r.NewTable(idx))
	require.True(t, ok)
	assert.Equal(t, "1", m.Client.ID)
	assert.Equal(t, 100.0, m.Confidence)
}

func TestResolve_FuzzyPicksCloserString(t *testing.T) {
	idx := buildIndex(t,
		testClient{id: "1", name: "Acme Pvt Ltd", revenue: 1000},
		testClient{id: "2", name: "Acme Technologies", revenue: 5000},
	)
	r := New()
	m, ok := r.Resolve("Acme Technology", r.NewTable(idx))
	require.True(t, ok)
	assert.Equal(t, "2", m.Client.ID)
	assert.False(t, m.Exact)
	assert.Less(t, m.Confidence, 100.0)
	assert.Greater(t, m.Confidence, (1-AcceptanceThreshold)*100)
}

func TestResolve_NoPlausibleMatch(t *testing.T) {
	idx := buildIndex(t,
		testClient{id: "1", name: "Acme Pvt Ltd", revenue: 1000},
		testClient{id: "2", name: "Acme Technologies", revenue: 5000},
	)
	r := New()
	table := r.NewTable(idx)

	for _, q := range []string{"zzqxv", "Totally Unrelated Holdings", "", "!!!"} {
		_, ok := r.Resolve(q, table)
		assert.False(t, ok, q)
	}
}

func TestResolve_EqualDistanceBrokenByRevenue(t *testing.T) {
	idx := buildIndex(t,
		testClient{id: "1", name: "Alpha One", revenue: 100},
		testClient{id: "2", name: "Alpha Two", revenue: 900},
	)
	r := New()
	m, ok := r.Resolve("Alpha XXX", r.NewTable(idx))
	require.True(t, ok)
	assert.Equal(t, "2", m.Client.ID)
}

func TestResolve_EqualDistanceAndRevenueIsAmbiguous(t *testing.T) {
	idx := buildIndex(t,
		testClient{id: "1", name: "Alpha One", revenue: 500},
		testClient{id: "2", name: "Alpha Two", revenue: 500},
	)
	r := New()
	_, ok := r.Resolve("Alpha XXX", r.NewTable(idx))
	assert.False(t, ok)
}

func TestResolve_TokenSetStrategy(t *testing.T) {
	idx := buildIndex(t,
		testClient{id: "1", name: "Acme Payments Solutions", revenue: 100},
		testClient{id: "2", name: "Beta Lending", revenue: 100},
	)
	r := New(WithMatcher(TokenSet{}), WithThreshold(0.5))
	m, ok := r.Resolve("Solutions Acme Payments Group", r.NewTable(idx))
	require.True(t, ok)
	assert.Equal(t, "1", m.Client.ID)
	assert.InDelta(t, 75.0, m.Confidence, 0.01)
}

func TestResolve_NilTable(t *testing.T) {
	_, ok := New().Resolve("acme", nil)
	assert.False(t, ok)
}

func TestSuggest(t *testing.T) {
	idx := buildIndex(t,
		testClient{id: "1", name: "Razorpay", revenue: 100},
		testClient{id: "2", name: "Razorpey", revenue: 50},
		testClient{id: "3", name: "Cashfree", revenue: 80},
	)
	r := New()
	table := r.NewTable(idx)

	got := r.Suggest("Razorpax", table, 5)
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].Client.ID)
	assert.Equal(t, "2", got[1].Client.ID)

	assert.Len(t, r.Suggest("Razorpax", table, 1), 1)
	assert.Nil(t, r.Suggest("Razorpax", table, 0))
}

func TestResolve_ConcurrentUse(t *testing.T) {
	var clients []testClient
	for i := 0; i < 50; i++ {
		clients = append(clients, testClient{id: fmt.Sprint(i), name: fmt.Sprintf("Company %d Labs", i), revenue: float64(i)})
	}
	idx := buildIndex(t, clients...)
	r := New()
	table := r.NewTable(idx)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m, ok := r.Resolve(fmt.Sprintf("company %d labs", i), table)
			assert.True(t, ok)
			assert.Equal(t, fmt.Sprint(i), m.Client.ID)
		}(i)
	}
	wg.Wait()
}
