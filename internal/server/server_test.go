package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/account-intel/internal/config"
	"github.com/sells-group/account-intel/internal/engine"
	"github.com/sells-group/account-intel/internal/index"
	"github.com/sells-group/account-intel/internal/intent"
	"github.com/sells-group/account-intel/internal/model"
	"github.com/sells-group/account-intel/internal/monitoring"
	"github.com/sells-group/account-intel/internal/resilience"
	"github.com/sells-group/account-intel/internal/snapshot"
)

type stubLoader struct {
	data *snapshot.Data
	err  error
}

func (s *stubLoader) Load(context.Context) (*snapshot.Data, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.data, nil
}

type mockParser struct{ mock.Mock }

func (m *mockParser) Parse(ctx context.Context, text string) (intent.Query, error) {
	args := m.Called(ctx, text)
	return args.Get(0).(intent.Query), args.Error(1)
}

func rawClient(id, name, segment string, products map[string]any) index.RawClient {
	return index.NewRawClient(map[string]any{
		"id": id, "name": name, "segment": segment, "geography": "India",
		"monthlyUsage": []any{map[string]any{"month": "2024-06", "products": products}},
	})
}

func testData() *snapshot.Data {
	return &snapshot.Data{
		Clients: []index.RawClient{
			rawClient("1", "Acme Pvt Ltd", "Fintech", map[string]any{"PAN Verification": 1000.0}),
			rawClient("2", "Bravo Finance", "Fintech", map[string]any{"PAN Verification": 200.0, "Aadhaar OKYC": 500.0}),
			rawClient("3", "Charlie Money", "Fintech", map[string]any{"PAN Verification": 200.0, "Aadhaar OKYC": 400.0}),
			rawClient("4", "Delta Loans", "Digital Lenders", map[string]any{"Bank Verification": 300.0}),
		},
		LoadedAt: time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
	}
}

func serverConfig() config.ServerConfig {
	return config.ServerConfig{CORSOrigins: []string{"*"}, CacheTTLSecs: 60}
}

func newTestServer(t *testing.T, loader snapshot.Loader, load bool, opts ...Option) (*Server, *engine.Engine) {
	t.Helper()
	eng, err := engine.New(loader, engine.WithRetry(resilience.Policy{Attempts: 1}))
	require.NoError(t, err)
	if load {
		_, err := eng.Refresh(context.Background())
		require.NoError(t, err)
	}
	return New(eng, serverConfig(), opts...), eng
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, &stubLoader{data: testData()}, true)
	rec := do(t, s.Handler(), http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp healthResponse
	decode(t, rec, &resp)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Snapshot.Loaded)
	assert.Equal(t, 4, resp.Snapshot.Clients)
}

func TestSnapshotUnavailable(t *testing.T) {
	s, _ := newTestServer(t, &stubLoader{data: testData()}, false)
	h := s.Handler()

	for _, target := range []string{
		"/v1/resolve?name=Acme",
		"/v1/adoption",
		"/v1/recommendations?q=Acme",
		"/v1/similar?name=Acme",
	} {
		t.Run(target, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, target, "")
			assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
			assert.JSONEq(t, `{"error":"snapshot unavailable"}`, rec.Body.String())
		})
	}

	rec := do(t, h, http.MethodPost, "/v1/prospect", `{"segment_or_description":"Fintech"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"error":"snapshot unavailable"}`, rec.Body.String())
}

func TestResolve(t *testing.T) {
	s, _ := newTestServer(t, &stubLoader{data: testData()}, true)
	h := s.Handler()

	rec := do(t, h, http.MethodGet, "/v1/resolve?name=acme", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp resolveResponse
	decode(t, rec, &resp)
	assert.True(t, resp.Found)
	require.NotNil(t, resp.Match)
	assert.Equal(t, "Acme Pvt Ltd", resp.Match.Client.Name)

	rec = do(t, h, http.MethodGet, "/v1/resolve?name=Bravo+Financ", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/v1/resolve", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResolve_NotFoundReturnsSuggestions(t *testing.T) {
	s, _ := newTestServer(t, &stubLoader{data: testData()}, true)

	rec := do(t, s.Handler(), http.MethodGet, "/v1/resolve?name=Totally+Different+Name", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp resolveResponse
	decode(t, rec, &resp)
	assert.False(t, resp.Found)
	assert.Nil(t, resp.Match)
}

func TestRecommendations(t *testing.T) {
	s, _ := newTestServer(t, &stubLoader{data: testData()}, true)
	h := s.Handler()

	rec := do(t, h, http.MethodGet, "/v1/recommendations?q=Acme", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp engine.Recommendations
	decode(t, rec, &resp)
	require.NotEmpty(t, resp.Candidates)
	assert.Equal(t, "Aadhaar OKYC", resp.Candidates[0].Product)
	// Two of three Fintech clients use OKYC: 0.667 sits below the high cutoff.
	assert.Equal(t, model.PriorityMedium, resp.Candidates[0].Priority)
	assert.InDelta(t, 2.0/3.0, resp.Candidates[0].AdoptionRate, 1e-9)

	rec = do(t, h, http.MethodGet, "/v1/recommendations?q=Acme&threshold=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/v1/recommendations", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResponseCache(t *testing.T) {
	m := monitoring.NewMetrics()
	s, _ := newTestServer(t, &stubLoader{data: testData()}, true, WithMetrics(m))
	h := s.Handler()

	first := do(t, h, http.MethodGet, "/v1/recommendations?q=Acme", "")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	second := do(t, h, http.MethodGet, "/v1/recommendations?q=Acme", "")
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())

	other := do(t, h, http.MethodGet, "/v1/recommendations?q=Bravo", "")
	assert.Equal(t, "MISS", other.Header().Get("X-Cache"))
}

func TestResponseCache_DroppedOnNewSnapshot(t *testing.T) {
	loader := &stubLoader{data: testData()}
	eng, err := engine.New(loader,
		engine.WithRetry(resilience.Policy{Attempts: 1}),
		engine.WithClock(sequenceClock()),
	)
	require.NoError(t, err)
	_, err = eng.Refresh(context.Background())
	require.NoError(t, err)
	h := New(eng, serverConfig()).Handler()

	assert.Equal(t, "MISS", do(t, h, http.MethodGet, "/v1/similar?name=Acme", "").Header().Get("X-Cache"))
	assert.Equal(t, "HIT", do(t, h, http.MethodGet, "/v1/similar?name=Acme", "").Header().Get("X-Cache"))

	_, err = eng.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "MISS", do(t, h, http.MethodGet, "/v1/similar?name=Acme", "").Header().Get("X-Cache"))
}

// sequenceClock returns a clock that advances one minute per call.
func sequenceClock() func() time.Time {
	t := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Minute)
		return t
	}
}

func TestSimilar(t *testing.T) {
	s, _ := newTestServer(t, &stubLoader{data: testData()}, true)
	h := s.Handler()

	rec := do(t, h, http.MethodGet, "/v1/similar?name=Bravo+Finance&limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp engine.Similar
	decode(t, rec, &resp)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "Charlie Money", resp.Results[0].ClientName)

	rec = do(t, h, http.MethodGet, "/v1/similar?name=Bravo&limit=x", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdoption(t *testing.T) {
	s, _ := newTestServer(t, &stubLoader{data: testData()}, true)
	h := s.Handler()

	rec := do(t, h, http.MethodGet, "/v1/adoption", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var all map[string]*model.SegmentAdoptionProfile
	decode(t, rec, &all)
	assert.Len(t, all, 2)

	rec = do(t, h, http.MethodGet, "/v1/adoption?segment=fintech", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var one model.SegmentAdoptionProfile
	decode(t, rec, &one)
	assert.Equal(t, "Fintech", one.Segment)
	assert.Equal(t, 3, one.ClientCount)

	rec = do(t, h, http.MethodGet, "/v1/adoption?segment=Gaming", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProspect(t *testing.T) {
	s, _ := newTestServer(t, &stubLoader{data: testData()}, true)
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/v1/prospect", `{"segment_or_description":"we do payday loans","geography":"India"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var p model.ProspectProfile
	decode(t, rec, &p)
	assert.Equal(t, "Digital Lenders", p.Segment)
	assert.True(t, strings.HasPrefix(p.MatchedBy, "keyword:"))
	assert.Equal(t, "India", p.ICP.Geography)

	rec = do(t, h, http.MethodPost, "/v1/prospect", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuery_Dispatch(t *testing.T) {
	parser := new(mockParser)
	parser.On("Parse", mock.Anything, "what should we sell to acme?").
		Return(intent.Query{Company: "Acme", Intent: intent.Recommend}, nil)
	parser.On("Parse", mock.Anything, "who is like bravo").
		Return(intent.Query{Company: "Bravo Finance", Intent: intent.Similar}, nil)
	parser.On("Parse", mock.Anything, "hello").
		Return(intent.Query{Intent: intent.Unknown}, nil)
	parser.On("Parse", mock.Anything, "boom").
		Return(intent.Query{}, errors.New("upstream down"))

	s, _ := newTestServer(t, &stubLoader{data: testData()}, true, WithParser(parser))
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/v1/query", `{"text":"what should we sell to acme?"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Parsed intent.Query           `json:"parsed"`
		Result engine.Recommendations `json:"result"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, intent.Recommend, resp.Parsed.Intent)
	require.NotEmpty(t, resp.Result.Candidates)

	rec = do(t, h, http.MethodPost, "/v1/query", `{"text":"who is like bravo"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPost, "/v1/query", `{"text":"hello"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, h, http.MethodPost, "/v1/query", `{"text":"boom"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = do(t, h, http.MethodPost, "/v1/query", `{"text":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	parser.AssertExpectations(t)
}

func TestQuery_NoParser(t *testing.T) {
	s, _ := newTestServer(t, &stubLoader{data: testData()}, true)
	rec := do(t, s.Handler(), http.MethodPost, "/v1/query", `{"text":"anything"}`)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestRefresh(t *testing.T) {
	loader := &stubLoader{data: testData()}
	s, _ := newTestServer(t, loader, false)
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/v1/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp refreshResponse
	decode(t, rec, &resp)
	assert.True(t, resp.Snapshot.Loaded)

	loader.err = errors.New("source down")
	rec = do(t, h, http.MethodPost, "/v1/refresh", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t, `{"error":"refresh failed","serving_previous":true}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/v1/resolve?name=Acme", "")
	assert.Equal(t, http.StatusOK, rec.Code, "previous snapshot keeps serving")
}

func TestRateLimit(t *testing.T) {
	eng, err := engine.New(&stubLoader{data: testData()}, engine.WithRetry(resilience.Policy{Attempts: 1}))
	require.NoError(t, err)
	_, err = eng.Refresh(context.Background())
	require.NoError(t, err)

	cfg := serverConfig()
	cfg.RateLimit = 0.001
	cfg.RateBurst = 1
	h := New(eng, cfg).Handler()

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/v1/resolve?name=Acme", "").Code)
	rec := do(t, h, http.MethodGet, "/v1/resolve?name=Acme", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health", "").Code, "health is not limited")
}

func TestMetricsEndpoint(t *testing.T) {
	m := monitoring.NewMetrics()
	s, _ := newTestServer(t, &stubLoader{data: testData()}, true, WithMetrics(m))
	h := s.Handler()

	do(t, h, http.MethodGet, "/v1/resolve?name=Acme", "")
	rec := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `account_intel_http_requests_total{route="/v1/resolve",status="200"} 1`)
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t, &stubLoader{data: testData()}, true)
	req := httptest.NewRequest(http.MethodOptions, "/v1/resolve?name=Acme", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
