package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/cbam/internal/auth/cookie"
	authrepo "github.com/smallbiznis/cbam/internal/auth/repository"
	authservice "github.com/smallbiznis/cbam/internal/auth/service"
	"github.com/smallbiznis/cbam/internal/config"
	draftservice "github.com/smallbiznis/cbam/internal/draft/service"
	"github.com/smallbiznis/cbam/internal/draft/store"
	emissiondomain "github.com/smallbiznis/cbam/internal/emission/domain"
	emissionservice "github.com/smallbiznis/cbam/internal/emission/service"
	"github.com/smallbiznis/cbam/internal/export"
	"github.com/smallbiznis/cbam/internal/migration"
	"github.com/smallbiznis/cbam/internal/observability"
	obsmetrics "github.com/smallbiznis/cbam/internal/observability/metrics"
	"github.com/smallbiznis/cbam/internal/ratelimit"
	reportdomain "github.com/smallbiznis/cbam/internal/report/domain"
	reportrepo "github.com/smallbiznis/cbam/internal/report/repository"
	reportservice "github.com/smallbiznis/cbam/internal/report/service"
	"github.com/smallbiznis/cbam/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testPassword = "correct-horse-battery"

type testEnv struct {
	srv    *httptest.Server
	client *http.Client
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, migration.Apply(conn, "sqlite"))

	log := zap.NewNop()
	reg := prometheus.NewRegistry()
	metrics, err := obsmetrics.New(reg)
	require.NoError(t, err)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	userRepo, sessionRepo := authrepo.New(conn)

	s := NewServer(Params{
		Cfg:      config.Config{},
		ObsCfg:   observability.Config{},
		Log:      log,
		Metrics:  metrics,
		Gatherer: reg,
		Cookies:  cookie.NewManager(config.Config{}),
		AuthSvc: authservice.New(authservice.Params{
			Log:         log,
			Repo:        userRepo,
			SessionRepo: sessionRepo,
			GenID:       node,
		}),
		EmissionSvc: emissionservice.New(emissionservice.Params{
			Log:     log,
			Factors: config.NewStaticFactorsHolder(emissiondomain.DefaultFactors()),
			Metrics: metrics,
		}),
		DraftSvc: draftservice.New(draftservice.Params{Log: log, Store: store.NewMemory()}),
		ReportSvc: reportservice.New(reportservice.Params{
			Log:     log,
			Repo:    reportrepo.New(conn),
			Metrics: metrics,
		}),
		Exporter:    export.New(export.Params{Log: log, Metrics: metrics}),
		AuthLimiter: ratelimit.NewAuthLimiter(ratelimit.NewMemoryBucket(), 0.01, 3),
		Locker:      ratelimit.NewMemoryLocker(),
	})

	srv := httptest.NewServer(NewEngine(s))
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testEnv{srv: srv, client: &http.Client{Jar: jar}}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func (e *testEnv) cookie(t *testing.T, name string) string {
	t.Helper()
	u, err := url.Parse(e.srv.URL)
	require.NoError(t, err)
	for _, c := range e.client.Jar.Cookies(u) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func (e *testEnv) signUp(t *testing.T, email string) {
	t.Helper()
	resp, _ := e.do(t, http.MethodPost, "/api/auth/signup", SignUpRequest{Email: email, Password: testPassword})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func decodeData[T any](t *testing.T, body []byte) T {
	t.Helper()
	var envelope struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &envelope))
	return envelope.Data
}

func decodeError(t *testing.T, body []byte) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp.Error
}

func steelInput() emissiondomain.CalculationInput {
	return emissiondomain.CalculationInput{
		CNCode:        "72031000",
		ProductionQty: 10,
		Electricity:   2000,
		Diesel:        1000,
		Precursors:    []emissiondomain.PrecursorInput{},
	}
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := env.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "cbam_http_requests_total")
}

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/api/auth/session", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"data":null}`, string(body))

	env.signUp(t, "alice@example.com")
	assert.NotEmpty(t, env.cookie(t, cookie.SessionCookieName))

	resp, body = env.do(t, http.MethodGet, "/api/auth/session", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view := decodeData[sessionView](t, body)
	assert.Equal(t, "alice@example.com", view.User.Email)
	assert.Equal(t, "alice", view.User.DisplayName)
	assert.Equal(t, "A", view.User.AvatarInitial)

	resp, _ = env.do(t, http.MethodPost, "/api/auth/logout", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = env.do(t, http.MethodPost, "/api/auth/logout", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	_, body = env.do(t, http.MethodGet, "/api/auth/session", nil)
	assert.JSONEq(t, `{"data":null}`, string(body))

	resp, body = env.do(t, http.MethodPost, "/api/auth/login", LoginRequest{Email: "alice@example.com", Password: testPassword})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alice@example.com", decodeData[sessionView](t, body).User.Email)
}

func TestAuthErrors(t *testing.T) {
	env := newTestEnv(t)
	env.signUp(t, "bob@example.com")

	resp, body := env.do(t, http.MethodPost, "/api/auth/login", LoginRequest{Email: "bob@example.com", Password: "wrong-password-123"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid email or password", decodeError(t, body).Message)

	resp, body = env.do(t, http.MethodPost, "/api/auth/signup", SignUpRequest{Email: "carol@example.com", Password: "short"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	payload := decodeError(t, body)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "password", payload.Errors[0].Field)

	resp, body = env.do(t, http.MethodPost, "/api/auth/signup", SignUpRequest{Email: "bob@example.com", Password: testPassword})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "conflict", decodeError(t, body).Type)
}

func TestLoginRateLimited(t *testing.T) {
	env := newTestEnv(t)

	bad := LoginRequest{Email: "nobody@example.com", Password: "wrong-password-123"}
	for i := 0; i < 3; i++ {
		resp, _ := env.do(t, http.MethodPost, "/api/auth/login", bad)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	resp, body := env.do(t, http.MethodPost, "/api/auth/login", bad)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
	assert.Equal(t, "rate_limited", decodeError(t, body).Type)
}

func TestLoginRateLimitIgnoresForwardedFor(t *testing.T) {
	env := newTestEnv(t)

	payload, err := json.Marshal(LoginRequest{Email: "nobody@example.com", Password: "wrong-password-123"})
	require.NoError(t, err)

	var codes []int
	for i := 0; i < 5; i++ {
		req, err := http.NewRequest(http.MethodPost, env.srv.URL+"/api/auth/login", bytes.NewReader(payload))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i+1))

		resp, err := env.client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		codes = append(codes, resp.StatusCode)
	}
	assert.Equal(t, []int{
		http.StatusUnauthorized,
		http.StatusUnauthorized,
		http.StatusUnauthorized,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
	}, codes)
}

func TestCalculationEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/calculations", emissiondomain.CalculationInput{
		CNCode:        "72031000",
		ProductionQty: 100,
		Electricity:   5000,
		Diesel:        2000,
		Coal:          1000,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view := decodeData[calculationView](t, body)
	assert.InDelta(t, 12.395, view.Result.Total, 1e-9)
	assert.Equal(t, "Iron & Steel", view.Category)
	assert.Equal(t, "12.39 tCO₂e", view.Formatted.Total)
	assert.Equal(t, "0.124", view.Formatted.Intensity)

	resp, body = env.do(t, http.MethodPost, "/api/calculations", emissiondomain.CalculationInput{CNCode: "7203", ProductionQty: 1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	payload := decodeError(t, body)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "cn_code", payload.Errors[0].Field)
	assert.Equal(t, emissiondomain.InvalidCodeMessage, payload.Errors[0].Message)

	resp, body = env.do(t, http.MethodPost, "/api/calculations", emissiondomain.CalculationInput{CNCode: "72031000"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "production_qty", decodeError(t, body).Errors[0].Field)
}

func TestFactorsAndValidation(t *testing.T) {
	env := newTestEnv(t)

	_, body := env.do(t, http.MethodGet, "/api/factors", nil)
	factors := decodeData[factorsView](t, body)
	assert.Equal(t, 0.715, factors.GridFactor)
	require.Len(t, factors.Precursors, 4)
	assert.Equal(t, emissiondomain.MaterialIronOre, factors.Precursors[0].Material)

	_, body = env.do(t, http.MethodPost, "/api/cn-codes/validate", ValidateCNCodeRequest{CNCode: "76011000"})
	class := decodeData[emissiondomain.Classification](t, body)
	assert.Equal(t, emissiondomain.StateCategorized, class.State)
	assert.Equal(t, "Aluminum", class.Category)
}

func TestDraftEndpoints(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/api/drafts", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, emissiondomain.StateEmpty, decodeData[draftView](t, body).Classification.State)
	device := env.cookie(t, cookie.DeviceCookieName)
	require.NotEmpty(t, device)

	draft := map[string]any{
		"cnCode":          "72031000",
		"productionQty":   "12.5",
		"precursorActive": true,
		"precursors":      []map[string]string{{"type": "Scrap", "qty": "3"}},
	}
	resp, _ = env.do(t, http.MethodPut, "/api/drafts", draft)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, body = env.do(t, http.MethodGet, "/api/drafts", nil)
	view := decodeData[draftView](t, body)
	assert.Equal(t, "12.5", view.Draft.ProductionQty)
	assert.True(t, view.Draft.PrecursorActive)
	require.Len(t, view.Draft.Precursors, 1)
	assert.Equal(t, "Scrap", view.Draft.Precursors[0].Type)
	assert.Equal(t, "Iron & Steel", view.Classification.Category)
	assert.Equal(t, device, env.cookie(t, cookie.DeviceCookieName))

	resp, _ = env.do(t, http.MethodDelete, "/api/drafts", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	_, body = env.do(t, http.MethodGet, "/api/drafts", nil)
	assert.Equal(t, "", decodeData[draftView](t, body).Draft.CNCode)
}

func TestExportRequiresSession(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/reports/export", steelInput())
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "unauthorized", decodeError(t, body).Type)

	resp, _ = env.do(t, http.MethodGet, "/api/reports", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestExportSavesReportAndDashboard(t *testing.T) {
	env := newTestEnv(t)
	env.signUp(t, "dana@example.com")

	_, body := env.do(t, http.MethodGet, "/api/dashboard", nil)
	empty := decodeData[dashboardView](t, body)
	assert.Equal(t, 0, empty.KPIs.Count)
	assert.Nil(t, empty.KPIs.AverageIntensity)
	assert.Equal(t, "--", empty.KPIs.AverageDisplay)
	assert.Empty(t, empty.Reports)

	resp, body := env.do(t, http.MethodPost, "/api/reports/export", steelInput())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF-")))
	reportID := resp.Header.Get("X-Report-Id")
	require.NotEmpty(t, reportID)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "cbam-report-72031000-")

	high := emissiondomain.CalculationInput{CNCode: "76011000", ProductionQty: 1, Coal: 1000}
	resp, _ = env.do(t, http.MethodPost, "/api/reports/export", high)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, body = env.do(t, http.MethodGet, "/api/reports", nil)
	reports := decodeData[[]reportView](t, body)
	require.Len(t, reports, 2)
	assert.Equal(t, "76011000", reports[0].CNCode)
	assert.Equal(t, "Aluminum", reports[0].ProductType)
	assert.Equal(t, reportdomain.ImpactHigh, reports[0].Impact)
	assert.Equal(t, reportID, reports[1].ID)
	assert.Equal(t, "Iron & Steel", reports[1].ProductType)
	assert.Equal(t, reportdomain.ImpactLow, reports[1].Impact)
	assert.InDelta(t, 4.59, reports[1].TotalEmissions, 1e-9)
	assert.Equal(t, 2000.0, reports[1].InputData.Electricity)

	_, body = env.do(t, http.MethodGet, "/api/dashboard", nil)
	dash := decodeData[dashboardView](t, body)
	assert.Equal(t, "dana@example.com", dash.Profile.Email)
	assert.Equal(t, 2, dash.KPIs.Count)
	require.NotNil(t, dash.KPIs.AverageIntensity)
	assert.InDelta(t, (0.459+2.5)/2, *dash.KPIs.AverageIntensity, 1e-9)
	assert.Equal(t, "1.480", dash.KPIs.AverageDisplay)
}

func TestReportsScopedToOwner(t *testing.T) {
	env := newTestEnv(t)
	env.signUp(t, "erin@example.com")
	resp, _ := env.do(t, http.MethodPost, "/api/reports/export", steelInput())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/auth/logout", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	env.signUp(t, "frank@example.com")

	_, body := env.do(t, http.MethodGet, "/api/reports", nil)
	assert.Empty(t, decodeData[[]reportView](t, body))
}

func TestExportXMLWithoutSession(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/exports/xml", steelInput())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/xml", resp.Header.Get("Content-Type"))
	assert.True(t, strings.HasPrefix(string(body), "<?xml"))
	assert.Contains(t, string(body), "<CNCode>72031000</CNCode>")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "cbam-report-72031000.xml")
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	env.signUp(t, "gina@example.com")

	company := "Gina Metals"
	resp, body := env.do(t, http.MethodPatch, "/api/auth/profile", UpdateProfileRequest{CompanyName: &company})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Gina Metals", decodeData[map[string]any](t, body)["company_name"])
}
