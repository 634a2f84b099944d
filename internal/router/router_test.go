package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/theme-section-installer/internal/config"
	"github.com/iliyamo/theme-section-installer/internal/handler"
	"github.com/iliyamo/theme-section-installer/internal/lifecycle"
	"github.com/iliyamo/theme-section-installer/internal/lifecycle/lifecycletest"
	"github.com/iliyamo/theme-section-installer/internal/logging"
	"github.com/iliyamo/theme-section-installer/internal/model"
	"github.com/iliyamo/theme-section-installer/internal/utils"
)

const (
	apiKey    = "app-key"
	apiSecret = "app-secret"
)

type resolver struct{ gateway *lifecycletest.Gateway }

func (r resolver) Connect(_ context.Context, domain string) (lifecycle.Shop, error) {
	return lifecycle.Shop{ID: 9, Domain: domain, Gateway: r.gateway, Pages: &lifecycletest.Pages{Domain: domain}}, nil
}

func newServer(t *testing.T) (*echo.Echo, *lifecycletest.Gateway) {
	t.Helper()
	catalog := lifecycletest.NewCatalog(model.Section{Slug: "hero", Name: "Hero", LiquidCode: "<hero/>", Version: "2"})
	mgr := lifecycle.NewManager(catalog, lifecycletest.NewLedger(catalog), lifecycle.WithLogger(logging.Discard()))
	gw := lifecycletest.NewGateway(3)

	e := echo.New()
	RegisterRoutes(e, nil)
	RegisterSections(e, handler.NewSectionHandler(mgr, 1, logging.Discard()), SectionDeps{
		Shopify: config.ShopifyConfig{APIKey: apiKey, APISecret: apiSecret},
		Shops:   resolver{gateway: gw},
	})
	return e, gw
}

func call(t *testing.T, e *echo.Echo, method, path, body string, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if authed {
		tok, err := utils.NewSessionToken(apiSecret, apiKey, "demo.myshopify.com", "42", time.Minute)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestPublicRoutes(t *testing.T) {
	e, _ := newServer(t)
	assert.Equal(t, http.StatusOK, call(t, e, http.MethodGet, "/healthz", "", false).Code)
	assert.Equal(t, http.StatusOK, call(t, e, http.MethodGet, "/metrics", "", false).Code)
}

func TestSectionRoutesRequireSession(t *testing.T) {
	e, _ := newServer(t)
	assert.Equal(t, http.StatusUnauthorized, call(t, e, http.MethodGet, "/v1/sections", "", false).Code)
	assert.Equal(t, http.StatusUnauthorized, call(t, e, http.MethodPost, "/v1/sections/install", `{"sectionSlug":"hero"}`, false).Code)
}

func TestInstallThroughRouter(t *testing.T) {
	e, gw := newServer(t)

	rec := call(t, e, http.MethodGet, "/v1/sections", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"slug":"hero"`)

	rec = call(t, e, http.MethodPost, "/v1/sections/install", `{"sectionSlug":"hero"}`, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body, ok := gw.Asset(3, "sections/hero.liquid")
	require.True(t, ok)
	assert.Equal(t, "<hero/>", body)

	rec = call(t, e, http.MethodGet, "/v1/installations", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"installedVersion":"2"`)
}
