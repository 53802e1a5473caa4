package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricewatch-utils/internal/config"
	"pricewatch-utils/internal/insights"
	"pricewatch-utils/internal/notify"
	"pricewatch-utils/internal/tracker"
	"pricewatch-utils/pkg/models"
)

// trackerService builds a full service over the worker pool and an in-memory
// store. SMTP stays unconfigured, so notifications are logged no-ops.
func trackerService(t *testing.T, cfg *config.Config) *tracker.Service {
	t.Helper()

	pm := startedPool(t, cfg)
	return tracker.NewService(cfg, tracker.NewMemoryStore(), pm, insights.NewGenerator(nil), notify.NewEmailNotifier(cfg))
}

func trackBody(url string) string {
	return fmt.Sprintf(`{"url": %q, "email": "user@example.com"}`, url)
}

func TestTrackProductHandlerSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, productPageHTML)
	}))
	defer srv.Close()

	cfg := handlerConfig()
	svc := trackerService(t, cfg)

	rec, c := postJSON("/api/v1/products", trackBody(srv.URL))

	require.NoError(t, TrackProductHandler(cfg, svc)(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.TrackResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Product)
	assert.Equal(t, "Sony WH-1000XM5", resp.Product.Name)
	assert.Equal(t, []string{"user@example.com"}, resp.Product.Watchers)
	require.NotNil(t, resp.Baseline)
	assert.Equal(t, 348.00, resp.Baseline.Price)
}

func TestTrackProductHandlerRejectsInvalidEmail(t *testing.T) {
	cfg := handlerConfig()
	svc := trackerService(t, cfg)

	rec, c := postJSON("/api/v1/products", `{"url": "https://shop.example.com/item/1", "email": "not-an-email"}`)

	require.NoError(t, TrackProductHandler(cfg, svc)(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "validation_failed", resp.Error)
}

func TestTrackProductHandlerRejectsPageWithoutName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>nothing to see</p></body></html>`)
	}))
	defer srv.Close()

	cfg := handlerConfig()
	svc := trackerService(t, cfg)

	rec, c := postJSON("/api/v1/products", trackBody(srv.URL))

	require.NoError(t, TrackProductHandler(cfg, svc)(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_request", resp.Error)
	assert.Contains(t, resp.Message, "no product name")
}

func TestListProductsHandler(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, productPageHTML)
	}))
	defer srv.Close()

	cfg := handlerConfig()
	svc := trackerService(t, cfg)

	rec, c := postJSON("/api/v1/products", trackBody(srv.URL))
	require.NoError(t, TrackProductHandler(cfg, svc)(c))
	require.Equal(t, http.StatusOK, rec.Code)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	listRec := httptest.NewRecorder()
	listCtx := e.NewContext(req, listRec)

	require.NoError(t, ListProductsHandler(svc)(listCtx))
	require.Equal(t, http.StatusOK, listRec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(listRec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, float64(1), resp["count"])
}

func TestProductHistoryHandler(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, productPageHTML)
	}))
	defer srv.Close()

	cfg := handlerConfig()
	svc := trackerService(t, cfg)

	rec, c := postJSON("/api/v1/products", trackBody(srv.URL))
	require.NoError(t, TrackProductHandler(cfg, svc)(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var tracked models.TrackResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tracked))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	histRec := httptest.NewRecorder()
	histCtx := e.NewContext(req, histRec)
	histCtx.SetPath("/api/v1/products/:id/history")
	histCtx.SetParamNames("id")
	histCtx.SetParamValues(tracked.Product.ID)

	require.NoError(t, ProductHistoryHandler(svc)(histCtx))
	require.Equal(t, http.StatusOK, histRec.Code)

	var resp models.HistoryResponse
	require.NoError(t, json.Unmarshal(histRec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.History, 1)
	assert.Equal(t, 348.00, resp.History[0].Price)
}

func TestProductHistoryHandlerNotFound(t *testing.T) {
	cfg := handlerConfig()
	svc := trackerService(t, cfg)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/api/v1/products/:id/history")
	c.SetParamNames("id")
	c.SetParamValues("missing-product")

	require.NoError(t, ProductHistoryHandler(svc)(c))
	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "product_not_found", resp.Error)
}

func TestCheckProductsHandler(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, productPageHTML)
	}))
	defer srv.Close()

	cfg := handlerConfig()
	svc := trackerService(t, cfg)

	rec, c := postJSON("/api/v1/products", trackBody(srv.URL))
	require.NoError(t, TrackProductHandler(cfg, svc)(c))
	require.Equal(t, http.StatusOK, rec.Code)

	checkRec, checkCtx := postJSON("/api/v1/products/check", "")

	require.NoError(t, CheckProductsHandler(svc)(checkCtx))
	require.Equal(t, http.StatusOK, checkRec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(checkRec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, float64(1), resp["checked"])
	assert.Equal(t, float64(0), resp["changed"])
	assert.Equal(t, float64(0), resp["failed"])
}
