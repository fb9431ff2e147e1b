package basket_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/boxcart/internal/basket"
	"github.com/noah-isme/boxcart/internal/catalog"
	"github.com/noah-isme/boxcart/internal/pricing"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

type basketBody struct {
	Basket  basket.Summary `json:"basket"`
	Badge   string         `json:"badge"`
	Removed *bool          `json:"removed"`
	Bundle  *struct {
		ID           string `json:"id"`
		Size         string `json:"size"`
		Subscription *struct {
			Interval     string `json:"interval"`
			NextDelivery string `json:"nextDelivery"`
		} `json:"subscription"`
	} `json:"bundle"`
}

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	h := &basket.Handler{
		Svc:      newService(basket.NewMemoryKV()),
		Engine:   pricing.Engine{Catalog: catalog.Default()},
		Validate: validator.New(),
	}
	r := chi.NewRouter()
	r.Use(basket.SessionMiddleware(basket.DefaultSessionHeader))
	r.Post("/api/v1/bundles/quote", h.Quote)
	r.Get("/api/v1/basket", h.Get)
	r.Post("/api/v1/basket/items", h.AddItem)
	r.Post("/api/v1/basket/bundles", h.CommitBundle)
	r.Delete("/api/v1/basket/entries/{index}", h.RemoveEntry)
	r.Delete("/api/v1/basket", h.Clear)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(basket.DefaultSessionHeader, "tab-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func decodeBasket(t *testing.T, env envelope) basketBody {
	t.Helper()
	var body basketBody
	require.NoError(t, json.Unmarshal(env.Data, &body))
	return body
}

func TestBasketHandlersFlow(t *testing.T) {
	router := newRouter(t)

	rec, env := do(t, router, http.MethodGet, "/api/v1/basket", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBasket(t, env)
	require.Zero(t, body.Basket.TotalItemCount)
	require.Equal(t, "", body.Badge)

	rec, env = do(t, router, http.MethodPost, "/api/v1/basket/items", `{"sku":"apple"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "1", decodeBasket(t, env).Badge)

	rec, env = do(t, router, http.MethodPost, "/api/v1/basket/bundles",
		`{"size":"M","items":[{"sku":"apple","qty":2},{"sku":"banana","qty":2}],"allowSubs":true,"subscribe":true}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	body = decodeBasket(t, env)
	require.Equal(t, "5", body.Badge)
	require.NotNil(t, body.Bundle)
	require.Equal(t, "box_1774908900000", body.Bundle.ID)
	require.Equal(t, "weekly", body.Bundle.Subscription.Interval)
	require.Equal(t, "2026-04-06", body.Bundle.Subscription.NextDelivery)
	require.Equal(t, "3.42", body.Basket.Lines[1].Price.StringFixed(2))

	rec, env = do(t, router, http.MethodDelete, "/api/v1/basket/entries/7", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBasket(t, env)
	require.False(t, *body.Removed)
	require.Equal(t, 5, body.Basket.TotalItemCount)

	rec, env = do(t, router, http.MethodDelete, "/api/v1/basket/entries/0", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBasket(t, env)
	require.True(t, *body.Removed)
	require.Equal(t, "4", body.Badge)

	rec, env = do(t, router, http.MethodDelete, "/api/v1/basket", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "", decodeBasket(t, env).Badge)
}

func TestCommitBundleErrors(t *testing.T) {
	router := newRouter(t)

	rec, env := do(t, router, http.MethodPost, "/api/v1/basket/bundles",
		`{"size":"S","items":[{"sku":"apple","qty":2},{"sku":"banana","qty":3}]}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, "COUNT_OUT_OF_RANGE", env.Error.Code)
	require.Contains(t, env.Error.Message, "between 3 and 3")
	require.JSONEq(t, `{"min":3,"max":3,"actual":5}`, string(env.Error.Details))

	rec, env = do(t, router, http.MethodPost, "/api/v1/basket/bundles",
		`{"size":"XXL","items":[{"sku":"apple","qty":3}]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "UNKNOWN_TIER", env.Error.Code)

	rec, env = do(t, router, http.MethodPost, "/api/v1/basket/bundles", `{"size":"S","items":[{"sku":"","qty":3}]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "BAD_REQUEST", env.Error.Code)

	rec, env = do(t, router, http.MethodPost, "/api/v1/basket/bundles", `{"size":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "BAD_REQUEST", env.Error.Code)

	_, env = do(t, router, http.MethodGet, "/api/v1/basket", "")
	require.Zero(t, decodeBasket(t, env).Basket.TotalItemCount)
}

func TestRemoveEntryRejectsNonNumericIndex(t *testing.T) {
	router := newRouter(t)
	rec, env := do(t, router, http.MethodDelete, "/api/v1/basket/entries/first", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "BAD_REQUEST", env.Error.Code)
}

func TestQuoteHandler(t *testing.T) {
	router := newRouter(t)

	type quoteBody struct {
		ItemCount int  `json:"itemCount"`
		Valid     bool `json:"valid"`
		Pricing   struct {
			Subtotal string `json:"subtotal"`
			Total    string `json:"total"`
		} `json:"pricing"`
		Error *struct {
			Code string `json:"code"`
		} `json:"error"`
	}

	rec, env := do(t, router, http.MethodPost, "/api/v1/bundles/quote",
		`{"size":"M","items":[{"sku":"apple","qty":2},{"sku":"lemon","qty":2}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var q quoteBody
	require.NoError(t, json.Unmarshal(env.Data, &q))
	require.True(t, q.Valid)
	require.Equal(t, 4, q.ItemCount)
	require.Equal(t, "4.4", q.Pricing.Subtotal)
	require.Equal(t, "4.18", q.Pricing.Total)

	rec, env = do(t, router, http.MethodPost, "/api/v1/bundles/quote",
		`{"size":"L","items":[{"sku":"apple","qty":2}],"subscribe":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	q = quoteBody{}
	require.NoError(t, json.Unmarshal(env.Data, &q))
	require.False(t, q.Valid)
	require.Equal(t, "COUNT_OUT_OF_RANGE", q.Error.Code)
	require.Equal(t, "1.94", q.Pricing.Total)

	rec, env = do(t, router, http.MethodPost, "/api/v1/bundles/quote", `{"items":[]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "BAD_REQUEST", env.Error.Code)
}

func TestHandlerWithoutService(t *testing.T) {
	rec := httptest.NewRecorder()
	(&basket.Handler{}).Get(rec, httptest.NewRequest(http.MethodGet, "/api/v1/basket", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
