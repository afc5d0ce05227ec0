package implementations

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/deliverykit/calsync/internal/api/subsproviders/subsprovider"
	"github.com/deliverykit/calsync/internal/shared/logutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Auth   string
	Body   map[string]interface{}
}

func newTestSeal(t *testing.T, h func(w http.ResponseWriter, r *http.Request)) (*Seal, *[]recordedRequest) {
	var reqs []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rr := recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Auth:   r.Header.Get("Authorization"),
		}
		body, _ := ioutil.ReadAll(r.Body)
		if len(body) != 0 {
			require.NoError(t, json.Unmarshal(body, &rr.Body))
		}
		reqs = append(reqs, rr)
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	s, err := NewSeal(logutil.NewStderrLog("test"), "secret", srv.URL, SealOptions{
		Scheme:         "http",
		AppPath:        "/apps/seal/",
		RequestTimeout: time.Second,
	})
	require.NoError(t, err)
	return s, &reqs
}

func TestNewSealBuildsTenantURL(t *testing.T) {
	s, err := NewSeal(logutil.NewStderrLog("test"), "key", "shop.example.com", DefaultSealOptions())
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example.com/apps/seal/api/v1", s.APIRoot())

	_, err = NewSeal(logutil.NewStderrLog("test"), "", "shop.example.com", DefaultSealOptions())
	assert.Error(t, err)

	_, err = NewSeal(logutil.NewStderrLog("test"), "key", " ", DefaultSealOptions())
	assert.Error(t, err)
}

func TestSealCreateSubscription(t *testing.T) {
	s, reqs := newTestSeal(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"seal_sub_123","status":"active"}`))
	})

	price := decimal.RequireFromString("12.50")
	sub, err := s.CreateSubscription(context.Background(), subsprovider.CreatePayload{
		CustomerID:      "cust_1",
		BillingInterval: subsprovider.BillingInterval{Unit: "month", Count: 2},
		Products:        []subsprovider.ProductLine{{VariantID: "v1", Quantity: 2, Price: &price}},
		NextBillingDate: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "seal_sub_123", sub.ID)

	require.Len(t, *reqs, 1)
	req := (*reqs)[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/apps/seal/api/v1/subscriptions", req.Path)
	assert.Equal(t, "Bearer secret", req.Auth)
	assert.Equal(t, "cust_1", req.Body["customer_id"])
	assert.Equal(t, map[string]interface{}{"interval": "month", "interval_count": float64(2)}, req.Body["billing_interval"])

	products := req.Body["products"].([]interface{})
	require.Len(t, products, 1)
	assert.Equal(t, "v1", products[0].(map[string]interface{})["variant_id"])
	assert.Equal(t, "12.5", products[0].(map[string]interface{})["price"])
}

func TestSealUpdateSendsOnlyPresentFields(t *testing.T) {
	s, reqs := newTestSeal(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	date := "2024-06-01"
	sub, err := s.UpdateSubscription(context.Background(), "seal_sub_123", subsprovider.UpdatePayload{
		NextDeliveryDate: &date,
	})
	require.NoError(t, err)
	assert.Equal(t, "seal_sub_123", sub.ID)

	require.Len(t, *reqs, 1)
	assert.Equal(t, http.MethodPatch, (*reqs)[0].Method)
	assert.Equal(t, "/apps/seal/api/v1/subscriptions/seal_sub_123", (*reqs)[0].Path)
	assert.Equal(t, map[string]interface{}{"next_delivery_date": "2024-06-01"}, (*reqs)[0].Body)
}

func TestSealUpdateAcceptsNoContent(t *testing.T) {
	s, reqs := newTestSeal(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	skip := true
	sub, err := s.UpdateSubscription(context.Background(), "seal_sub_123", subsprovider.UpdatePayload{
		SkipNextDelivery: &skip,
	})
	require.NoError(t, err)
	assert.Equal(t, "seal_sub_123", sub.ID)
	assert.Len(t, *reqs, 1)
}

func TestSealNon2xxIsCallError(t *testing.T) {
	s, _ := newTestSeal(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"no such subscription"}`))
	})

	_, err := s.GetSubscription(context.Background(), "missing")
	require.Error(t, err)

	callErr, ok := err.(*subsprovider.CallError)
	require.True(t, ok, "got %T", err)
	assert.Equal(t, http.MethodGet, callErr.Method)
	assert.Equal(t, "/subscriptions/missing", callErr.Endpoint)
	assert.True(t, callErr.IsNotFound())
	assert.True(t, strings.Contains(err.Error(), "no such subscription"))
}

func TestSealCreateWithoutIDFails(t *testing.T) {
	s, _ := newTestSeal(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"active"}`))
	})

	_, err := s.CreateSubscription(context.Background(), subsprovider.CreatePayload{CustomerID: "c"})
	require.Error(t, err)
	assert.Equal(t, subsprovider.ErrEmptyID, err.(*subsprovider.CallError).Err)
}
