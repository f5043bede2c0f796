package macro_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/iitslamaa/travel-scorer/internal/macro"
	"github.com/iitslamaa/travel-scorer/internal/ttlcache"
	"github.com/iitslamaa/travel-scorer/internal/upstream"
)

var testCurrencies = map[string]string{
	"FR": "EUR",
	"DE": "EUR",
	"JP": "JPY",
	"US": "USD",
	"XX": "XXX",
}

func newFX(url string) *macro.FXProvider {
	cache := ttlcache.New[map[string]float64](12*time.Hour, ttlcache.WithNegativeTTL(5*time.Minute))
	return macro.NewFXProviderWithURL(url, upstream.NewHTTPClient(time.Second), cache, testCurrencies, nil, discardLogger())
}

func jsonServer(t *testing.T, calls *atomic.Int32, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			calls.Add(1)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFXProvider_PayloadShapes(t *testing.T) {
	cases := map[string]string{
		"rates":            `{"base":"USD","rates":{"EUR":0.92,"JPY":151.2}}`,
		"quotes":           `{"success":true,"source":"USD","quotes":{"USDEUR":0.92,"USDJPY":151.2}}`,
		"conversion_rates": `{"result":"success","base_code":"USD","conversion_rates":{"EUR":0.92,"JPY":151.2}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			srv := jsonServer(t, nil, http.StatusOK, body)
			got := newFX(srv.URL).Lookup(context.Background(), []string{"FR", "DE", "JP", "US", "XX", "ZZ"})

			assert.Equal(t, map[string]float64{
				"FR": 0.92,
				"DE": 0.92,
				"JP": 151.2,
				"US": 1,
			}, got)
		})
	}
}

func TestFXProvider_SingleFetchForAllCodes(t *testing.T) {
	var calls atomic.Int32
	srv := jsonServer(t, &calls, http.StatusOK, `{"rates":{"EUR":0.92}}`)
	p := newFX(srv.URL)

	p.Lookup(context.Background(), []string{"FR"})
	p.Lookup(context.Background(), []string{"DE", "JP"})
	assert.Equal(t, int32(1), calls.Load())
}

func TestFXProvider_FailureDegradesAndIsCached(t *testing.T) {
	var calls atomic.Int32
	srv := jsonServer(t, &calls, http.StatusOK, `{"success":false,"error":{"code":101}}`)
	p := newFX(srv.URL)

	assert.Empty(t, p.Lookup(context.Background(), []string{"FR"}))
	assert.Empty(t, p.Lookup(context.Background(), []string{"FR"}))
	assert.Equal(t, int32(1), calls.Load())
}

func TestFXProvider_HTTPError(t *testing.T) {
	srv := jsonServer(t, nil, http.StatusInternalServerError, `oops`)
	assert.Empty(t, newFX(srv.URL).Lookup(context.Background(), []string{"JP"}))
}
