package fred

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/macropulse/internal/contracts"
	"github.com/wonny/macropulse/pkg/httputil"
	"github.com/wonny/macropulse/pkg/logger"
)

func newServer(t *testing.T, byUnits map[string][]Observation) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/series/observations", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		assert.Equal(t, "desc", r.URL.Query().Get("sort_order"))

		obs, ok := byUnits[r.URL.Query().Get("units")]
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(ObservationsResponse{Units: r.URL.Query().Get("units"), Observations: obs})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newClient(baseURL, apiKey string) *Client {
	return NewClient(httputil.New(logger.Nop(), 5*time.Second).DisableRetry(), apiKey, baseURL, logger.Nop())
}

func walcl() contracts.IndicatorDefinition {
	return contracts.IndicatorDefinition{
		Key: "fed_balance_sheet", Source: "fred:WALCL", Category: contracts.CategoryLiquidity,
		Frequency: contracts.FrequencyWeekly, Scale: 0.000001, ChangeUnits: contracts.ChangePercent,
	}
}

func TestFetch_LevelAndChange(t *testing.T) {
	srv := newServer(t, map[string][]Observation{
		"lin": {{Date: "2024-03-13", Value: "7500000"}, {Date: "2024-03-06", Value: "7545000"}},
		"pch": {{Date: "2024-03-13", Value: "-0.6"}, {Date: "2024-03-06", Value: "-0.1"}},
	})

	obs, err := newClient(srv.URL, "test-key").Fetch(context.Background(), walcl())
	require.NoError(t, err)

	assert.Equal(t, 7500000.0, obs.Value, "scale is applied at the fetch boundary")
	require.NotNil(t, obs.Change)
	assert.Equal(t, -0.6, *obs.Change)
	assert.Equal(t, time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC), obs.ObservedAt)
}

func TestFetch_SkipsMissingMarker(t *testing.T) {
	srv := newServer(t, map[string][]Observation{
		"lin": {{Date: "2024-03-15", Value: "."}, {Date: "2024-03-14", Value: "5.31"}},
		"pch": {{Date: "2024-03-15", Value: "."}, {Date: "2024-03-14", Value: "0.2"}},
	})

	obs, err := newClient(srv.URL, "test-key").Fetch(context.Background(), walcl())
	require.NoError(t, err)
	assert.Equal(t, 5.31, obs.Value)
	assert.Equal(t, 0.2, *obs.Change)
}

func TestFetch_AllMissingIsNoData(t *testing.T) {
	srv := newServer(t, map[string][]Observation{
		"lin": {{Date: "2024-03-15", Value: "."}},
	})

	_, err := newClient(srv.URL, "test-key").Fetch(context.Background(), walcl())
	assert.ErrorIs(t, err, contracts.ErrNoData)
}

func TestFetch_ChangeFailureKeepsLevel(t *testing.T) {
	srv := newServer(t, map[string][]Observation{
		"lin": {{Date: "2024-03-13", Value: "7500000"}},
	})

	obs, err := newClient(srv.URL, "test-key").Fetch(context.Background(), walcl())
	require.NoError(t, err)
	assert.Equal(t, 7500000.0, obs.Value)
	assert.Nil(t, obs.Change)
}

func TestFetch_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newClient(srv.URL, "test-key").Fetch(context.Background(), walcl())
	require.Error(t, err)

	var statusErr *httputil.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.NotContains(t, err.Error(), "test-key")
}

func TestFetch_RequiresAPIKey(t *testing.T) {
	_, err := newClient("http://127.0.0.1:0", "").Fetch(context.Background(), walcl())
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"4.25", 4.25, true},
		{" -0.6 ", -0.6, true},
		{".", 0, false},
		{"", 0, false},
		{"n/a", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseValue(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
