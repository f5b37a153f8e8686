package fred

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/macropulse/internal/contracts"
	"github.com/wonny/macropulse/pkg/httputil"
	"github.com/wonny/macropulse/pkg/logger"
)

// ProviderName is the source prefix routed to this client (fred:SERIES)
const ProviderName = "fred"

const (
	dateLayout = "2006-01-02"
	missing    = "." // FRED의 결측치 표기
	lookback   = 10  // 최신 유효값 탐색 범위
)

// ErrNoAPIKey is returned when FRED_API_KEY is not configured
var ErrNoAPIKey = errors.New("fred api key not configured")

// Client handles communication with the St. Louis Fed FRED API
// ⭐ SSOT: FRED API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	apiKey     string
	baseURL    string
}

// NewClient creates a new FRED client
func NewClient(httpClient *httputil.Client, apiKey, baseURL string, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.WithComponent("fred"),
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// ObservationsResponse represents the series/observations payload
type ObservationsResponse struct {
	Units        string        `json:"units"`
	Count        int           `json:"count"`
	Observations []Observation `json:"observations"`
}

// Observation is one dated FRED value. Value is a string; "." means missing.
type Observation struct {
	Date  string `json:"date"`
	Value string `json:"value"`
}

// Name implements contracts.Provider
func (c *Client) Name() string {
	return ProviderName
}

// Fetch returns the latest level (units=lin) and the change in the catalog's
// change units for the same date
func (c *Client) Fetch(ctx context.Context, def contracts.IndicatorDefinition) (contracts.Observation, error) {
	if c.apiKey == "" {
		return contracts.Observation{}, ErrNoAPIKey
	}

	series := def.Series()
	level, err := c.observations(ctx, series, "lin")
	if err != nil {
		return contracts.Observation{}, err
	}

	date, value, ok := latest(level)
	if !ok {
		return contracts.Observation{}, fmt.Errorf("%s: %w", series, contracts.ErrNoData)
	}

	obs := contracts.Observation{Value: value, ObservedAt: date}

	units := def.ChangeUnits
	if units == "" {
		units = contracts.ChangeAbsolute
	}
	changes, err := c.observations(ctx, series, string(units))
	if err != nil {
		// 변화량 실패는 수준값을 무효화하지 않음
		c.logger.WithError(err).WithField("series", series).Warn("Change observations unavailable")
		return obs, nil
	}
	if change, ok := at(changes, date); ok {
		obs.Change = &change
	}

	c.logger.WithFields(map[string]interface{}{
		"series": series,
		"date":   date.Format(dateLayout),
		"value":  value,
	}).Debug("Fetched FRED observation")

	return obs, nil
}

// observations fetches the most recent observations, newest first
func (c *Client) observations(ctx context.Context, series, units string) ([]Observation, error) {
	params := url.Values{}
	params.Set("series_id", series)
	params.Set("api_key", c.apiKey)
	params.Set("file_type", "json")
	params.Set("sort_order", "desc")
	params.Set("limit", strconv.Itoa(lookback))
	params.Set("units", units)

	var resp ObservationsResponse
	if err := c.httpClient.GetJSON(ctx, c.baseURL+"/series/observations?"+params.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("fred %s (%s): %w", series, units, err)
	}
	return resp.Observations, nil
}

// latest returns the newest observation that carries a value
func latest(obs []Observation) (time.Time, float64, bool) {
	for _, o := range obs {
		v, ok := parseValue(o.Value)
		if !ok {
			continue
		}
		date, err := time.Parse(dateLayout, o.Date)
		if err != nil {
			continue
		}
		return date, v, true
	}
	return time.Time{}, 0, false
}

// at returns the value observed on date
func at(obs []Observation, date time.Time) (float64, bool) {
	want := date.Format(dateLayout)
	for _, o := range obs {
		if o.Date == want {
			return parseValue(o.Value)
		}
	}
	return 0, false
}

func parseValue(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == missing {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
