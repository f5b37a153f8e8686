package finra

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/macropulse/internal/contracts"
	"github.com/wonny/macropulse/pkg/httputil"
	"github.com/wonny/macropulse/pkg/logger"
)

// ProviderName is the source prefix routed to this client (finra:margin_debt)
const ProviderName = "finra"

// monthLayouts are the month/year formats seen in the statistics table
var monthLayouts = []string{"Jan-06", "Jan-2006", "January 2006", "Jan 2006", "2006-01"}

// Client scrapes the FINRA margin statistics page
// ⭐ SSOT: FINRA 마진 통계 스크래핑은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	url        string
}

// NewClient creates a new FINRA client
func NewClient(httpClient *httputil.Client, marginURL string, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.WithComponent("finra"),
		url:        marginURL,
	}
}

// MarginRow is one month of customer debit balances (millions of dollars)
type MarginRow struct {
	Month  time.Time
	Debits float64
}

// Name implements contracts.Provider
func (c *Client) Name() string {
	return ProviderName
}

// Fetch returns the latest debit balance and its percent change versus the
// previous month
func (c *Client) Fetch(ctx context.Context, def contracts.IndicatorDefinition) (contracts.Observation, error) {
	body, err := c.httpClient.GetBody(ctx, c.url)
	if err != nil {
		return contracts.Observation{}, fmt.Errorf("finra margin statistics: %w", err)
	}

	rows, err := ParseMarginTable(body)
	if err != nil {
		return contracts.Observation{}, err
	}
	if len(rows) == 0 {
		return contracts.Observation{}, fmt.Errorf("finra margin statistics: %w", contracts.ErrNoData)
	}

	latest := rows[0]
	obs := contracts.Observation{Value: latest.Debits, ObservedAt: latest.Month}
	if len(rows) > 1 && rows[1].Debits != 0 {
		change := (latest.Debits - rows[1].Debits) / rows[1].Debits * 100
		obs.Change = &change
	}

	c.logger.WithFields(map[string]interface{}{
		"indicator": def.Key,
		"month":     latest.Month.Format("2006-01"),
		"debits":    latest.Debits,
	}).Debug("Fetched margin statistics")

	return obs, nil
}

// ParseMarginTable extracts month/debit rows, newest first.
// The first table whose rows start with a month and a number is used.
func ParseMarginTable(html []byte) ([]MarginRow, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var rows []MarginRow
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			cells := tr.Find("td")
			if cells.Length() < 2 {
				return
			}
			month, ok := parseMonth(cells.Eq(0).Text())
			if !ok {
				return
			}
			debits, ok := parseAmount(cells.Eq(1).Text())
			if !ok {
				return
			}
			rows = append(rows, MarginRow{Month: month, Debits: debits})
		})
		return len(rows) == 0 // 첫 데이터 테이블에서 중단
	})

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Month.After(rows[j].Month)
	})
	return rows, nil
}

func parseMonth(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range monthLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimPrefix(s, "$")
	if s == "" || s == "-" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
