package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	yahooBaseURL = "https://query2.finance.yahoo.com"
	chartBaseURL = "https://query1.finance.yahoo.com"
	cacheTTL     = 6 * time.Hour
	crumbTTL     = 1 * time.Hour
	userAgent    = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
)

// Client talks to the Yahoo Finance public API. Snapshots and histories are
// cached in memory for cacheTTL.
type Client struct {
	client    *http.Client
	cache     map[string]*cachedSnapshot
	histCache map[string]*cachedHistory
	mu        sync.RWMutex
	crumb     string
	crumbMu   sync.Mutex
	crumbExp  time.Time
}

type cachedSnapshot struct {
	data      *Snapshot
	expiresAt time.Time
}

type cachedHistory struct {
	candles   []Candle
	expiresAt time.Time
}

func NewClient() *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		client: &http.Client{
			Timeout: 15 * time.Second,
			Jar:     jar,
		},
		cache:     make(map[string]*cachedSnapshot),
		histCache: make(map[string]*cachedHistory),
	}
}

// getCrumb fetches a fresh crumb token from Yahoo Finance.
// Yahoo requires: 1) visit a page to get session cookies, 2) fetch crumb with those cookies.
// The crumb is cached for 1 hour; the cookie jar persists on the http.Client.
func (c *Client) getCrumb(ctx context.Context) (string, error) {
	c.crumbMu.Lock()
	defer c.crumbMu.Unlock()

	if c.crumb != "" && time.Now().Before(c.crumbExp) {
		return c.crumb, nil
	}

	// Step 1: Hit the Yahoo landing page to establish cookies
	seedReq, err := http.NewRequestWithContext(ctx, "GET", "https://fc.yahoo.com", nil)
	if err != nil {
		return "", fmt.Errorf("creating seed request: %w", err)
	}
	seedReq.Header.Set("User-Agent", userAgent)
	seedResp, err := c.client.Do(seedReq)
	if err != nil {
		return "", fmt.Errorf("seed request failed: %w", err)
	}
	seedResp.Body.Close()
	// Status doesn't matter, only the cookies in the jar do

	// Step 2: Fetch the crumb using the session cookies
	crumbReq, err := http.NewRequestWithContext(ctx, "GET", yahooBaseURL+"/v1/test/getcrumb", nil)
	if err != nil {
		return "", fmt.Errorf("creating crumb request: %w", err)
	}
	crumbReq.Header.Set("User-Agent", userAgent)

	crumbResp, err := c.client.Do(crumbReq)
	if err != nil {
		return "", fmt.Errorf("crumb request failed: %w", err)
	}
	defer crumbResp.Body.Close()

	crumbBody, err := io.ReadAll(crumbResp.Body)
	if err != nil {
		return "", fmt.Errorf("reading crumb response: %w", err)
	}

	if crumbResp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("crumb endpoint returned %d: %s", crumbResp.StatusCode, string(crumbBody))
	}

	crumb := strings.TrimSpace(string(crumbBody))
	if crumb == "" {
		return "", fmt.Errorf("empty crumb returned")
	}

	c.crumb = crumb
	c.crumbExp = time.Now().Add(crumbTTL)

	log.Debug().Msg("Yahoo Finance crumb obtained")

	return crumb, nil
}

// FetchSnapshot retrieves profile and fundamentals from the quoteSummary API.
func (c *Client) FetchSnapshot(ctx context.Context, ticker string) (*Snapshot, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, fmt.Errorf("ticker is required")
	}

	c.mu.RLock()
	if cached, ok := c.cache[ticker]; ok && time.Now().Before(cached.expiresAt) {
		c.mu.RUnlock()
		log.Debug().Str("ticker", ticker).Msg("snapshot cache hit")
		return cached.data, nil
	}
	c.mu.RUnlock()

	// One retry on auth failure (stale crumb)
	snap, err := c.fetchWithCrumb(ctx, ticker)
	if err != nil && strings.Contains(err.Error(), "401") {
		log.Debug().Str("ticker", ticker).Msg("crumb expired, refreshing and retrying")
		c.crumbMu.Lock()
		c.crumb = ""
		c.crumbExp = time.Time{}
		c.crumbMu.Unlock()

		snap, err = c.fetchWithCrumb(ctx, ticker)
	}
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[ticker] = &cachedSnapshot{
		data:      snap,
		expiresAt: time.Now().Add(cacheTTL),
	}
	c.mu.Unlock()

	log.Info().Str("ticker", ticker).Str("company", snap.Company).Msg("snapshot fetched and cached")

	return snap, nil
}

func (c *Client) fetchWithCrumb(ctx context.Context, ticker string) (*Snapshot, error) {
	crumb, err := c.getCrumb(ctx)
	if err != nil {
		return nil, fmt.Errorf("obtaining crumb: %w", err)
	}

	modules := "assetProfile,financialData,defaultKeyStatistics,summaryDetail,price"
	reqURL := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=%s&crumb=%s",
		yahooBaseURL, url.PathEscape(ticker), modules, url.QueryEscape(crumb))

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching quote summary: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quote summary returned %d: %s", resp.StatusCode, truncateBytes(body, 200))
	}

	snap, err := parseQuoteSummary(ticker, body)
	if err != nil {
		return nil, fmt.Errorf("parsing quote summary: %w", err)
	}

	return snap, nil
}

// History fetches daily candles from the v8 chart API, which needs no crumb.
// rng is a Yahoo range string such as "6mo", "1y" or "5y".
func (c *Client) History(ctx context.Context, ticker, rng string) ([]Candle, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, fmt.Errorf("ticker is required")
	}
	if rng == "" {
		rng = "1y"
	}

	key := ticker + "|" + rng
	c.mu.RLock()
	if cached, ok := c.histCache[key]; ok && time.Now().Before(cached.expiresAt) {
		c.mu.RUnlock()
		return cached.candles, nil
	}
	c.mu.RUnlock()

	reqURL := fmt.Sprintf("%s/v8/finance/chart/%s?range=%s&interval=1d",
		chartBaseURL, url.PathEscape(ticker), url.QueryEscape(rng))

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating chart request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching chart data: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading chart response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chart API returned %d: %s", resp.StatusCode, truncateBytes(body, 200))
	}

	candles, err := parseChart(ticker, body)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.histCache[key] = &cachedHistory{
		candles:   candles,
		expiresAt: time.Now().Add(cacheTTL),
	}
	c.mu.Unlock()

	log.Info().Str("ticker", ticker).Str("range", rng).Int("candles", len(candles)).Msg("price history fetched")

	return candles, nil
}

// SearchTicker attempts to find a ticker symbol for a company name.
func (c *Client) SearchTicker(ctx context.Context, companyName string) (string, error) {
	reqURL := fmt.Sprintf("%s/v1/finance/search?q=%s&quotesCount=5&newsCount=0",
		yahooBaseURL, url.QueryEscape(companyName))

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating search request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("searching Yahoo Finance: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading search response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Yahoo search returned %d", resp.StatusCode)
	}

	var searchResp struct {
		Quotes []struct {
			Symbol    string `json:"symbol"`
			ShortName string `json:"shortname"`
			QuoteType string `json:"quoteType"`
		} `json:"quotes"`
	}

	if err := json.Unmarshal(body, &searchResp); err != nil {
		return "", fmt.Errorf("parsing search results: %w", err)
	}

	// Prefer EQUITY matches
	for _, q := range searchResp.Quotes {
		if q.QuoteType == "EQUITY" {
			log.Debug().Str("company", companyName).Str("ticker", q.Symbol).Msg("ticker found via search")
			return q.Symbol, nil
		}
	}
	if len(searchResp.Quotes) > 0 {
		return searchResp.Quotes[0].Symbol, nil
	}

	return "", fmt.Errorf("no ticker found for %q", companyName)
}

// ClearCache removes expired entries.
func (c *Client) ClearCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	for k, v := range c.cache {
		if now.After(v.expiresAt) {
			delete(c.cache, k)
		}
	}
	for k, v := range c.histCache {
		if now.After(v.expiresAt) {
			delete(c.histCache, k)
		}
	}
}

// ── Yahoo Finance JSON parsing ──────────────────────────

// yfVal is Yahoo's {raw, fmt} number wrapper. Raw is a pointer so that
// absent fields stay distinguishable from zero.
type yfVal struct {
	Raw *float64 `json:"raw"`
	Fmt string   `json:"fmt"`
}

func parseQuoteSummary(ticker string, body []byte) (*Snapshot, error) {
	var raw struct {
		QuoteSummary struct {
			Result []json.RawMessage `json:"result"`
			Error  *struct {
				Code        string `json:"code"`
				Description string `json:"description"`
			} `json:"error"`
		} `json:"quoteSummary"`
	}

	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("unmarshaling wrapper: %w", err)
	}

	if raw.QuoteSummary.Error != nil {
		return nil, fmt.Errorf("yahoo error: %s: %s", raw.QuoteSummary.Error.Code, raw.QuoteSummary.Error.Description)
	}

	if len(raw.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("no results returned for %s", ticker)
	}

	var modules map[string]json.RawMessage
	if err := json.Unmarshal(raw.QuoteSummary.Result[0], &modules); err != nil {
		return nil, fmt.Errorf("unmarshaling modules: %w", err)
	}

	snap := &Snapshot{
		Ticker:    ticker,
		FetchedAt: time.Now(),
	}

	if data, ok := modules["assetProfile"]; ok {
		var ap struct {
			Industry            string `json:"industry"`
			Sector              string `json:"sector"`
			FullTimeEmployees   int64  `json:"fullTimeEmployees"`
			Website             string `json:"website"`
			City                string `json:"city"`
			Country             string `json:"country"`
			LongBusinessSummary string `json:"longBusinessSummary"`
			CompanyOfficers     []struct {
				Name  string `json:"name"`
				Title string `json:"title"`
			} `json:"companyOfficers"`
		}
		if err := json.Unmarshal(data, &ap); err == nil {
			snap.Industry = ap.Industry
			snap.Sector = ap.Sector
			snap.Employees = ap.FullTimeEmployees
			snap.Website = ap.Website
			snap.City = ap.City
			snap.Country = ap.Country
			snap.Summary = ap.LongBusinessSummary
			for _, o := range ap.CompanyOfficers {
				if strings.Contains(strings.ToUpper(o.Title), "CEO") || strings.Contains(o.Title, "Chief Executive") {
					snap.CEO = o.Name
					break
				}
			}
		}
	}

	if data, ok := modules["price"]; ok {
		var p struct {
			ShortName          string `json:"shortName"`
			LongName           string `json:"longName"`
			MarketCap          yfVal  `json:"marketCap"`
			RegularMarketPrice yfVal  `json:"regularMarketPrice"`
		}
		if err := json.Unmarshal(data, &p); err == nil {
			if p.LongName != "" {
				snap.Company = p.LongName
			} else {
				snap.Company = p.ShortName
			}
			snap.Metrics.MarketCap = p.MarketCap.Raw
			snap.CurrentPrice = p.RegularMarketPrice.Raw
		}
	}
	if snap.Company == "" {
		snap.Company = ticker
	}

	if data, ok := modules["financialData"]; ok {
		var fd struct {
			TotalRevenue      yfVal `json:"totalRevenue"`
			RevenueGrowth     yfVal `json:"revenueGrowth"`
			GrossMargins      yfVal `json:"grossMargins"`
			OperatingMargins  yfVal `json:"operatingMargins"`
			ProfitMargins     yfVal `json:"profitMargins"`
			CurrentPrice      yfVal `json:"currentPrice"`
			CurrentRatio      yfVal `json:"currentRatio"`
			QuickRatio        yfVal `json:"quickRatio"`
			DebtToEquity      yfVal `json:"debtToEquity"`
			ReturnOnEquity    yfVal `json:"returnOnEquity"`
			ReturnOnAssets    yfVal `json:"returnOnAssets"`
			FreeCashflow      yfVal `json:"freeCashflow"`
			OperatingCashflow yfVal `json:"operatingCashflow"`
			TotalCash         yfVal `json:"totalCash"`
			TotalDebt         yfVal `json:"totalDebt"`
		}
		if err := json.Unmarshal(data, &fd); err == nil {
			snap.Metrics.TotalRevenue = fd.TotalRevenue.Raw
			snap.Metrics.RevenueGrowth = fd.RevenueGrowth.Raw
			snap.Metrics.GrossMargins = fd.GrossMargins.Raw
			snap.Metrics.OperatingMargins = fd.OperatingMargins.Raw
			snap.Metrics.ProfitMargins = fd.ProfitMargins.Raw
			snap.Metrics.CurrentRatio = fd.CurrentRatio.Raw
			snap.Metrics.QuickRatio = fd.QuickRatio.Raw
			snap.Metrics.DebtToEquity = fd.DebtToEquity.Raw
			snap.Metrics.ReturnOnEquity = fd.ReturnOnEquity.Raw
			snap.Metrics.ReturnOnAssets = fd.ReturnOnAssets.Raw
			snap.Metrics.FreeCashFlow = fd.FreeCashflow.Raw
			snap.Metrics.OperatingCashFlow = fd.OperatingCashflow.Raw
			snap.Metrics.TotalCash = fd.TotalCash.Raw
			snap.Metrics.TotalDebt = fd.TotalDebt.Raw
			if fd.CurrentPrice.Raw != nil {
				snap.CurrentPrice = fd.CurrentPrice.Raw
			}
		}
	}

	if data, ok := modules["defaultKeyStatistics"]; ok {
		var ks struct {
			EnterpriseValue yfVal `json:"enterpriseValue"`
			TrailingPE      yfVal `json:"trailingPE"`
			ForwardPE       yfVal `json:"forwardPE"`
			PegRatio        yfVal `json:"pegRatio"`
			PriceToBook     yfVal `json:"priceToBook"`
			Beta            yfVal `json:"beta"`
		}
		if err := json.Unmarshal(data, &ks); err == nil {
			snap.Metrics.EnterpriseValue = ks.EnterpriseValue.Raw
			snap.Metrics.PEGRatio = ks.PegRatio.Raw
			snap.Metrics.PriceToBook = ks.PriceToBook.Raw
			if ks.TrailingPE.Raw != nil {
				snap.Metrics.TrailingPE = ks.TrailingPE.Raw
			}
			if ks.ForwardPE.Raw != nil {
				snap.Metrics.ForwardPE = ks.ForwardPE.Raw
			}
			if ks.Beta.Raw != nil {
				snap.Metrics.Beta = ks.Beta.Raw
			}
		}
	}

	if data, ok := modules["summaryDetail"]; ok {
		var sd struct {
			TrailingPE                   yfVal `json:"trailingPE"`
			ForwardPE                    yfVal `json:"forwardPE"`
			PriceToSalesTrailing12Months yfVal `json:"priceToSalesTrailing12Months"`
			DividendYield                yfVal `json:"dividendYield"`
			Beta                         yfVal `json:"beta"`
			FiftyTwoWeekHigh             yfVal `json:"fiftyTwoWeekHigh"`
			FiftyTwoWeekLow              yfVal `json:"fiftyTwoWeekLow"`
			FiftyDayAverage              yfVal `json:"fiftyDayAverage"`
			TwoHundredDayAverage         yfVal `json:"twoHundredDayAverage"`
		}
		if err := json.Unmarshal(data, &sd); err == nil {
			if sd.TrailingPE.Raw != nil {
				snap.Metrics.TrailingPE = sd.TrailingPE.Raw
			}
			if sd.ForwardPE.Raw != nil {
				snap.Metrics.ForwardPE = sd.ForwardPE.Raw
			}
			if sd.Beta.Raw != nil {
				snap.Metrics.Beta = sd.Beta.Raw
			}
			snap.Metrics.PriceToSales = sd.PriceToSalesTrailing12Months.Raw
			snap.Metrics.DividendYield = sd.DividendYield.Raw
			snap.Metrics.FiftyTwoWeekHigh = sd.FiftyTwoWeekHigh.Raw
			snap.Metrics.FiftyTwoWeekLow = sd.FiftyTwoWeekLow.Raw
			snap.Metrics.FiftyDayAverage = sd.FiftyDayAverage.Raw
			snap.Metrics.TwoHundredDayAverage = sd.TwoHundredDayAverage.Raw
		}
	}

	return snap, nil
}

func parseChart(ticker string, body []byte) ([]Candle, error) {
	var chartResp struct {
		Chart struct {
			Result []struct {
				Timestamp  []int64 `json:"timestamp"`
				Indicators struct {
					Quote []struct {
						Open   []*float64 `json:"open"`
						High   []*float64 `json:"high"`
						Low    []*float64 `json:"low"`
						Close  []*float64 `json:"close"`
						Volume []*int64   `json:"volume"`
					} `json:"quote"`
				} `json:"indicators"`
			} `json:"result"`
			Error *struct {
				Code        string `json:"code"`
				Description string `json:"description"`
			} `json:"error"`
		} `json:"chart"`
	}

	if err := json.Unmarshal(body, &chartResp); err != nil {
		return nil, fmt.Errorf("parsing chart response: %w", err)
	}

	if chartResp.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo chart error: %s: %s", chartResp.Chart.Error.Code, chartResp.Chart.Error.Description)
	}

	if len(chartResp.Chart.Result) == 0 || len(chartResp.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no chart data found for %s", ticker)
	}

	result := chartResp.Chart.Result[0]
	quote := result.Indicators.Quote[0]

	candles := make([]Candle, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		// Yahoo pads arrays with nulls for halted sessions; skip those bars
		if i >= len(quote.Close) || quote.Close[i] == nil {
			continue
		}
		c := Candle{
			Date:  time.Unix(ts, 0).UTC(),
			Close: *quote.Close[i],
		}
		if i < len(quote.Open) && quote.Open[i] != nil {
			c.Open = *quote.Open[i]
		}
		if i < len(quote.High) && quote.High[i] != nil {
			c.High = *quote.High[i]
		}
		if i < len(quote.Low) && quote.Low[i] != nil {
			c.Low = *quote.Low[i]
		}
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			c.Volume = *quote.Volume[i]
		}
		candles = append(candles, c)
	}

	if len(candles) == 0 {
		return nil, fmt.Errorf("no valid candles for %s", ticker)
	}

	return candles, nil
}

func truncateBytes(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
