// Package marketdata fetches quotes, fundamentals and price history from
// the Yahoo Finance public endpoints and formats them into the plain-text
// blocks the analysis prompts consume.
package marketdata

import "time"

// Candle is a single OHLCV bar.
type Candle struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Metrics holds the fundamental ratios used by the financial analysis
// section. Fields are pointers because Yahoo omits whatever a company does
// not report; nil renders as "N/A".
type Metrics struct {
	MarketCap            *float64 `json:"market_cap"`
	EnterpriseValue      *float64 `json:"enterprise_value"`
	TrailingPE           *float64 `json:"trailing_pe"`
	ForwardPE            *float64 `json:"forward_pe"`
	PEGRatio             *float64 `json:"peg_ratio"`
	PriceToBook          *float64 `json:"price_to_book"`
	PriceToSales         *float64 `json:"price_to_sales"`
	ProfitMargins        *float64 `json:"profit_margins"`
	GrossMargins         *float64 `json:"gross_margins"`
	OperatingMargins     *float64 `json:"operating_margins"`
	RevenueGrowth        *float64 `json:"revenue_growth"`
	CurrentRatio         *float64 `json:"current_ratio"`
	QuickRatio           *float64 `json:"quick_ratio"`
	DebtToEquity         *float64 `json:"debt_to_equity"`
	ReturnOnEquity       *float64 `json:"return_on_equity"`
	ReturnOnAssets       *float64 `json:"return_on_assets"`
	FreeCashFlow         *float64 `json:"free_cash_flow"`
	OperatingCashFlow    *float64 `json:"operating_cash_flow"`
	TotalCash            *float64 `json:"total_cash"`
	TotalDebt            *float64 `json:"total_debt"`
	TotalRevenue         *float64 `json:"total_revenue"`
	DividendYield        *float64 `json:"dividend_yield"`
	Beta                 *float64 `json:"beta"`
	FiftyTwoWeekHigh     *float64 `json:"52_week_high"`
	FiftyTwoWeekLow      *float64 `json:"52_week_low"`
	FiftyDayAverage      *float64 `json:"50_day_average"`
	TwoHundredDayAverage *float64 `json:"200_day_average"`
}

// Snapshot bundles profile and fundamentals for one ticker.
type Snapshot struct {
	Ticker       string    `json:"ticker"`
	Company      string    `json:"company"`
	Sector       string    `json:"sector"`
	Industry     string    `json:"industry"`
	Employees    int64     `json:"employees,omitempty"`
	Website      string    `json:"website,omitempty"`
	City         string    `json:"city,omitempty"`
	Country      string    `json:"country,omitempty"`
	Summary      string    `json:"summary,omitempty"`
	CEO          string    `json:"ceo,omitempty"`
	CurrentPrice *float64  `json:"current_price"`
	Metrics      Metrics   `json:"metrics"`
	FetchedAt    time.Time `json:"fetched_at"`
}
