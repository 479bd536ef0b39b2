package marketdata

import (
	"math"
	"strings"
	"testing"
	"time"
)

func f(v float64) *float64 { return &v }

func TestFmtNum(t *testing.T) {
	cases := []struct {
		val    *float64
		prefix string
		want   string
	}{
		{f(3.1e12), "$", "$3100.00B"},
		{f(2.5e9), "$", "$2.50B"},
		{f(750e6), "$", "$750.00M"},
		{f(1234.5), "$", "$1234.50"},
		{f(-1.2e9), "$", "$-1.20B"},
		{nil, "$", "N/A"},
	}
	for _, c := range cases {
		if got := fmtNum(c.val, c.prefix); got != c.want {
			t.Errorf("fmtNum(%v) = %q, want %q", c.val, got, c.want)
		}
	}
}

func TestFmtPctAndRatio(t *testing.T) {
	if got := fmtPct(f(0.2345)); got != "23.45%" {
		t.Errorf("fmtPct = %q", got)
	}
	if got := fmtPct(nil); got != "N/A" {
		t.Errorf("fmtPct(nil) = %q", got)
	}
	if got := fmtRatio(f(1.5)); got != "1.50" {
		t.Errorf("fmtRatio = %q", got)
	}
	if got := fmtRatio(nil); got != "N/A" {
		t.Errorf("fmtRatio(nil) = %q", got)
	}
}

func TestFormatFinancialsSections(t *testing.T) {
	snap := &Snapshot{
		Ticker:   "AAPL",
		Company:  "Apple Inc.",
		Sector:   "Technology",
		Industry: "Consumer Electronics",
		Metrics: Metrics{
			MarketCap:    f(3.0e12),
			TotalRevenue: f(391e9),
			GrossMargins: f(0.462),
		},
	}

	out := FormatFinancials(snap)

	for _, want := range []string{
		"Financial Data for AAPL",
		"Company: Apple Inc.",
		"=== KEY METRICS ===",
		"Market Cap: $3000.00B",
		"Revenue (TTM): $391.00B",
		"=== VALUATION ===",
		"=== PROFITABILITY ===",
		"Gross Margin: 46.20%",
		"=== BALANCE SHEET ===",
		"=== CASH FLOW ===",
		"=== TRADING ===",
		"Beta: N/A",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("FormatFinancials missing %q", want)
		}
	}
}

func TestMovingAverageShortSeries(t *testing.T) {
	vals := []float64{10, 20, 30, 40}
	ma := MovingAverage(vals, 3)

	want := []float64{10, 15, 20, 30}
	for i := range want {
		if math.Abs(ma[i]-want[i]) > 1e-9 {
			t.Errorf("ma[%d] = %v, want %v", i, ma[i], want[i])
		}
	}
}

func TestMovingAverageWindowLargerThanSeries(t *testing.T) {
	vals := []float64{100, 102}
	ma := MovingAverage(vals, 50)
	if ma[0] != 100 || ma[1] != 101 {
		t.Errorf("short series should average what exists, got %v", ma)
	}
}

func makeCandles(n int, startPrice float64) []Candle {
	candles := make([]Candle, n)
	day := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	price := startPrice
	for i := range candles {
		candles[i] = Candle{
			Date:   day,
			Open:   price - 0.5,
			High:   price + 1,
			Low:    price - 1,
			Close:  price,
			Volume: 1_000_000,
		}
		price += 0.5
		day = day.AddDate(0, 0, 1)
	}
	return candles
}

func TestFormatPrices(t *testing.T) {
	candles := makeCandles(80, 100)
	out := FormatPrices("TSLA", candles, 60)

	for _, want := range []string{
		"Price Data for TSLA",
		"Period: Last 60 trading days",
		"=== CURRENT STATUS ===",
		"=== MOVING AVERAGES ===",
		"50-Day MA:",
		"200-Day MA:",
		"=== PERIOD STATISTICS ===",
		"Average Volume: 1,000,000",
		"=== LAST 20 DAYS ===",
		"Up Days: 19",
		"Down Days: 0",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("FormatPrices missing %q\n%s", want, out)
		}
	}
}

func TestFormatPricesEmpty(t *testing.T) {
	if got := FormatPrices("X", nil, 60); got != "Price data unavailable." {
		t.Errorf("empty candles = %q", got)
	}
}

func TestFormatPricesSkipsTrendWhenShort(t *testing.T) {
	out := FormatPrices("X", makeCandles(10, 50), 60)
	if strings.Contains(out, "=== LAST 20 DAYS ===") {
		t.Error("trend section should be omitted under 20 bars")
	}
}

func TestIsPreRevenue(t *testing.T) {
	if !IsPreRevenue(&Snapshot{}) {
		t.Error("missing revenue should be treated as pre-revenue")
	}
	if !IsPreRevenue(&Snapshot{Metrics: Metrics{TotalRevenue: f(500_000)}}) {
		t.Error("sub-$1M revenue should be pre-revenue")
	}
	if IsPreRevenue(&Snapshot{Metrics: Metrics{TotalRevenue: f(50e6)}}) {
		t.Error("$50M revenue is not pre-revenue")
	}
}

func TestGroupThousands(t *testing.T) {
	cases := map[int64]string{
		0:          "0",
		999:        "999",
		1000:       "1,000",
		1234567:    "1,234,567",
		-98765432:  "-98,765,432",
		1000000000: "1,000,000,000",
	}
	for in, want := range cases {
		if got := groupThousands(in); got != want {
			t.Errorf("groupThousands(%d) = %q, want %q", in, got, want)
		}
	}
}
