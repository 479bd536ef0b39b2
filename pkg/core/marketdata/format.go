package marketdata

import (
	"fmt"
	"math"
	"strings"
)

// preRevenueThreshold is the TTM revenue floor below which a company is
// treated as pre-revenue and the prompts shift to runway and TAM questions.
const preRevenueThreshold = 1_000_000

// fmtNum renders a large number with a B/M suffix, or "N/A" when nil.
func fmtNum(val *float64, prefix string) string {
	if val == nil {
		return "N/A"
	}
	num := *val
	switch {
	case math.Abs(num) >= 1e9:
		return fmt.Sprintf("%s%.2fB", prefix, num/1e9)
	case math.Abs(num) >= 1e6:
		return fmt.Sprintf("%s%.2fM", prefix, num/1e6)
	default:
		return fmt.Sprintf("%s%.2f", prefix, num)
	}
}

func fmtPct(val *float64) string {
	if val == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f%%", *val*100)
}

func fmtRatio(val *float64) string {
	if val == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", *val)
}

// FormatFinancials renders a snapshot as the plain-text fundamental block
// fed to the financial analysis prompt.
func FormatFinancials(s *Snapshot) string {
	company := s.Company
	if company == "" {
		company = "N/A"
	}
	sector := s.Sector
	if sector == "" {
		sector = "N/A"
	}
	industry := s.Industry
	if industry == "" {
		industry = "N/A"
	}

	m := s.Metrics
	lines := []string{
		fmt.Sprintf("Financial Data for %s", s.Ticker),
		fmt.Sprintf("Company: %s", company),
		fmt.Sprintf("Sector: %s", sector),
		fmt.Sprintf("Industry: %s", industry),
		"",
		"=== KEY METRICS ===",
		fmt.Sprintf("Market Cap: %s", fmtNum(m.MarketCap, "$")),
		fmt.Sprintf("Revenue (TTM): %s", fmtNum(m.TotalRevenue, "$")),
		fmt.Sprintf("Revenue Growth: %s", fmtPct(m.RevenueGrowth)),
		"",
		"=== VALUATION ===",
		fmt.Sprintf("P/E (Trailing): %s", fmtRatio(m.TrailingPE)),
		fmt.Sprintf("P/E (Forward): %s", fmtRatio(m.ForwardPE)),
		fmt.Sprintf("PEG Ratio: %s", fmtRatio(m.PEGRatio)),
		fmt.Sprintf("Price/Book: %s", fmtRatio(m.PriceToBook)),
		fmt.Sprintf("Price/Sales: %s", fmtRatio(m.PriceToSales)),
		"",
		"=== PROFITABILITY ===",
		fmt.Sprintf("Gross Margin: %s", fmtPct(m.GrossMargins)),
		fmt.Sprintf("Operating Margin: %s", fmtPct(m.OperatingMargins)),
		fmt.Sprintf("Profit Margin: %s", fmtPct(m.ProfitMargins)),
		fmt.Sprintf("ROE: %s", fmtPct(m.ReturnOnEquity)),
		"",
		"=== BALANCE SHEET ===",
		fmt.Sprintf("Total Cash: %s", fmtNum(m.TotalCash, "$")),
		fmt.Sprintf("Total Debt: %s", fmtNum(m.TotalDebt, "$")),
		fmt.Sprintf("Debt/Equity: %s", fmtRatio(m.DebtToEquity)),
		fmt.Sprintf("Current Ratio: %s", fmtRatio(m.CurrentRatio)),
		"",
		"=== CASH FLOW ===",
		fmt.Sprintf("Operating Cash Flow: %s", fmtNum(m.OperatingCashFlow, "$")),
		fmt.Sprintf("Free Cash Flow: %s", fmtNum(m.FreeCashFlow, "$")),
		"",
		"=== TRADING ===",
		fmt.Sprintf("52-Week High: %s", fmtNum(m.FiftyTwoWeekHigh, "$")),
		fmt.Sprintf("52-Week Low: %s", fmtNum(m.FiftyTwoWeekLow, "$")),
		fmt.Sprintf("50-Day Avg: %s", fmtNum(m.FiftyDayAverage, "$")),
		fmt.Sprintf("200-Day Avg: %s", fmtNum(m.TwoHundredDayAverage, "$")),
		fmt.Sprintf("Beta: %s", fmtRatio(m.Beta)),
	}

	return strings.Join(lines, "\n")
}

// MovingAverage computes a trailing simple moving average over closes.
// Early positions where fewer than window values exist average whatever
// is available, so the output always has len(values) entries.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	var sum float64
	for i, v := range values {
		sum += v
		n := window
		if i+1 < window {
			n = i + 1
		} else if i >= window {
			sum -= values[i-window]
		}
		out[i] = sum / float64(n)
	}
	return out
}

// FormatPrices renders price history as the plain-text block fed to the
// technical analysis prompt. Moving averages are computed over the whole
// series before the window is cut to the last days bars.
func FormatPrices(ticker string, candles []Candle, days int) string {
	if len(candles) == 0 {
		return "Price data unavailable."
	}
	if days <= 0 {
		days = 60
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	ma50 := MovingAverage(closes, 50)
	ma200 := MovingAverage(closes, 200)

	start := len(candles) - days
	if start < 0 {
		start = 0
	}
	recent := candles[start:]

	latest := recent[len(recent)-1]
	currentPrice := latest.Close

	prevClose := currentPrice
	change := 0.0
	changePct := 0.0
	if len(recent) > 1 {
		prevClose = recent[len(recent)-2].Close
		change = currentPrice - prevClose
		if prevClose != 0 {
			changePct = change / prevClose * 100
		}
	}

	lines := []string{
		fmt.Sprintf("Price Data for %s", ticker),
		fmt.Sprintf("Period: Last %d trading days", len(recent)),
		"",
		"=== CURRENT STATUS ===",
		fmt.Sprintf("Current Price: $%.2f", currentPrice),
		fmt.Sprintf("Previous Close: $%.2f", prevClose),
		fmt.Sprintf("Change: $%.2f (%+.2f%%)", change, changePct),
		"",
		"=== MOVING AVERAGES ===",
	}

	ma50Val := ma50[len(ma50)-1]
	ma200Val := ma200[len(ma200)-1]
	lines = append(lines,
		fmt.Sprintf("50-Day MA: $%.2f", ma50Val),
		fmt.Sprintf("Price vs 50-MA: %+.2f%%", (currentPrice-ma50Val)/ma50Val*100),
		fmt.Sprintf("200-Day MA: $%.2f", ma200Val),
		fmt.Sprintf("Price vs 200-MA: %+.2f%%", (currentPrice-ma200Val)/ma200Val*100),
	)

	periodHigh := recent[0].High
	periodLow := recent[0].Low
	var volumeSum int64
	for _, c := range recent {
		if c.High > periodHigh {
			periodHigh = c.High
		}
		if c.Low < periodLow {
			periodLow = c.Low
		}
		volumeSum += c.Volume
	}
	avgVolume := volumeSum / int64(len(recent))

	lines = append(lines,
		"",
		"=== PERIOD STATISTICS ===",
		fmt.Sprintf("Period High: $%.2f", periodHigh),
		fmt.Sprintf("Period Low: $%.2f", periodLow),
		fmt.Sprintf("Average Volume: %s", groupThousands(avgVolume)),
	)

	if len(recent) >= 20 {
		last20 := recent[len(recent)-20:]
		startPrice := last20[0].Close
		endPrice := last20[len(last20)-1].Close
		periodReturn := 0.0
		if startPrice != 0 {
			periodReturn = (endPrice - startPrice) / startPrice * 100
		}

		upDays, downDays := 0, 0
		for i := 1; i < len(last20); i++ {
			diff := last20[i].Close - last20[i-1].Close
			if diff > 0 {
				upDays++
			} else if diff < 0 {
				downDays++
			}
		}

		lines = append(lines,
			"",
			"=== LAST 20 DAYS ===",
			fmt.Sprintf("Return: %+.2f%%", periodReturn),
			fmt.Sprintf("Up Days: %d", upDays),
			fmt.Sprintf("Down Days: %d", downDays),
		)
	}

	return strings.Join(lines, "\n")
}

// IsPreRevenue reports whether TTM revenue is unknown or under $1M.
func IsPreRevenue(s *Snapshot) bool {
	rev := s.Metrics.TotalRevenue
	if rev == nil {
		return true
	}
	return *rev < preRevenueThreshold
}

// groupThousands formats n with comma separators.
func groupThousands(n int64) string {
	s := fmt.Sprintf("%d", n)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	out := strings.Join(parts, ",")
	if neg {
		out = "-" + out
	}
	return out
}
