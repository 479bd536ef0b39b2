// Package chart renders candlestick charts with volume and moving averages
// as self-contained HTML for embedding in reports.
package chart

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"equity_research/pkg/core/marketdata"
)

const (
	upColor   = "#26a65b"
	downColor = "#e74c3c"
	ma50Color = "rgba(255, 165, 0, 0.8)"
	ma200Col  = "rgba(147, 112, 219, 0.8)"
	avgVolCol = "rgba(100, 100, 100, 0.5)"
)

// Builder turns a candle series into chart output and summary stats.
type Builder struct {
	ticker  string
	candles []marketdata.Candle
}

func NewBuilder(ticker string, candles []marketdata.Candle) *Builder {
	return &Builder{ticker: ticker, candles: candles}
}

// RenderHTML writes a standalone HTML page with the candlestick chart,
// MA overlays and a volume pane.
func (b *Builder) RenderHTML(w io.Writer) error {
	if len(b.candles) == 0 {
		return fmt.Errorf("no price data to chart for %s", b.ticker)
	}

	dates := make([]string, len(b.candles))
	closes := make([]float64, len(b.candles))
	volumes := make([]float64, len(b.candles))
	klineData := make([]opts.KlineData, len(b.candles))
	volumeData := make([]opts.BarData, len(b.candles))
	for i, c := range b.candles {
		dates[i] = c.Date.Format("2006-01-02")
		closes[i] = c.Close
		volumes[i] = float64(c.Volume)
		klineData[i] = opts.KlineData{Value: [4]float64{c.Open, c.Close, c.Low, c.High}}
		color := upColor
		if c.Close < c.Open {
			color = downColor
		}
		volumeData[i] = opts.BarData{
			Value:     c.Volume,
			ItemStyle: &opts.ItemStyle{Color: color, Opacity: 0.7},
		}
	}

	kline := charts.NewKLine()
	kline.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: fmt.Sprintf("%s Stock Analysis", b.ticker),
			Width:     "1100px",
			Height:    "520px",
		}),
		charts.WithTitleOpts(opts.Title{Title: fmt.Sprintf("%s Price", b.ticker)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{SplitNumber: 20}),
		charts.WithYAxisOpts(opts.YAxis{Scale: opts.Bool(true), Name: "Price ($)"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
	)
	kline.SetXAxis(dates).AddSeries("Price", klineData,
		charts.WithItemStyleOpts(opts.ItemStyle{
			Color:        upColor,
			Color0:       downColor,
			BorderColor:  upColor,
			BorderColor0: downColor,
		}),
	)

	kline.Overlap(b.maLine(dates, closes, 50, "50-Day MA", ma50Color))
	kline.Overlap(b.maLine(dates, closes, 200, "200-Day MA", ma200Col))

	volume := charts.NewBar()
	volume.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:  "1100px",
			Height: "220px",
		}),
		charts.WithTitleOpts(opts.Title{Title: "Volume"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithXAxisOpts(opts.XAxis{SplitNumber: 20}),
	)
	volume.SetXAxis(dates).AddSeries("Volume", volumeData)
	volume.Overlap(b.maLine(dates, volumes, 50, "50-Day Avg Vol", avgVolCol))

	page := components.NewPage()
	page.SetLayout(components.PageCenterLayout)
	page.AddCharts(kline, volume)

	return page.Render(w)
}

func (b *Builder) maLine(dates []string, closes []float64, window int, name, color string) *charts.Line {
	ma := marketdata.MovingAverage(closes, window)
	data := make([]opts.LineData, len(ma))
	for i, v := range ma {
		data[i] = opts.LineData{Value: v}
	}

	line := charts.NewLine()
	line.SetXAxis(dates).AddSeries(name, data,
		charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true), Symbol: "none"}),
		charts.WithLineStyleOpts(opts.LineStyle{Color: color, Width: 1.5}),
	)
	return line
}

// Summary holds key stats derived from the candle series for text display.
type Summary struct {
	Ticker          string   `json:"ticker"`
	LatestDate      string   `json:"latest_date"`
	CurrentPrice    float64  `json:"current_price"`
	PeriodHigh      float64  `json:"period_high"`
	PeriodLow       float64  `json:"period_low"`
	MA50            float64  `json:"ma50"`
	MA200           float64  `json:"ma200"`
	AvgVolume       int64    `json:"avg_volume"`
	LatestVolume    int64    `json:"latest_volume"`
	AboveMA50       bool     `json:"above_ma50"`
	AboveMA200      bool     `json:"above_ma200"`
	TwentyDayReturn *float64 `json:"20_day_return,omitempty"`
	ShortTermTrend  string   `json:"short_term_trend,omitempty"`
}

// Summarize computes headline stats. The short-term trend calls a move of
// more than 5% over 20 bars a trend; anything between is sideways.
func (b *Builder) Summarize() (*Summary, error) {
	if len(b.candles) == 0 {
		return nil, fmt.Errorf("no price data for %s", b.ticker)
	}

	closes := make([]float64, len(b.candles))
	for i, c := range b.candles {
		closes[i] = c.Close
	}
	ma50 := marketdata.MovingAverage(closes, 50)
	ma200 := marketdata.MovingAverage(closes, 200)

	latest := b.candles[len(b.candles)-1]
	s := &Summary{
		Ticker:       b.ticker,
		LatestDate:   latest.Date.Format("2006-01-02"),
		CurrentPrice: latest.Close,
		PeriodHigh:   b.candles[0].High,
		PeriodLow:    b.candles[0].Low,
		MA50:         ma50[len(ma50)-1],
		MA200:        ma200[len(ma200)-1],
		LatestVolume: latest.Volume,
	}

	var volumeSum int64
	for _, c := range b.candles {
		if c.High > s.PeriodHigh {
			s.PeriodHigh = c.High
		}
		if c.Low < s.PeriodLow {
			s.PeriodLow = c.Low
		}
		volumeSum += c.Volume
	}
	s.AvgVolume = volumeSum / int64(len(b.candles))

	s.AboveMA50 = s.CurrentPrice > s.MA50
	s.AboveMA200 = s.CurrentPrice > s.MA200

	if len(b.candles) >= 20 {
		recent := b.candles[len(b.candles)-20:]
		startPrice := recent[0].Close
		if startPrice != 0 {
			ret := (recent[len(recent)-1].Close - startPrice) / startPrice * 100
			s.TwentyDayReturn = &ret
			switch {
			case ret > 5:
				s.ShortTermTrend = "Uptrend"
			case ret < -5:
				s.ShortTermTrend = "Downtrend"
			default:
				s.ShortTermTrend = "Sideways"
			}
		}
	}

	return s, nil
}
