package repository

import (
	"context"
	"fmt"
	"golang-backtest/config"
	"golang-backtest/internal/dto"
	"golang-backtest/pkg/httpclient"
	"golang-backtest/pkg/logger"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const yahooIntervalDaily = "1d"

type YahooFinanceRepository interface {
	// GetDaily returns daily bars in [start, end]. Timestamps are shifted by the
	// exchange GMT offset so their UTC date is the exchange trading date. An
	// unknown symbol yields no bars and no error.
	GetDaily(ctx context.Context, symbol string, start, end time.Time) ([]dto.StockOHLCV, error)
}

type yahooFinanceRepository struct {
	httpClient     httpclient.HTTPClient
	cfg            *config.Config
	logger         *logger.Logger
	requestLimiter *rate.Limiter
}

// NewYahooFinanceRepository creates a new instance of yahooFinanceRepository.
func NewYahooFinanceRepository(cfg *config.Config, log *logger.Logger) YahooFinanceRepository {
	return newYahooFinanceRepository(cfg, log, httpclient.New(cfg.YahooFinance.BaseURL, cfg.YahooFinance.Timeout, cfg.YahooFinance.RetryCount))
}

func newYahooFinanceRepository(cfg *config.Config, log *logger.Logger, client httpclient.HTTPClient) *yahooFinanceRepository {
	perMinute := cfg.YahooFinance.MaxRequestPerMinute
	if perMinute <= 0 {
		perMinute = 60
	}
	return &yahooFinanceRepository{
		httpClient:     client,
		cfg:            cfg,
		logger:         log,
		requestLimiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
	}
}

func (r *yahooFinanceRepository) GetDaily(ctx context.Context, symbol string, start, end time.Time) ([]dto.StockOHLCV, error) {
	if !r.requestLimiter.Allow() {
		r.logger.DebugContext(ctx, "Yahoo Finance request throttled",
			logger.IntField("max_request_per_minute", r.cfg.YahooFinance.MaxRequestPerMinute),
			logger.StringField("symbol", symbol),
		)
		if err := r.requestLimiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	param := dto.GetStockDataParam{
		StockCode: symbol + r.cfg.YahooFinance.SymbolSuffix,
		Period1:   start.Unix(),
		Period2:   end.Add(24 * time.Hour).Unix(),
		Interval:  yahooIntervalDaily,
	}
	queryParams := map[string]string{
		"period1":        fmt.Sprintf("%d", param.Period1),
		"period2":        fmt.Sprintf("%d", param.Period2),
		"interval":       param.Interval,
		"includePrePost": "false",
		"events":         "div,split",
	}
	headers := map[string]string{
		"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/120.0.0.0 Safari/537.36",
		"Accept-Language": "en-US,en;q=0.9",
	}

	var yahooResp dto.YahooFinanceResponse
	resp, err := r.httpClient.Get(ctx, "/"+param.StockCode, queryParams, headers, &yahooResp)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch data from yahoo finance: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		r.logger.ErrorContext(ctx, "Yahoo Finance API returned Non-OK status",
			logger.IntField("status_code", resp.StatusCode),
			logger.StringField("symbol", param.StockCode),
			logger.StringField("body", string(resp.Body)))
		return nil, fmt.Errorf("yahoo finance api returned status: %d", resp.StatusCode)
	}

	if e := yahooResp.Chart.Error; e != nil {
		if strings.EqualFold(e.Code, "Not Found") {
			return nil, nil
		}
		return nil, fmt.Errorf("yahoo finance api error: %s: %s", e.Code, e.Description)
	}
	if len(yahooResp.Chart.Result) == 0 {
		return nil, nil
	}

	result := yahooResp.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, nil
	}
	quote := result.Indicators.Quote[0]

	at := func(values []*float64, i int) *float64 {
		if i < len(values) {
			return values[i]
		}
		return nil
	}

	ohlcvData := make([]dto.StockOHLCV, 0, len(result.Timestamp))
	for i, timestamp := range result.Timestamp {
		bar := dto.StockOHLCV{
			Timestamp: timestamp + result.Meta.GMTOffset,
			Open:      at(quote.Open, i),
			High:      at(quote.High, i),
			Low:       at(quote.Low, i),
			Close:     at(quote.Close, i),
		}
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			bar.Volume = *quote.Volume[i]
		}
		// A bar with every price missing carries nothing the engine can use.
		if bar.Open == nil && bar.High == nil && bar.Low == nil && bar.Close == nil {
			continue
		}
		ohlcvData = append(ohlcvData, bar)
	}

	return ohlcvData, nil
}
