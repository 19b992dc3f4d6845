package repository

import (
	"context"
	"fmt"
	"golang-backtest/config"
	"golang-backtest/internal/backtest"
	"golang-backtest/internal/model"
	"golang-backtest/pkg/cache"
	"golang-backtest/pkg/common"
	"golang-backtest/pkg/logger"
	"golang-backtest/pkg/utils"
	"time"
)

// PriceSeriesRepository is the price source handed to the engine. It reads
// stored bars first and falls back to Yahoo Finance, writing fetched bars
// back to the store. Results are cached per symbol and range.
type PriceSeriesRepository interface {
	GetSeries(ctx context.Context, symbol string, start, end time.Time) (backtest.Series, error)
}

type priceSeriesRepository struct {
	cfg          *config.Config
	log          *logger.Logger
	cache        cache.Cache
	priceBarRepo PriceBarRepository
	yahooRepo    YahooFinanceRepository
}

func NewPriceSeriesRepository(cfg *config.Config, log *logger.Logger, inmemoryCache cache.Cache, priceBarRepo PriceBarRepository, yahooRepo YahooFinanceRepository) PriceSeriesRepository {
	return &priceSeriesRepository{
		cfg:          cfg,
		log:          log,
		cache:        inmemoryCache,
		priceBarRepo: priceBarRepo,
		yahooRepo:    yahooRepo,
	}
}

func (r *priceSeriesRepository) GetSeries(ctx context.Context, symbol string, start, end time.Time) (backtest.Series, error) {
	key := fmt.Sprintf(common.KEY_PRICE_SERIES, symbol, utils.FormatDate(start), utils.FormatDate(end))
	if cached, ok := cache.GetAs[backtest.Series](r.cache, key); ok {
		return cached, nil
	}

	series, err := r.priceBarRepo.GetSeries(ctx, symbol, start, end)
	if err != nil {
		return backtest.Series{}, err
	}

	if series.Len() == 0 && r.yahooRepo != nil {
		series, err = r.fetchRemote(ctx, symbol, start, end)
		if err != nil {
			return backtest.Series{}, err
		}
	}

	if r.cache != nil {
		r.cache.Set(key, series, r.cfg.Backtest.SeriesCacheTTL)
	}
	return series, nil
}

func (r *priceSeriesRepository) fetchRemote(ctx context.Context, symbol string, start, end time.Time) (backtest.Series, error) {
	ohlcv, err := r.yahooRepo.GetDaily(ctx, symbol, start, end)
	if err != nil {
		return backtest.Series{}, fmt.Errorf("failed to fetch %s from yahoo finance: %w", symbol, err)
	}

	bars := make([]backtest.PriceBar, 0, len(ohlcv))
	for _, o := range ohlcv {
		bars = append(bars, backtest.PriceBar{
			Symbol: symbol,
			Date:   utils.StartOfDayUTC(time.Unix(o.Timestamp, 0)),
			Open:   o.Open,
			High:   o.High,
			Low:    o.Low,
			Close:  o.Close,
			Volume: o.Volume,
		})
	}
	series := backtest.NormalizeSeries(symbol, bars, start, end)

	rows := make([]model.PriceBar, 0, series.Len())
	for _, b := range series.Bars {
		rows = append(rows, model.PriceBar{
			Symbol: symbol,
			Date:   b.Date,
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
			Source: common.PRICE_SOURCE_YAHOO,
		})
	}
	if err := r.priceBarRepo.Upsert(ctx, rows); err != nil {
		r.log.WarnContext(ctx, "Failed to store fetched price bars",
			logger.StringField("symbol", symbol),
			logger.ErrorField(err),
		)
	}

	return series, nil
}
