package repository

import (
	"encoding/csv"
	"errors"
	"fmt"
	"golang-backtest/internal/backtest"
	"golang-backtest/internal/model"
	"golang-backtest/pkg/common"
	"golang-backtest/pkg/utils"
	"io"
	"math"
	"strconv"
	"strings"
)

var priceBarCSVHeader = []string{"symbol", "date", "open", "high", "low", "close", "volume"}

// ReadPriceBarsCSV parses rows of symbol,date,open,high,low,close,volume with
// a header line. Empty price cells are kept as missing. A later row for the
// same symbol and date replaces the earlier one.
func ReadPriceBarsCSV(r io.Reader) ([]model.PriceBar, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(priceBarCSVHeader)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	for i, name := range priceBarCSVHeader {
		if !strings.EqualFold(strings.TrimSpace(header[i]), name) {
			return nil, fmt.Errorf("unexpected csv column %d: got %q, want %q", i+1, header[i], name)
		}
	}

	var bars []model.PriceBar
	seen := make(map[string]int)
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		date, err := utils.ParseDate(record[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		bar := model.PriceBar{
			Symbol: strings.ToUpper(strings.TrimSpace(record[0])),
			Date:   date,
			Source: common.PRICE_SOURCE_IMPORT,
		}
		prices := []**float64{&bar.Open, &bar.High, &bar.Low, &bar.Close}
		for i, dst := range prices {
			v, err := parseOptionalFloat(record[2+i])
			if err != nil {
				return nil, fmt.Errorf("line %d, column %s: %w", line, priceBarCSVHeader[2+i], err)
			}
			*dst = v
		}
		if cell := strings.TrimSpace(record[6]); cell != "" {
			volume, err := strconv.ParseInt(cell, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d, column volume: %w", line, err)
			}
			bar.Volume = volume
		}
		key := bar.Symbol + "|" + utils.FormatDate(bar.Date)
		if i, ok := seen[key]; ok {
			bars[i] = bar
			continue
		}
		seen[key] = len(bars)
		bars = append(bars, bar)
	}
	return bars, nil
}

func parseOptionalFloat(cell string) (*float64, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("non-finite price %q", cell)
	}
	return &v, nil
}

// NewStaticSource groups stored bars by symbol for an in-memory run.
func NewStaticSource(rows []model.PriceBar) backtest.StaticSource {
	src := make(backtest.StaticSource)
	for _, row := range rows {
		src[row.Symbol] = append(src[row.Symbol], backtest.PriceBar{
			Symbol: row.Symbol,
			Date:   row.Date,
			Open:   row.Open,
			High:   row.High,
			Low:    row.Low,
			Close:  row.Close,
			Volume: row.Volume,
		})
	}
	return src
}
