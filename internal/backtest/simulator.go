package backtest

import (
	"math"
	"time"
)

type ExitReason string

const (
	ExitStop   ExitReason = "stop"
	ExitSignal ExitReason = "signal"
)

// Position is the single open holding of a symbol.
type Position struct {
	Symbol     string    `json:"symbol"`
	Qty        int64     `json:"qty"`
	EntryPrice float64   `json:"entry_price"`
	EntryCosts float64   `json:"entry_costs"`
	Stop       float64   `json:"stop"`
	EntryDate  time.Time `json:"entry_date"`
	LastClose  float64   `json:"last_close"`
}

// MarketValue marks the position at its last observed close.
func (p Position) MarketValue() float64 {
	return p.LastClose * float64(p.Qty)
}

// Trade is emitted when a position is closed. Costs holds entry plus exit commission;
// slippage and spread are already inside the execution prices.
type Trade struct {
	Symbol     string     `json:"symbol"`
	EntryDate  time.Time  `json:"entry_date"`
	EntryPrice float64    `json:"entry_price"`
	ExitDate   time.Time  `json:"exit_date"`
	ExitPrice  float64    `json:"exit_price"`
	Qty        int64      `json:"qty"`
	PnLGross   float64    `json:"pnl_gross"`
	Costs      float64    `json:"costs"`
	PnLNet     float64    `json:"pnl_net"`
	ExitReason ExitReason `json:"exit_reason"`
}

type EquityPoint struct {
	Date   time.Time `json:"date"`
	Equity float64   `json:"equity"`
}

// CostModel turns a theoretical close into an execution price and a commission.
type CostModel struct {
	CommissionPct float64
	MinFee        float64
	SlippageBps   float64
	SpreadBps     float64
}

func (c CostModel) friction() float64 {
	return (c.SlippageBps + c.SpreadBps) / 10000
}

func (c CostModel) BuyPrice(px float64) float64 {
	return px * (1 + c.friction())
}

func (c CostModel) SellPrice(px float64) float64 {
	return px * (1 - c.friction())
}

func (c CostModel) Commission(price float64, qty int64) float64 {
	return math.Max(price*float64(qty)*c.CommissionPct/100, c.MinFee)
}

// Simulator holds the mutable state of one run: cash, the position table
// indexed like the universe, and the accumulated outputs. It is not safe for
// concurrent use; independent runs use independent simulators.
type Simulator struct {
	req       Request
	costs     CostModel
	series    []Series
	cursor    []int
	positions []*Position

	cash            float64
	trades          []Trade
	equity          []EquityPoint
	exposedBars     int
	rejectedEntries int
}

// NewSimulator prepares a run over series, which must follow the order of req.Universe.
func NewSimulator(req Request, series []Series) *Simulator {
	return &Simulator{
		req: req,
		costs: CostModel{
			CommissionPct: req.CommissionPct,
			MinFee:        req.MinFee,
			SlippageBps:   req.SlippageBps,
			SpreadBps:     req.SpreadBps,
		},
		series:    series,
		cursor:    make([]int, len(series)),
		positions: make([]*Position, len(series)),
		cash:      req.InitialCapital,
	}
}

// Run steps through every date of timeline in order.
func (s *Simulator) Run(timeline []time.Time) {
	for _, date := range timeline {
		s.Step(date)
	}
}

// Step processes one date for every symbol in universe order and appends an
// equity point. Dates must be passed in strictly increasing order.
func (s *Simulator) Step(date time.Time) {
	for i := range s.series {
		s.stepSymbol(i, date)
	}

	valuation, exposed := 0.0, false
	for _, pos := range s.positions {
		if pos == nil {
			continue
		}
		valuation += pos.MarketValue()
		exposed = true
	}
	if exposed {
		s.exposedBars++
	}
	s.equity = append(s.equity, EquityPoint{Date: date, Equity: s.cash + valuation})
}

func (s *Simulator) stepSymbol(i int, date time.Time) {
	bars := s.series[i].Bars
	idx := s.cursor[i]
	for idx < len(bars) && bars[idx].Date.Before(date) {
		idx++
	}
	if idx >= len(bars) || !bars[idx].Date.Equal(date) {
		s.cursor[i] = idx
		return
	}
	s.cursor[i] = idx + 1

	px, ok := bars[idx].ClosePrice()
	if !ok {
		return
	}

	if pos := s.positions[i]; pos != nil {
		pos.LastClose = px
		if reason, ok := s.exitReason(bars, idx, pos, px); ok {
			s.exit(i, date, px, reason)
		}
	}
	if s.positions[i] == nil {
		s.enter(i, bars, idx, date, px)
	}
}

func (s *Simulator) exitReason(bars []PriceBar, idx int, pos *Position, px float64) (ExitReason, bool) {
	if px <= pos.Stop {
		return ExitStop, true
	}
	if lowest, ok := Lowest(bars, idx, s.req.BreakoutLookbackSell); ok && px < lowest {
		return ExitSignal, true
	}
	return "", false
}

func (s *Simulator) exit(i int, date time.Time, px float64, reason ExitReason) {
	pos := s.positions[i]
	price := s.costs.SellPrice(px)
	commission := s.costs.Commission(price, pos.Qty)
	gross := (price - pos.EntryPrice) * float64(pos.Qty)

	s.cash += price*float64(pos.Qty) - commission
	s.trades = append(s.trades, Trade{
		Symbol:     pos.Symbol,
		EntryDate:  pos.EntryDate,
		EntryPrice: pos.EntryPrice,
		ExitDate:   date,
		ExitPrice:  price,
		Qty:        pos.Qty,
		PnLGross:   gross,
		Costs:      pos.EntryCosts + commission,
		PnLNet:     gross - pos.EntryCosts - commission,
		ExitReason: reason,
	})
	s.positions[i] = nil
}

func (s *Simulator) enter(i int, bars []PriceBar, idx int, date time.Time, px float64) {
	highest, ok := Highest(bars, idx, s.req.BreakoutLookbackBuy)
	if !ok || px <= highest {
		return
	}

	var stop float64
	if atr, ok := ATR(bars, idx, ATRPeriod); ok {
		stop = px - s.req.ATRMultiplier*atr
	} else if lowest, ok := Lowest(bars, idx, s.req.BreakoutLookbackSell); ok {
		stop = lowest
	} else {
		return
	}
	if stop >= px {
		return
	}

	risk := s.cash * s.req.RiskPerTradePct / 100
	units := math.Floor(risk / (px - stop))
	if units < 1 || units > math.MaxInt64/2 {
		s.rejectedEntries++
		return
	}
	qty := int64(units)

	price := s.costs.BuyPrice(px)
	commission := s.costs.Commission(price, qty)
	total := price*float64(qty) + commission
	if s.cash < total {
		s.rejectedEntries++
		return
	}

	s.cash -= total
	s.positions[i] = &Position{
		Symbol:     s.series[i].Symbol,
		Qty:        qty,
		EntryPrice: price,
		EntryCosts: commission,
		Stop:       stop,
		EntryDate:  date,
		LastClose:  px,
	}
}

func (s *Simulator) Cash() float64 {
	return s.cash
}

func (s *Simulator) Trades() []Trade {
	return s.trades
}

func (s *Simulator) Equity() []EquityPoint {
	return s.equity
}

// ExposedBars counts the dates that ended with at least one open position.
func (s *Simulator) ExposedBars() int {
	return s.exposedBars
}

// RejectedEntries counts breakouts that were not opened for lack of size or cash.
func (s *Simulator) RejectedEntries() int {
	return s.rejectedEntries
}

// OpenPositions returns the positions still held, in universe order.
func (s *Simulator) OpenPositions() []Position {
	var out []Position
	for _, pos := range s.positions {
		if pos != nil {
			out = append(out, *pos)
		}
	}
	return out
}
