package backtest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"golang-backtest/pkg/utils"

	goValidator "github.com/go-playground/validator/v10"
)

const (
	StrategyTrendBreakout = "trend_breakout"

	// DateLayout is the wire and hashing format of request dates.
	DateLayout = "2006-01-02"
)

// Request is the normalized input of a single backtest run. Universe order is
// significant: it decides which symbol claims cash first within a bar.
type Request struct {
	StrategyID           string    `json:"strategy_id" validate:"required,oneof=trend_breakout"`
	Universe             []string  `json:"universe" validate:"required,min=1,dive,required"`
	StartDate            time.Time `json:"start" validate:"required"`
	EndDate              time.Time `json:"end" validate:"required,gtefield=StartDate"`
	InitialCapital       float64   `json:"initial_capital" validate:"gt=0"`
	RiskPerTradePct      float64   `json:"risk_per_trade_pct" validate:"gt=0,lte=100"`
	CommissionPct        float64   `json:"commission_pct" validate:"gte=0"`
	MinFee               float64   `json:"min_fee" validate:"gte=0"`
	SlippageBps          float64   `json:"slippage_bps" validate:"gte=0"`
	SpreadBps            float64   `json:"spread_bps" validate:"gte=0"`
	BreakoutLookbackBuy  int       `json:"breakout_lookback_buy" validate:"min=1"`
	BreakoutLookbackSell int       `json:"breakout_lookback_sell" validate:"min=1"`
	ATRMultiplier        float64   `json:"atr_multiplier" validate:"gt=0"`
	UserID               *uint     `json:"user_id,omitempty"`
}

var validate = newValidator()

func newValidator() *goValidator.Validate {
	v := goValidator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Normalize returns a copy of r with symbols trimmed, upper-cased and
// de-duplicated (first occurrence wins), the strategy id lower-cased and the
// dates truncated to UTC midnight.
func (r Request) Normalize() Request {
	out := r
	out.StrategyID = strings.ToLower(strings.TrimSpace(r.StrategyID))

	seen := make(map[string]struct{}, len(r.Universe))
	out.Universe = make([]string, 0, len(r.Universe))
	for _, s := range r.Universe {
		sym := strings.ToUpper(strings.TrimSpace(s))
		if sym == "" {
			continue
		}
		if _, ok := seen[sym]; ok {
			continue
		}
		seen[sym] = struct{}{}
		out.Universe = append(out.Universe, sym)
	}

	out.StartDate = utils.StartOfDayUTC(r.StartDate)
	out.EndDate = utils.StartOfDayUTC(r.EndDate)
	if r.UserID != nil {
		id := *r.UserID
		out.UserID = &id
	}
	return out
}

// Validate normalizes r and checks every field rule. The returned error is
// always of KindValidation.
func Validate(r Request) (Request, error) {
	n := r.Normalize()
	if err := validate.Struct(n); err != nil {
		var fieldErrs goValidator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, describeFieldError(fe))
			}
			return Request{}, NewValidationError("validate", errors.New(strings.Join(msgs, "; ")))
		}
		return Request{}, NewValidationError("validate", err)
	}
	return n, nil
}

func describeFieldError(fe goValidator.FieldError) string {
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("%s: unsupported value %q", fe.Field(), fe.Value())
	case "required":
		return fmt.Sprintf("%s: is required", fe.Field())
	case "gtefield":
		return fmt.Sprintf("%s: must not be before %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s: must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param())
	}
}

// canonicalRequest fixes the field order and the date format of the hashed form.
type canonicalRequest struct {
	StrategyID           string   `json:"strategy_id"`
	Universe             []string `json:"universe"`
	Start                string   `json:"start"`
	End                  string   `json:"end"`
	InitialCapital       float64  `json:"initial_capital"`
	RiskPerTradePct      float64  `json:"risk_per_trade_pct"`
	CommissionPct        float64  `json:"commission_pct"`
	MinFee               float64  `json:"min_fee"`
	SlippageBps          float64  `json:"slippage_bps"`
	SpreadBps            float64  `json:"spread_bps"`
	BreakoutLookbackBuy  int      `json:"breakout_lookback_buy"`
	BreakoutLookbackSell int      `json:"breakout_lookback_sell"`
	ATRMultiplier        float64  `json:"atr_multiplier"`
	UserID               *uint    `json:"user_id"`
}

// CanonicalJSON is the byte form the run hash is computed over.
func (r Request) CanonicalJSON() ([]byte, error) {
	n := r.Normalize()
	return json.Marshal(canonicalRequest{
		StrategyID:           n.StrategyID,
		Universe:             n.Universe,
		Start:                n.StartDate.Format(DateLayout),
		End:                  n.EndDate.Format(DateLayout),
		InitialCapital:       n.InitialCapital,
		RiskPerTradePct:      n.RiskPerTradePct,
		CommissionPct:        n.CommissionPct,
		MinFee:               n.MinFee,
		SlippageBps:          n.SlippageBps,
		SpreadBps:            n.SpreadBps,
		BreakoutLookbackBuy:  n.BreakoutLookbackBuy,
		BreakoutLookbackSell: n.BreakoutLookbackSell,
		ATRMultiplier:        n.ATRMultiplier,
		UserID:               n.UserID,
	})
}

// Hash returns the hex SHA-256 of the canonical JSON form of r.
func (r Request) Hash() (string, error) {
	b, err := r.CanonicalJSON()
	if err != nil {
		return "", fmt.Errorf("failed to encode canonical request: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
