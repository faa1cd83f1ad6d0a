// Package indicator computes technical indicators over daily price series.
//
// Every indicator shares the same lookback-window contract: the output is
// aligned 1:1 by date with the input bars, with an undefined prefix while the
// window is unsatisfied and a deterministic suffix afterwards. Computation is
// purely functional over the input series.
package indicator

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies one of the supported indicator computations.
type Kind string

const (
	KindSMA          Kind = "SMA"
	KindEMA          Kind = "EMA"
	KindPeriodReturn Kind = "RET"
	KindVolatility   Kind = "VOL"
)

// ErrInvalidParameter marks a malformed indicator configuration: unknown
// kind, non-positive window, or a window the series cannot satisfy. It is
// always raised before any computation begins.
var ErrInvalidParameter = errors.New("invalid indicator parameter")

// ErrArithmetic marks a division-by-zero condition met during return or
// volatility computation. It is signaled, never folded into NaN or Inf.
var ErrArithmetic = errors.New("arithmetic signal")

// ArithmeticError reports the index of the bar whose close acted as a zero
// denominator.
type ArithmeticError struct {
	Index int
}

func (e *ArithmeticError) Error() string {
	return fmt.Sprintf("arithmetic signal: zero close used as denominator at index %d", e.Index)
}

func (e *ArithmeticError) Unwrap() error { return ErrArithmetic }

// Config specifies a single indicator to compute. The kind set is closed so
// a whole request can be validated exhaustively up front.
type Config struct {
	Kind   Kind `json:"kind" yaml:"kind"`
	Window int  `json:"window" yaml:"window"`
}

// Name returns the conventional label for this configuration, e.g. "SMA_20".
func (c Config) Name() string {
	return string(c.Kind) + "_" + strconv.Itoa(c.Window)
}

// Validate checks the configuration against a series of the given length.
// Windows that cannot produce a single defined value are rejected.
func (c Config) Validate(seriesLen int) error {
	if c.Window <= 0 {
		return fmt.Errorf("%w: %s: window must be positive, got %d", ErrInvalidParameter, c.Kind, c.Window)
	}
	switch c.Kind {
	case KindSMA, KindEMA:
		if c.Window > seriesLen {
			return fmt.Errorf("%w: %s: window %d exceeds series length %d",
				ErrInvalidParameter, c.Kind, c.Window, seriesLen)
		}
	case KindPeriodReturn:
		if c.Window >= seriesLen {
			return fmt.Errorf("%w: %s: window %d needs at least %d bars, series has %d",
				ErrInvalidParameter, c.Kind, c.Window, c.Window+1, seriesLen)
		}
	case KindVolatility:
		if c.Window < 2 {
			return fmt.Errorf("%w: %s: window %d is degenerate for a sample estimate",
				ErrInvalidParameter, c.Kind, c.Window)
		}
		if c.Window+1 > seriesLen {
			return fmt.Errorf("%w: %s: window %d needs at least %d bars, series has %d",
				ErrInvalidParameter, c.Kind, c.Window, c.Window+1, seriesLen)
		}
	default:
		return fmt.Errorf("%w: unknown indicator kind %q", ErrInvalidParameter, c.Kind)
	}
	return nil
}

// ParseConfig parses a "kind:window" spec like "sma:20" or "vol:10".
func ParseConfig(spec string) (Config, error) {
	kindStr, windowStr, ok := strings.Cut(strings.TrimSpace(spec), ":")
	if !ok {
		return Config{}, fmt.Errorf("%w: %q is not of the form kind:window", ErrInvalidParameter, spec)
	}

	var kind Kind
	switch strings.ToLower(strings.TrimSpace(kindStr)) {
	case "sma":
		kind = KindSMA
	case "ema":
		kind = KindEMA
	case "ret", "return":
		kind = KindPeriodReturn
	case "vol", "volatility":
		kind = KindVolatility
	default:
		return Config{}, fmt.Errorf("%w: unknown indicator kind %q", ErrInvalidParameter, kindStr)
	}

	window, err := strconv.Atoi(strings.TrimSpace(windowStr))
	if err != nil {
		return Config{}, fmt.Errorf("%w: %q has a non-numeric window", ErrInvalidParameter, spec)
	}
	if window <= 0 {
		return Config{}, fmt.Errorf("%w: %s: window must be positive, got %d", ErrInvalidParameter, kind, window)
	}
	return Config{Kind: kind, Window: window}, nil
}

// ParseConfigs parses a list of "kind:window" specs.
func ParseConfigs(specs []string) ([]Config, error) {
	configs := make([]Config, 0, len(specs))
	for _, spec := range specs {
		cfg, err := ParseConfig(spec)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}
