package trace

import (
	"fmt"
	"strings"
)

type Mode int

const (
	ModeSpline Mode = iota
	ModePolygon
)

func (m Mode) String() string {
	switch m {
	case ModePolygon:
		return "polygon"
	default:
		return "spline"
	}
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "spline":
		return ModeSpline, nil
	case "polygon":
		return ModePolygon, nil
	default:
		return ModeSpline, fmt.Errorf("unsupported trace mode: %s", s)
	}
}

// Params are fixed tuning constants rather than per-image values so traces
// stay stable across inputs.
type Params struct {
	// FilterSpeckle merges regions smaller than FilterSpeckle² pixels into
	// their dominant neighbor.
	FilterSpeckle int
	// ColorPrecision is the number of significant bits kept per channel.
	ColorPrecision int
	// LayerDifference merges adjacent regions whose mean colors differ by
	// less than this on every channel.
	LayerDifference int
	Mode            Mode
	// CornerThreshold is the turning angle in degrees above which a vertex
	// keeps a sharp corner.
	CornerThreshold float64
	// LengthThreshold drops smooth vertices whose adjacent segments are both
	// shorter than this.
	LengthThreshold float64
	// MaxIterations bounds curve refitting depth.
	MaxIterations int
	// SpliceThreshold is the accumulated turning in degrees one curve may
	// span.
	SpliceThreshold float64
	// PathPrecision is the number of decimals in path data.
	PathPrecision int
}

func DefaultParams() Params {
	return Params{
		FilterSpeckle:   16,
		ColorPrecision:  5,
		LayerDifference: 16,
		Mode:            ModeSpline,
		CornerThreshold: 60,
		LengthThreshold: 4.0,
		MaxIterations:   10,
		SpliceThreshold: 45,
		PathPrecision:   2,
	}
}

func (p Params) quantShift() uint {
	precision := min(max(p.ColorPrecision, 1), 8)
	return uint(8 - precision)
}
