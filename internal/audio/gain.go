package audio

import (
	"fmt"
	"math"
	"strings"
	"sync/atomic"
)

const (
	MinGainPercent = 0
	MaxGainPercent = 200
)

// GainStage 音量级，在音频图生命周期内常驻；值可在渲染线程运行时原子更新
type GainStage struct {
	bits atomic.Uint64
}

func NewGainStage(value float64) *GainStage {
	g := &GainStage{}
	g.Set(value)
	return g
}

func (g *GainStage) Set(value float64) {
	if value < 0 || math.IsNaN(value) {
		value = 0
	}
	g.bits.Store(math.Float64bits(value))
}

func (g *GainStage) Value() float64 {
	return math.Float64frombits(g.bits.Load())
}

// Curve 把 0-200 的百分比映射为线性幅度倍数。必须单调不减，且 Curve(100) == 1
type Curve func(percent float64) float64

// LinearCurve 0% -> 0.0, 100% -> 1.0, 200% -> 2.0
func LinearCurve(percent float64) float64 {
	return clampPercent(percent) / 100
}

// CubicCurve 感知音量曲线，(p/100)^3
func CubicCurve(percent float64) float64 {
	v := clampPercent(percent) / 100
	return v * v * v
}

func CurveByName(name string) (Curve, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "linear":
		return LinearCurve, nil
	case "cubic":
		return CubicCurve, nil
	default:
		return nil, fmt.Errorf("unknown gain curve: %s", name)
	}
}

// EffectiveGain active ? curve(percent) : 0
func EffectiveGain(curve Curve, active bool, percent float64) float64 {
	if !active {
		return 0
	}
	if curve == nil {
		curve = LinearCurve
	}
	return curve(percent)
}

func clampPercent(percent float64) float64 {
	if math.IsNaN(percent) || percent < MinGainPercent {
		return MinGainPercent
	}
	if percent > MaxGainPercent {
		return MaxGainPercent
	}
	return percent
}
