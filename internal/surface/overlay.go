package surface

import (
	"fmt"
	gomath "math"
)

// Overlay is a set of per-vertex statistic volumes sharing one vertex count.
type Overlay struct {
	Volumes [][]float32
	Min     float32
	Max     float32
}

// NewOverlay builds an overlay and computes the global range over all
// volumes, skipping NaN values. All volumes must have the same length.
func NewOverlay(volumes ...[]float32) (*Overlay, error) {
	if len(volumes) == 0 {
		return nil, ErrEmptyOverlay
	}
	n := len(volumes[0])
	lo, hi := float32(gomath.Inf(1)), float32(gomath.Inf(-1))
	for i, vol := range volumes {
		if len(vol) != n {
			return nil, fmt.Errorf("volume %d has %d values, volume 0 has %d", i, len(vol), n)
		}
		for _, v := range vol {
			if gomath.IsNaN(float64(v)) {
				continue
			}
			lo = min(lo, v)
			hi = max(hi, v)
		}
	}
	if lo > hi {
		// Every value was NaN.
		lo, hi = 0, 0
	}
	return &Overlay{Volumes: volumes, Min: lo, Max: hi}, nil
}

// VertexCount returns the number of values per volume.
func (o *Overlay) VertexCount() int {
	if len(o.Volumes) == 0 {
		return 0
	}
	return len(o.Volumes[0])
}

// VolumeCount returns the number of volumes.
func (o *Overlay) VolumeCount() int {
	return len(o.Volumes)
}

// Volume returns the values of volume i.
func (o *Overlay) Volume(i int) ([]float32, error) {
	if i < 0 || i >= len(o.Volumes) {
		return nil, fmt.Errorf("%w: %d of %d", ErrVolumeOutOfRange, i, len(o.Volumes))
	}
	return o.Volumes[i], nil
}

// RangeMode selects how the displayed data range is derived.
type RangeMode int

const (
	RangeAuto RangeMode = iota
	RangeSymmetric
	RangeManual
)

func (m RangeMode) String() string {
	switch m {
	case RangeAuto:
		return "auto"
	case RangeSymmetric:
		return "symmetric"
	case RangeManual:
		return "manual"
	default:
		return fmt.Sprintf("range(%d)", int(m))
	}
}

// RangePolicy maps an overlay to the [min, max] range fed to the colormap.
type RangePolicy struct {
	Mode   RangeMode
	MaxAbs float32
	Min    float32
	Max    float32
}

// Auto uses the overlay's global min and max.
func Auto() RangePolicy {
	return RangePolicy{Mode: RangeAuto}
}

// Symmetric uses [-maxAbs, maxAbs]. A non-positive maxAbs is derived from
// the overlay's largest magnitude.
func Symmetric(maxAbs float32) RangePolicy {
	return RangePolicy{Mode: RangeSymmetric, MaxAbs: maxAbs}
}

// Manual uses a fixed range.
func Manual(lo, hi float32) RangePolicy {
	return RangePolicy{Mode: RangeManual, Min: lo, Max: hi}
}

// Resolve returns the display range for o.
func (p RangePolicy) Resolve(o *Overlay) (lo, hi float32) {
	switch p.Mode {
	case RangeSymmetric:
		m := p.MaxAbs
		if m <= 0 && o != nil {
			m = max(abs32(o.Min), abs32(o.Max))
		}
		return -m, m
	case RangeManual:
		if p.Min > p.Max {
			return p.Max, p.Min
		}
		return p.Min, p.Max
	default:
		if o == nil {
			return 0, 1
		}
		return o.Min, o.Max
	}
}

func abs32(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}
