// Package colormap builds the 1D lookup tables that map a normalized
// overlay value to a color.
package colormap

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Size is the number of entries in every lookup table.
const Size = 256

// ErrUnknownKind is returned when a colormap name is not recognised.
var ErrUnknownKind = errors.New("unknown colormap")

// Kind selects a colormap.
type Kind int

const (
	Viridis Kind = iota
	RdBu
	Hot
	Cividis
	Plasma
)

// Kinds lists every colormap in display order.
func Kinds() []Kind {
	return []Kind{Viridis, RdBu, Hot, Cividis, Plasma}
}

func (k Kind) String() string {
	switch k {
	case Viridis:
		return "viridis"
	case RdBu:
		return "rdbu"
	case Hot:
		return "hot"
	case Cividis:
		return "cividis"
	case Plasma:
		return "plasma"
	default:
		return fmt.Sprintf("colormap(%d)", int(k))
	}
}

// Parse returns the colormap with the given case-insensitive name.
func Parse(name string) (Kind, error) {
	for _, k := range Kinds() {
		if strings.EqualFold(name, k.String()) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

// Control points sampled from the matplotlib definitions. Entries between
// points are interpolated in CIE Lab.
var controls = map[Kind][]string{
	Viridis: {"#440154", "#482878", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"},
	RdBu:    {"#053061", "#2166ac", "#4393c3", "#92c5de", "#d1e5f0", "#f7f7f7", "#fddbc7", "#f4a582", "#d6604d", "#b2182b", "#67001f"},
	Hot:     {"#0b0000", "#4c0000", "#8f0000", "#d20000", "#ff1700", "#ff5a00", "#ff9d00", "#ffe000", "#ffff3a", "#ffffff"},
	Cividis: {"#00224e", "#123570", "#3b496c", "#575d6d", "#707173", "#8a8678", "#a59c74", "#c3b369", "#e1cc55", "#fee838"},
	Plasma:  {"#0d0887", "#41049d", "#6a00a8", "#8f0da4", "#b12a90", "#cc4778", "#e16462", "#f2844b", "#fca636", "#f0f921"},
}

var (
	cacheMu sync.Mutex
	cache   = map[Kind][]byte{}
)

// Table returns the RGBA8 lookup table for k, Size*4 bytes long.
// Tables are built once and shared; callers must not modify them.
func Table(k Kind) ([]byte, error) {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	if t, ok := cache[k]; ok {
		return t, nil
	}
	points, ok := controls[k]
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnknownKind, k)
	}
	stops := make([]colorful.Color, len(points))
	for i, hex := range points {
		c, err := colorful.Hex(hex)
		if err != nil {
			return nil, fmt.Errorf("colormap %v stop %d: %w", k, i, err)
		}
		stops[i] = c
	}

	t := make([]byte, Size*4)
	for i := 0; i < Size; i++ {
		r, g, b := interpolate(stops, float64(i)/float64(Size-1)).Clamped().RGB255()
		t[i*4+0] = r
		t[i*4+1] = g
		t[i*4+2] = b
		t[i*4+3] = 255
	}
	cache[k] = t
	return t, nil
}

// Sample returns the table color for a normalized value, clamping t to [0,1].
func Sample(table []byte, t float32) [4]float32 {
	if t != t || t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	i := int(t*float32(Size-1) + 0.5)
	return [4]float32{
		float32(table[i*4+0]) / 255,
		float32(table[i*4+1]) / 255,
		float32(table[i*4+2]) / 255,
		float32(table[i*4+3]) / 255,
	}
}

func interpolate(stops []colorful.Color, t float64) colorful.Color {
	seg := t * float64(len(stops)-1)
	i := int(seg)
	if i >= len(stops)-1 {
		return stops[len(stops)-1]
	}
	frac := seg - float64(i)
	if frac == 0 {
		return stops[i]
	}
	return stops[i].BlendLab(stops[i+1], frac)
}
