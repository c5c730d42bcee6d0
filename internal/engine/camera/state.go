package camera

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/Faultbox/cortexview/pkg/math"
)

// ErrInvalidState is returned when a shared view cannot be decoded.
var ErrInvalidState = errors.New("invalid camera state")

// State is the saved form of a camera, suitable for sharing in a URL.
type State struct {
	Distance  float32   `json:"distance"`
	Azimuth   float32   `json:"azimuth"`
	Elevation float32   `json:"elevation"`
	Target    math.Vec3 `json:"target"`
}

// State returns the current camera state.
func (c *OrbitCamera) State() State {
	return State{Distance: c.Distance, Azimuth: c.Theta, Elevation: c.Phi, Target: c.Target}
}

// Restore applies a saved state, clamping distance and elevation.
// Non-finite fields leave the current value in place.
func (c *OrbitCamera) Restore(s State) {
	if finite(s.Distance) {
		c.Distance = clamp(s.Distance, MinDistance, MaxDistance)
	}
	if finite(s.Azimuth) {
		c.Theta = s.Azimuth
	}
	if finite(s.Elevation) {
		c.Phi = clamp(s.Elevation, MinPhi, MaxPhi)
	}
	if s.Target.IsFinite() {
		c.Target = s.Target
	}
}

// Query keys.
const (
	keyDistance  = "distance"
	keyAzimuth   = "azimuth"
	keyElevation = "elevation"
	keyTargetX   = "tx"
	keyTargetY   = "ty"
	keyTargetZ   = "tz"
)

// Encode returns the state as URL query values.
func (s State) Encode() url.Values {
	v := url.Values{}
	set := func(key string, f float32) {
		v.Set(key, strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	set(keyDistance, s.Distance)
	set(keyAzimuth, s.Azimuth)
	set(keyElevation, s.Elevation)
	set(keyTargetX, s.Target.X)
	set(keyTargetY, s.Target.Y)
	set(keyTargetZ, s.Target.Z)
	return v
}

// DecodeState parses query values written by Encode. Distance, azimuth and
// elevation are required; a missing target component is zero.
func DecodeState(v url.Values) (State, error) {
	var s State
	fields := []struct {
		key      string
		dst      *float32
		required bool
	}{
		{keyDistance, &s.Distance, true},
		{keyAzimuth, &s.Azimuth, true},
		{keyElevation, &s.Elevation, true},
		{keyTargetX, &s.Target.X, false},
		{keyTargetY, &s.Target.Y, false},
		{keyTargetZ, &s.Target.Z, false},
	}
	for _, f := range fields {
		raw := v.Get(f.key)
		if raw == "" {
			if f.required {
				return State{}, fmt.Errorf("%w: missing %s", ErrInvalidState, f.key)
			}
			continue
		}
		parsed, err := strconv.ParseFloat(raw, 32)
		if err != nil || !finite(float32(parsed)) {
			return State{}, fmt.Errorf("%w: %s=%q", ErrInvalidState, f.key, raw)
		}
		*f.dst = float32(parsed)
	}
	return s, nil
}
