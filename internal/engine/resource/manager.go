// Package resource owns the backend buffers of every loaded surface: mesh,
// overlay scalars, parcellation labels and the colormap lookup table.
//
// Every upload is submitted to the backend before the call returns, and a
// draw only ever sees handles installed after their upload, so dependent
// draws never read an unwritten buffer.
package resource

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/Faultbox/cortexview/internal/engine/colormap"
	"github.com/Faultbox/cortexview/internal/engine/gpu"
	"github.com/Faultbox/cortexview/internal/logger"
	"github.com/Faultbox/cortexview/internal/surface"
)

// Manager owns per-surface backend resources.
type Manager struct {
	backend  gpu.Backend
	surfaces map[surface.ID]*Surface

	colormap  colormap.Kind
	colormaps map[colormap.Kind]gpu.Handle

	generation uint64
	log        *zap.Logger
}

// New creates a manager that uploads through backend.
func New(backend gpu.Backend) *Manager {
	return &Manager{
		backend:   backend,
		surfaces:  make(map[surface.ID]*Surface),
		colormaps: make(map[colormap.Kind]gpu.Handle),
		log:       logger.Named("resource"),
	}
}

// Generation increases on every geometry load or unload. Pick results
// captured under an older generation refer to stale geometry.
func (m *Manager) Generation() uint64 {
	return m.generation
}

// Surface returns the loaded surface with the given id.
func (m *Manager) Surface(id surface.ID) (*Surface, bool) {
	s, ok := m.surfaces[id]
	return s, ok
}

// Surfaces returns every loaded surface ordered by id.
func (m *Manager) Surfaces() []*Surface {
	out := make([]*Surface, 0, len(m.surfaces))
	for _, s := range m.surfaces {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// LoadSurface uploads g into slot id, replacing and releasing anything
// previously loaded there, including overlays bound to the old geometry.
func (m *Manager) LoadSurface(id surface.ID, g *surface.Geometry) error {
	if id >= surface.MaxSurfaces {
		return fmt.Errorf("%w: %d", ErrSurfaceSlot, id)
	}
	if err := g.Validate(); err != nil {
		return err
	}
	mesh, err := m.backend.CreateMesh(g)
	if err != nil {
		return fmt.Errorf("uploading surface %d: %w", id, err)
	}

	if old, ok := m.surfaces[id]; ok {
		m.release(old.handles()...)
	}
	m.surfaces[id] = &Surface{id: id, geometry: g, bounds: g.Bounds(), mesh: mesh}
	m.generation++

	m.log.Info("surface loaded",
		zap.Uint32("id", uint32(id)),
		zap.Stringer("hemisphere", g.Hemisphere),
		zap.Int("vertices", g.VertexCount()),
		zap.Int("triangles", len(g.Triangles)))
	return nil
}

// Unload releases every resource of surface id.
func (m *Manager) Unload(id surface.ID) error {
	s, ok := m.surfaces[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownSurface, id)
	}
	m.release(s.handles()...)
	delete(m.surfaces, id)
	m.generation++
	m.log.Info("surface unloaded", zap.Uint32("id", uint32(id)))
	return nil
}

// BindOverlay uploads one volume of o for surface id with the given range
// policy. On any error the previous overlay stays bound.
func (m *Manager) BindOverlay(id surface.ID, o *surface.Overlay, volume int, policy surface.RangePolicy) error {
	s, ok := m.surfaces[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownSurface, id)
	}
	values, err := o.Volume(volume)
	if err != nil {
		return err
	}
	if len(values) != s.VertexCount() {
		return &VertexCountMismatchError{
			Surface: id,
			What:    fmt.Sprintf("overlay volume %d", volume),
			Want:    s.VertexCount(),
			Got:     len(values),
		}
	}

	h, err := m.backend.CreateScalars(values)
	if err != nil {
		return fmt.Errorf("uploading overlay for surface %d: %w", id, err)
	}
	lo, hi := policy.Resolve(o)
	prev := s.overlay
	s.overlay = &overlayBinding{overlay: o, volume: volume, policy: policy, values: values, lo: lo, hi: hi, handle: h}
	if prev != nil {
		m.release(prev.handle)
	}

	m.log.Debug("overlay bound",
		zap.Uint32("id", uint32(id)),
		zap.Int("volume", volume),
		zap.Stringer("range_mode", policy.Mode),
		zap.Float32("min", lo),
		zap.Float32("max", hi))
	return nil
}

// SetVolume rebinds another volume of the current overlay.
func (m *Manager) SetVolume(id surface.ID, volume int) error {
	s, ok := m.surfaces[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownSurface, id)
	}
	if s.overlay == nil {
		return fmt.Errorf("%w: surface %d", ErrNoOverlay, id)
	}
	return m.BindOverlay(id, s.overlay.overlay, volume, s.overlay.policy)
}

// SetRangePolicy changes the display range of the current overlay without
// re-uploading values.
func (m *Manager) SetRangePolicy(id surface.ID, policy surface.RangePolicy) error {
	s, ok := m.surfaces[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownSurface, id)
	}
	if s.overlay == nil {
		return fmt.Errorf("%w: surface %d", ErrNoOverlay, id)
	}
	s.overlay.policy = policy
	s.overlay.lo, s.overlay.hi = policy.Resolve(s.overlay.overlay)
	return nil
}

// BindParcellation uploads labels and the region color table for surface
// id. On any error the previous parcellation stays bound.
func (m *Manager) BindParcellation(id surface.ID, p *surface.Parcellation) error {
	s, ok := m.surfaces[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownSurface, id)
	}
	if len(p.Labels) != s.VertexCount() {
		return &VertexCountMismatchError{Surface: id, What: "parcellation", Want: s.VertexCount(), Got: len(p.Labels)}
	}
	if err := p.Validate(s.VertexCount()); err != nil {
		return err
	}

	labels, err := m.backend.CreateLabels(p.Labels)
	if err != nil {
		return fmt.Errorf("uploading labels for surface %d: %w", id, err)
	}
	table := make([][4]uint8, len(p.Regions))
	for i, r := range p.Regions {
		table[i] = r.Color
	}
	colors, err := m.backend.CreateColorTable(table)
	if err != nil {
		m.release(labels)
		return fmt.Errorf("uploading color table for surface %d: %w", id, err)
	}

	prev := s.parcellation
	s.parcellation = &parcellationBinding{parcellation: p, labels: labels, colors: colors}
	if prev != nil {
		m.release(prev.labels, prev.colors)
	}
	m.log.Debug("parcellation bound", zap.Uint32("id", uint32(id)), zap.Int("regions", len(p.Regions)))
	return nil
}

// SetColormap selects the active colormap, uploading its table on first use.
func (m *Manager) SetColormap(k colormap.Kind) error {
	if _, ok := m.colormaps[k]; !ok {
		table, err := colormap.Table(k)
		if err != nil {
			return err
		}
		h, err := m.backend.CreateColormap(table)
		if err != nil {
			return fmt.Errorf("uploading colormap %v: %w", k, err)
		}
		m.colormaps[k] = h
	}
	m.colormap = k
	return nil
}

// Colormap returns the active colormap and its handle; the handle is 0
// until SetColormap has been called.
func (m *Manager) Colormap() (colormap.Kind, gpu.Handle) {
	return m.colormap, m.colormaps[m.colormap]
}

// Close releases every resource.
func (m *Manager) Close() {
	for id, s := range m.surfaces {
		m.release(s.handles()...)
		delete(m.surfaces, id)
	}
	for k, h := range m.colormaps {
		m.release(h)
		delete(m.colormaps, k)
	}
}

func (m *Manager) release(handles ...gpu.Handle) {
	for _, h := range handles {
		if h != 0 {
			m.backend.Release(h)
		}
	}
}
