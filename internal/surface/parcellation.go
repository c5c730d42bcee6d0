package surface

import "fmt"

// Unlabeled marks a vertex that belongs to no region.
const Unlabeled = ^uint32(0)

// Region is one entry of a parcellation color table.
type Region struct {
	Name  string
	Color [4]uint8
}

// Parcellation assigns each vertex an index into Regions.
type Parcellation struct {
	Labels  []uint32
	Regions []Region
}

// Validate checks the label count and that every label indexes Regions.
func (p *Parcellation) Validate(vertexCount int) error {
	if len(p.Labels) != vertexCount {
		return fmt.Errorf("%w: %d labels for %d vertices", ErrInvalidLabel, len(p.Labels), vertexCount)
	}
	for i, l := range p.Labels {
		if l != Unlabeled && int(l) >= len(p.Regions) {
			return fmt.Errorf("%w: vertex %d has label %d, table has %d regions", ErrInvalidLabel, i, l, len(p.Regions))
		}
	}
	return nil
}

// RegionName returns the region name of a vertex, or "" when unlabeled.
func (p *Parcellation) RegionName(vertex uint32) string {
	if int(vertex) >= len(p.Labels) {
		return ""
	}
	l := p.Labels[vertex]
	if l == Unlabeled || int(l) >= len(p.Regions) {
		return ""
	}
	return p.Regions[l].Name
}
