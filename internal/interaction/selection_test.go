package interaction

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ref(v uint32) VertexRef {
	return VertexRef{Surface: 0, Vertex: v}
}

func TestSetSingleReplacesEverything(t *testing.T) {
	var s Selection
	s.AddVertex(ref(1))
	s.AddVertex(ref(2))
	s.AddRegion("insula")

	s.SetSingle(ref(9))

	assert.Equal(t, []VertexRef{ref(9)}, s.Vertices())
	assert.Empty(t, s.Regions())
	p, ok := s.Primary()
	require.True(t, ok)
	assert.Equal(t, ref(9), p)
}

func TestAddVertexNoDuplicates(t *testing.T) {
	var s Selection
	s.AddVertex(ref(1))
	s.AddVertex(ref(2))
	s.AddVertex(ref(1))

	assert.Equal(t, []VertexRef{ref(2), ref(1)}, s.Vertices())
	p, _ := s.Primary()
	assert.Equal(t, ref(1), p, "re-adding makes the vertex primary")
}

func TestSameVertexOnOtherSurfaceIsDistinct(t *testing.T) {
	var s Selection
	s.AddVertex(VertexRef{Surface: 0, Vertex: 5})
	s.AddVertex(VertexRef{Surface: 1, Vertex: 5})
	assert.Len(t, s.Vertices(), 2)
}

func TestRemovePrimaryReassigns(t *testing.T) {
	var s Selection
	s.AddVertex(ref(1))
	s.AddVertex(ref(2))
	s.AddVertex(ref(3))

	assert.True(t, s.RemoveVertex(ref(3)))
	p, ok := s.Primary()
	require.True(t, ok)
	assert.Equal(t, ref(2), p)

	assert.False(t, s.RemoveVertex(ref(3)), "second removal is a no-op")

	s.RemoveVertex(ref(1))
	s.RemoveVertex(ref(2))
	_, ok = s.Primary()
	assert.False(t, ok, "empty selection has no primary")
}

func TestToggleVertex(t *testing.T) {
	var s Selection
	assert.True(t, s.ToggleVertex(ref(4)))
	assert.True(t, s.Contains(ref(4)))
	assert.False(t, s.ToggleVertex(ref(4)))
	assert.False(t, s.Contains(ref(4)))
	assert.True(t, s.Empty())
}

func TestToggleMemberTwiceKeepsPrimary(t *testing.T) {
	var s Selection
	s.AddVertex(ref(1))
	s.AddVertex(ref(2))

	assert.False(t, s.ToggleVertex(ref(1)))
	assert.True(t, s.ToggleVertex(ref(1)))

	assert.Equal(t, []VertexRef{ref(1), ref(2)}, s.Vertices())
	p, _ := s.Primary()
	assert.Equal(t, ref(2), p)
}

func TestToggleAfterOtherChangeAppends(t *testing.T) {
	var s Selection
	s.AddVertex(ref(1))
	s.AddVertex(ref(2))
	s.ToggleVertex(ref(1))
	s.AddVertex(ref(3))
	s.ToggleVertex(ref(1))

	assert.Equal(t, []VertexRef{ref(2), ref(3), ref(1)}, s.Vertices())
}

func TestToggleTwiceRestores(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 500; i++ {
		var s Selection
		n := rng.Intn(6)
		for j := 0; j < n; j++ {
			s.AddVertex(ref(uint32(rng.Intn(8))))
		}
		if rng.Intn(3) == 0 {
			s.AddRegion("insula")
		}
		before := s.Clone()

		// Any vertex round-trips, member or not.
		v := ref(uint32(rng.Intn(12)))
		s.ToggleVertex(v)
		s.ToggleVertex(v)
		require.True(t, before.Equal(&s), "toggle %v twice changed %v into %v", v, before.Vertices(), s.Vertices())
		bp, bok := before.Primary()
		p, ok := s.Primary()
		assert.Equal(t, bok, ok)
		assert.Equal(t, bp, p)
	}
}

func TestPrimaryAlwaysMember(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	var s Selection
	for i := 0; i < 5000; i++ {
		v := ref(uint32(rng.Intn(10)))
		switch rng.Intn(5) {
		case 0:
			s.SetSingle(v)
		case 1:
			s.AddVertex(v)
		case 2:
			s.RemoveVertex(v)
		case 3:
			s.ToggleVertex(v)
		case 4:
			if rng.Intn(10) == 0 {
				s.Clear()
			}
		}
		if p, ok := s.Primary(); ok {
			require.True(t, s.Contains(p), "step %d: primary %v not a member", i, p)
		} else {
			require.Empty(t, s.Vertices(), "step %d: members without a primary", i)
		}
		seen := map[VertexRef]bool{}
		for _, m := range s.Vertices() {
			require.False(t, seen[m], "step %d: duplicate %v", i, m)
			seen[m] = true
		}
	}
}

func TestRegions(t *testing.T) {
	var s Selection
	s.AddRegion("precentral")
	s.AddRegion("insula")
	s.AddRegion("insula")
	s.AddRegion("")
	assert.Equal(t, []string{"insula", "precentral"}, s.Regions())

	assert.False(t, s.ToggleRegion("insula"))
	assert.False(t, s.HasRegion("insula"))
	assert.True(t, s.ToggleRegion("insula"))
	assert.False(t, s.ToggleRegion(""), "empty names are never selected")

	assert.True(t, s.RemoveRegion("precentral"))
	assert.False(t, s.RemoveRegion("precentral"))
}

func TestCloneIsIndependent(t *testing.T) {
	var s Selection
	s.AddVertex(ref(1))
	s.AddRegion("insula")
	c := s.Clone()

	s.AddVertex(ref(2))
	s.SetSingle(ref(3))

	assert.Equal(t, []VertexRef{ref(1)}, c.Vertices())
	assert.Equal(t, []string{"insula"}, c.Regions())
	assert.False(t, c.Equal(&s))
}
