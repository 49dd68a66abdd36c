package world

// snakeOffsets walks the eight neighbors as a closed ring: down the left
// column, across the far row, up the right column, and back along the near
// row. Slot 7 is adjacent to slot 0, which the run-length scan relies on.
var snakeOffsets = [8][2]int{
	{-1, -1},
	{-1, 0},
	{-1, 1},
	{0, 1},
	{1, 1},
	{1, 0},
	{1, -1},
	{0, -1},
}

// Snake samples the neighbor ring of c in snake order. Empty cells become
// Absent. Offsets that leave the grid wrap only under BoundaryTorus on a
// toroidal grid; otherwise they are Absent on every edge. On a torus
// narrower than 3 cells two slots can name the same cell.
func (g *Grid) Snake(c Coord, b Boundary) Ring {
	wrap := b == BoundaryTorus && g.Torus
	var r Ring
	for i, off := range snakeOffsets {
		nc := c.Add(off[0], off[1])
		if !g.InBounds(nc) {
			if !wrap {
				r[i] = Absent
				continue
			}
			nc = g.Wrap(nc)
		}
		if o, ok := g.OccupantAt(nc); ok {
			r[i] = Present(o.Kind)
		}
	}
	return r
}
