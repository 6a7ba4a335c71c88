package core

// GraphUnweighted is a dense boolean edge matrix over the node set,
// recording which transfers are in flight (or which pairs have line of
// sight, depending on the caller).
type GraphUnweighted struct {
	numNodes uint16
	edges    []bool
}

// NewGraphUnweighted sizes an empty matrix for numNodes nodes.
func NewGraphUnweighted(numNodes uint16) *GraphUnweighted {
	return &GraphUnweighted{
		numNodes: numNodes,
		edges:    make([]bool, int(numNodes)*int(numNodes)),
	}
}

// NumNodes returns the matrix dimension.
func (g *GraphUnweighted) NumNodes() uint16 { return g.numNodes }

// SetEdge sets the directed edge row -> col.
func (g *GraphUnweighted) SetEdge(row, col uint16, value bool) {
	g.edges[int(row)*int(g.numNodes)+int(col)] = value
}

// GetEdge reads the directed edge row -> col.
func (g *GraphUnweighted) GetEdge(row, col uint16) bool {
	return g.edges[int(row)*int(g.numNodes)+int(col)]
}

// Row returns the set of columns with an edge from row.
func (g *GraphUnweighted) Row(row uint16) []uint16 {
	var columns []uint16
	for col := uint16(0); col < g.numNodes; col++ {
		if g.GetEdge(row, col) {
			columns = append(columns, col)
		}
	}
	return columns
}

// Clear resets every edge.
func (g *GraphUnweighted) Clear() {
	for i := range g.edges {
		g.edges[i] = false
	}
}

// TransferRoute marks the consecutive edges of a route as active.
func (g *GraphUnweighted) TransferRoute(route []uint16) {
	for i := 0; i+1 < len(route); i++ {
		g.SetEdge(route[i], route[i+1], true)
	}
}
