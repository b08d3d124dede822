// internal/board/layout.go
//
// Classic 15x15 premium-square layout and the center star.

package board

// StandardSize is the side length of the classic tile-drafting board.
const StandardSize = 15

// standardLayout lists the premium squares of the classic 15x15 board.
var standardLayout = map[Multiplier][][2]int{
	TripleWord: {{0, 0}, {0, 7}, {0, 14}, {7, 0}, {7, 14}, {14, 0}, {14, 7}, {14, 14}},
	DoubleWord: {{1, 1}, {2, 2}, {3, 3}, {4, 4}, {1, 13}, {2, 12}, {3, 11}, {4, 10},
		{13, 1}, {12, 2}, {11, 3}, {10, 4}, {13, 13}, {12, 12}, {11, 11}, {10, 10}},
	TripleLetter: {{1, 5}, {1, 9}, {5, 1}, {5, 5}, {5, 9}, {5, 13}, {9, 1}, {9, 5}, {9, 9}, {9, 13}, {13, 5}, {13, 9}},
	DoubleLetter: {{0, 3}, {0, 11}, {2, 6}, {2, 8}, {3, 0}, {3, 7}, {3, 14}, {6, 2}, {6, 6}, {6, 8}, {6, 12},
		{7, 3}, {7, 11}, {8, 2}, {8, 6}, {8, 8}, {8, 12}, {11, 0}, {11, 7}, {11, 14}, {12, 6}, {12, 8}, {14, 3}, {14, 11}},
}

// NewStandard returns an empty 15x15 board with the classic multipliers and
// the center star.
func NewStandard() *Grid {
	g := NewSquare(StandardSize)
	for m, coords := range standardLayout {
		for _, rc := range coords {
			g.cells[g.index(Position{Row: rc[0], Col: rc[1]})].Multiplier = m
		}
	}
	center := Position{Row: StandardSize / 2, Col: StandardSize / 2}
	g.cells[g.index(center)].Multiplier = Center
	return g
}

// CenterPosition returns the middle cell of g.
func (g *Grid) CenterPosition() Position {
	return Position{Row: g.rows / 2, Col: g.cols / 2}
}
