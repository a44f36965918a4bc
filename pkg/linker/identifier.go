package linker

import "github.com/tdebruin/celltrack/pkg/lineage"

// positionTable assigns stable integer ids to positions for the duration of
// one compile-and-solve cycle, and maps solver results back to positions.
type positionTable struct {
	positionToID map[lineage.Position]int
	idToPosition []lineage.Position
}

func newPositionTable() *positionTable {
	return &positionTable{
		positionToID: make(map[lineage.Position]int),
	}
}

// ID returns the id of the position, assigning a new one on first use.
func (t *positionTable) ID(p lineage.Position) int {
	if id, ok := t.positionToID[p]; ok {
		return id
	}
	id := len(t.idToPosition)
	t.idToPosition = append(t.idToPosition, p)
	t.positionToID[p] = id
	return id
}

// Position returns the position with the given id.
func (t *positionTable) Position(id int) (lineage.Position, bool) {
	if id < 0 || id >= len(t.idToPosition) {
		return lineage.Position{}, false
	}
	return t.idToPosition[id], true
}

func (t *positionTable) Len() int {
	return len(t.idToPosition)
}
