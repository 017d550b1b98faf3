package internal

import (
	"fmt"
	"io"

	"golang.org/x/exp/maps"
)

// Sheet is the top-level container: it owns all cells keyed by
// Position, orchestrates edits (parse -> cycle-check -> commit -> wire
// dependencies -> invalidate caches), maintains the printable-region
// bounding box, and exposes read/print operations.
//
// The walk algorithms (cycle detection, cache invalidation) use an
// explicit worklist with a visited set rather than recursion, so they
// don't blow the stack on a long dependency chain.
type Sheet struct {
	cells map[Position]*Cell

	topLeft     Position
	bottomRight Position
}

// NewSheet constructs an empty Sheet.
func NewSheet() *Sheet {
	return &Sheet{
		cells:       make(map[Position]*Cell),
		topLeft:     NONE,
		bottomRight: NONE,
	}
}

// CreateSheet is an alias for NewSheet.
func CreateSheet() *Sheet {
	return NewSheet()
}

// SetCell parses text into a trial cell, rejects it if installing it
// would introduce a circular reference, and otherwise commits it at
// pos: wiring dependencies (auto-creating Empty placeholders for
// referenced positions that don't yet exist), updating the bounding
// box, and invalidating the cache of pos and everything transitively
// dependent on it.
func (s *Sheet) SetCell(pos Position, text string) error {
	if !pos.IsValid() {
		return fmt.Errorf("%w: %s", ErrInvalidPosition, pos)
	}

	trial := newCell(s)
	if err := trial.Set(text); err != nil {
		return err
	}

	if s.hasCycle(trial, pos) {
		return fmt.Errorf("%w: setting %s would create a cycle", ErrCircularDependency, pos)
	}

	// A cell's dependents belong to its position, not its content:
	// carry them over from whatever used to live at pos.
	if existing, existed := s.cells[pos]; existed {
		trial.dependents = existing.dependents
	} else {
		// pos may have been cleared while other cells still reference it;
		// recover those dependents from their referenced lists.
		for p, c := range s.cells {
			for _, ref := range c.referenced {
				if ref == pos {
					trial.AddDependent(p)
					break
				}
			}
		}
	}

	// Formulas may name the same position more than once (e.g. "=A1+A1");
	// dedup through a set before wiring so each referenced cell is only
	// touched once per edit.
	refSet := make(map[Position]struct{}, len(trial.referenced))
	for _, ref := range trial.referenced {
		if ref.IsValid() {
			refSet[ref] = struct{}{}
		}
	}
	for _, ref := range maps.Keys(refSet) {
		refCell, ok := s.cells[ref]
		if !ok {
			refCell = newCell(s)
			s.cells[ref] = refCell
			s.updateCorners(ref)
		}
		refCell.AddDependent(pos)
	}

	_, existed := s.cells[pos]
	s.cells[pos] = trial
	if !existed {
		s.updateCorners(pos)
	}

	s.invalidateFrom(pos)
	return nil
}

// hasCycle reports whether installing trial at target would introduce
// a cycle: a BFS over trial's referenced set, following each visited
// cell's referenced edges, looking for a path back to target. Invalid
// positions are terminal (no outgoing edges).
func (s *Sheet) hasCycle(trial *Cell, target Position) bool {
	queue := append([]Position(nil), trial.referenced...)
	visited := make(map[Position]struct{}, len(queue))
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == target {
			return true
		}
		if _, seen := visited[cur]; seen {
			continue
		}
		visited[cur] = struct{}{}
		if !cur.IsValid() {
			continue
		}
		if cell, ok := s.cells[cur]; ok {
			queue = append(queue, cell.referenced...)
		}
	}
	return false
}

// invalidateFrom clears the cache of start and, transitively, of
// every position reachable by following dependents edges, guarding
// with a visited set against duplicate edges.
func (s *Sheet) invalidateFrom(start Position) {
	queue := []Position{start}
	visited := make(map[Position]struct{})
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if _, seen := visited[cur]; seen {
			continue
		}
		visited[cur] = struct{}{}
		cell, ok := s.cells[cur]
		if !ok {
			continue
		}
		cell.clearOwnCache()
		queue = append(queue, cell.dependents...)
	}
}

// lookup is the closure passed to Expression.Evaluate: an invalid
// position raises Ref, a missing cell resolves to 0.0, otherwise the
// referenced cell's value is coerced to a number (Text parsed as
// decimal or Value error; Error propagates verbatim).
func (s *Sheet) lookup(pos Position) (float64, *FormulaError) {
	if !pos.IsValid() {
		return 0, NewFormulaError(ErrRef)
	}
	cell, ok := s.cells[pos]
	if !ok {
		return 0, nil
	}
	return cell.GetValue().AsNumber()
}

// GetCell returns the cell at pos, or nil if none exists.
func (s *Sheet) GetCell(pos Position) (*Cell, error) {
	if !pos.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPosition, pos)
	}
	return s.cells[pos], nil
}

// ClearCell removes the cell at pos, first invalidating the cache of
// everything transitively dependent on it. It does not rewire any other
// cell's referenced/dependents lists; a later reference to pos simply
// observes "no cell".
func (s *Sheet) ClearCell(pos Position) error {
	if !pos.IsValid() {
		return fmt.Errorf("%w: %s", ErrInvalidPosition, pos)
	}
	if _, ok := s.cells[pos]; !ok {
		return nil
	}
	s.invalidateFrom(pos)
	delete(s.cells, pos)

	if len(s.cells) == 0 {
		s.topLeft, s.bottomRight = NONE, NONE
		return nil
	}
	if pos.Row == s.bottomRight.Row || pos.Col == s.bottomRight.Col ||
		pos.Row == s.topLeft.Row || pos.Col == s.topLeft.Col {
		s.recomputeCorners()
	}
	return nil
}

// updateCorners extends the bounding box to include pos.
func (s *Sheet) updateCorners(pos Position) {
	if s.topLeft == NONE {
		s.topLeft, s.bottomRight = pos, pos
		return
	}
	if pos.Row < s.topLeft.Row {
		s.topLeft.Row = pos.Row
	}
	if pos.Row > s.bottomRight.Row {
		s.bottomRight.Row = pos.Row
	}
	if pos.Col < s.topLeft.Col {
		s.topLeft.Col = pos.Col
	}
	if pos.Col > s.bottomRight.Col {
		s.bottomRight.Col = pos.Col
	}
}

// recomputeCorners scans all occupied positions and takes the
// elementwise minimum/maximum of row and column.
func (s *Sheet) recomputeCorners() {
	first := true
	var minP, maxP Position
	for p := range s.cells {
		if first {
			minP, maxP = p, p
			first = false
			continue
		}
		if p.Row < minP.Row {
			minP.Row = p.Row
		}
		if p.Col < minP.Col {
			minP.Col = p.Col
		}
		if p.Row > maxP.Row {
			maxP.Row = p.Row
		}
		if p.Col > maxP.Col {
			maxP.Col = p.Col
		}
	}
	s.topLeft, s.bottomRight = minP, maxP
}

// GetPrintableSize returns the extent of the bounding box, or (0, 0)
// when the sheet is empty.
func (s *Sheet) GetPrintableSize() Size {
	if s.topLeft == NONE {
		return Size{}
	}
	return Size{
		Rows: s.bottomRight.Row - s.topLeft.Row + 1,
		Cols: s.bottomRight.Col - s.topLeft.Col + 1,
	}
}

// cellProjector renders one cell's contribution to a Print* row.
type cellProjector func(*Cell) string

// print walks the bounding box row-major, writing each occupied
// cell's projection, tab-separated within a row and newline-terminated
// at end-of-row. Absent cells print as the empty string. The walk is
// by explicit row/col loops, never by ranging over the cell map, so
// output is deterministic despite Go's randomized map iteration order.
func (s *Sheet) print(w io.Writer, project cellProjector) error {
	if s.topLeft == NONE {
		return nil
	}
	for row := s.topLeft.Row; row <= s.bottomRight.Row; row++ {
		for col := s.topLeft.Col; col <= s.bottomRight.Col; col++ {
			if col > s.topLeft.Col {
				if _, err := io.WriteString(w, "\t"); err != nil {
					return err
				}
			}
			if cell, ok := s.cells[Position{Row: row, Col: col}]; ok {
				if _, err := io.WriteString(w, project(cell)); err != nil {
					return err
				}
			}
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}

// PrintValues writes each cell's evaluated value to w.
func (s *Sheet) PrintValues(w io.Writer) error {
	return s.print(w, func(c *Cell) string { return c.GetValue().String() })
}

// PrintTexts writes each cell's stored text to w.
func (s *Sheet) PrintTexts(w io.Writer) error {
	return s.print(w, func(c *Cell) string { return c.GetText() })
}
