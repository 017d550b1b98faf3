package internal

import (
	"strings"

	"golang.org/x/exp/slices"
)

// contentKind tags which variant a Cell's content currently holds: a
// tagged union over empty, text, and formula, dispatched by a type
// switch instead of a virtual call.
type contentKind uint8

const (
	contentEmpty contentKind = iota
	contentText
	contentFormula
)

// Cell is a single grid entry: it holds one of three content variants,
// its last-computed value cache, and the positions it references and
// is referenced by. A Cell holds only Position values to other cells,
// never pointers — all cross-cell lookups happen through its owning
// Sheet.
type Cell struct {
	sheet *Sheet

	kind    contentKind
	text    string     // raw stored text for contentText (includes leading ' escape, if any)
	formula Expression // set iff kind == contentFormula

	cache *CellValue // nil means "must recompute"

	referenced []Position // positions this cell's content names
	dependents []Position // positions of cells that reference this one
}

// newCell constructs an Empty cell owned by sheet.
func newCell(sheet *Sheet) *Cell {
	return &Cell{sheet: sheet, kind: contentEmpty}
}

// Set installs new content parsed from text, classified as follows:
//  1. empty string -> Empty
//  2. len >= 2 and text[0] == '=' -> Formula, parsed from text[1:]
//  3. otherwise -> Text (a leading ' is an escape, stripped only by
//     GetValue, not by GetText)
//
// On a parse failure the Cell is left unmodified and the error is
// returned wrapping ErrParseFormula.
func (c *Cell) Set(text string) error {
	if text == "" {
		c.kind = contentEmpty
		c.text = ""
		c.formula = nil
		c.referenced = nil
		c.clearOwnCache()
		return nil
	}
	if len(text) >= 2 && text[0] == '=' {
		expr, err := ParseFormula(text[1:])
		if err != nil {
			return err
		}
		c.kind = contentFormula
		c.formula = expr
		c.text = "=" + expr.PrintCanonical()
		c.referenced = expr.ReferencedCells()
		c.clearOwnCache()
		return nil
	}
	c.kind = contentText
	c.text = text
	c.formula = nil
	c.referenced = nil
	c.clearOwnCache()
	return nil
}

// Clear resets the cell to Empty, preserving its dependents (clearing
// a cell does not cascade to cells that reference it).
func (c *Cell) Clear() {
	c.kind = contentEmpty
	c.text = ""
	c.formula = nil
	c.referenced = nil
	c.clearOwnCache()
}

// GetValue returns the cached value, computing and storing it first if
// absent. It must never itself invalidate any cache — only Sheet does
// that, during an edit.
func (c *Cell) GetValue() CellValue {
	if c.cache != nil {
		return *c.cache
	}
	v := c.evaluate()
	c.cache = &v
	return v
}

func (c *Cell) evaluate() CellValue {
	switch c.kind {
	case contentEmpty:
		return NumberValue(0)
	case contentText:
		if strings.HasPrefix(c.text, "'") {
			return TextValue(c.text[1:])
		}
		return TextValue(c.text)
	case contentFormula:
		n, ferr := c.formula.Evaluate(c.sheet.lookup)
		if ferr != nil {
			return ErrorValue(ferr)
		}
		return NumberValue(n)
	default:
		return NumberValue(0)
	}
}

// GetText returns the stored text, with the '=' prefix restored for
// formula cells.
func (c *Cell) GetText() string {
	switch c.kind {
	case contentFormula:
		return c.text
	case contentText:
		return c.text
	default:
		return ""
	}
}

// GetReferencedCells returns a snapshot of the positions this cell's
// content names.
func (c *Cell) GetReferencedCells() []Position {
	return append([]Position(nil), c.referenced...)
}

// GetDependentCells returns a snapshot of the positions that reference
// this cell.
func (c *Cell) GetDependentCells() []Position {
	return append([]Position(nil), c.dependents...)
}

// AddDependent records that pos's content references this cell,
// silently ignoring invalid positions and deduplicating against an
// existing entry.
func (c *Cell) AddDependent(pos Position) {
	if !pos.IsValid() {
		return
	}
	if slices.Contains(c.dependents, pos) {
		return
	}
	c.dependents = append(c.dependents, pos)
}

// clearOwnCache sets this cell's cache to "must recompute". Sheet walks
// the dependents closure separately (invalidateFrom); a lone Cell
// never reaches into other cells.
func (c *Cell) clearOwnCache() {
	c.cache = nil
}

// IsEmpty reports whether this cell holds no content at all.
func (c *Cell) IsEmpty() bool {
	return c.kind == contentEmpty
}
