// Package features widens the trade series into the derived feature table.
// Columns are float64 slices keyed by name; NaN marks a missing value, and a
// rule that calls for an explicit zero stores 0. Base trade fields stay in
// the series and are never mutated here.
package features

import (
	"fmt"

	"trade-audit/internal/series"
)

// Table is the event series plus its derived columns. Columns keep insertion
// order and are append-only; a column length must match the series length.
type Table struct {
	src     *series.Series
	names   []string
	columns map[string][]float64
}

// NewTable wraps a series with an empty column set.
func NewTable(s *series.Series) *Table {
	return &Table{
		src:     s,
		columns: make(map[string][]float64),
	}
}

// Series exposes the underlying read-only series.
func (t *Table) Series() *series.Series {
	return t.src
}

// Len returns the row count, equal to the series length by construction.
func (t *Table) Len() int {
	return t.src.Len()
}

// AddColumn appends a named column. Redefining a name or supplying a column
// of the wrong length is a programming error and is rejected.
func (t *Table) AddColumn(name string, values []float64) error {
	if len(values) != t.src.Len() {
		return fmt.Errorf("features: column %q has %d rows, series has %d", name, len(values), t.src.Len())
	}
	if _, exists := t.columns[name]; exists {
		return fmt.Errorf("features: column %q already defined", name)
	}
	t.names = append(t.names, name)
	t.columns[name] = values
	return nil
}

// Column returns the named column and whether it exists.
func (t *Table) Column(name string) ([]float64, bool) {
	col, ok := t.columns[name]
	return col, ok
}

// MustColumn returns the named column or panics. Reserved for callers that
// just built the table and know its schema.
func (t *Table) MustColumn(name string) []float64 {
	col, ok := t.columns[name]
	if !ok {
		panic(fmt.Sprintf("features: column %q not present", name))
	}
	return col
}

// Names returns column names in insertion order.
func (t *Table) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// columnSet is the private output of one feature producer. Producers run
// concurrently, each building its own set, and the engine merges the sets
// after all of them finish.
type columnSet struct {
	names  []string
	values map[string][]float64
}

func newColumnSet() *columnSet {
	return &columnSet{values: make(map[string][]float64)}
}

func (c *columnSet) add(name string, vals []float64) {
	c.names = append(c.names, name)
	c.values[name] = vals
}

func (t *Table) merge(c *columnSet) error {
	for _, name := range c.names {
		if err := t.AddColumn(name, c.values[name]); err != nil {
			return err
		}
	}
	return nil
}
