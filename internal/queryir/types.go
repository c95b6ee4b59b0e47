package queryir

// Predicate represents a filter over catalog cells.
//
// Predicate types:
//   - Equals: cell equals a value
//   - Contains: cell contains a value
//   - And: all predicates must be true
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Select reads the rows of one catalog table.
//
// Semantics:
//
//	rows of <Table> WHERE <Filter>
//
// An empty Table selects rows from every table. A nil Filter keeps every
// row. Limit caps the number of rows; zero means no limit.
type Select struct {
	Table  string
	Filter Predicate
	Limit  int
}

// Equals matches rows whose cell in Column equals Value.
// A row without the column never matches.
type Equals struct {
	Column string
	Value  string
}

func (Equals) predicateNode() {}

// Contains matches rows whose cell in Column contains Value, the way norm
// certification cells such as "UL / IEC" are matched.
type Contains struct {
	Column string
	Value  string
}

func (Contains) predicateNode() {}

// And represents a conjunction of predicates (all must be true).
// An empty And is always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Where builds a Select on table with one Equals per column/value pair.
// Pairs are applied in the given order.
func Where(table string, pairs ...[2]string) Select {
	sel := Select{Table: table}
	if len(pairs) == 0 {
		return sel
	}
	and := And{Predicates: make([]Predicate, 0, len(pairs))}
	for _, p := range pairs {
		and.Predicates = append(and.Predicates, Equals{Column: p[0], Value: p[1]})
	}
	sel.Filter = and
	return sel
}
