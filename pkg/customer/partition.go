package customer

import (
	"sort"
)

// Accumulator collects rows in fetch order and counts dedup keys.
// It is owned by a single goroutine.
type Accumulator struct {
	rows   []Row
	counts map[string]int
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{counts: make(map[string]int)}
}

// AddRecords converts raw list entries to rows, skipping entries that are
// not objects, and returns how many rows were added.
func (a *Accumulator) AddRecords(items []any) int {
	added := 0
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		a.Add(NewRow(Record(m)))
		added++
	}
	return added
}

// Add appends one row.
func (a *Accumulator) Add(row Row) {
	a.rows = append(a.rows, row)
	if row.Key != "" {
		a.counts[row.Key]++
	}
}

// Len returns the number of accumulated rows.
func (a *Accumulator) Len() int {
	return len(a.rows)
}

// Rows returns the accumulated rows in fetch order.
func (a *Accumulator) Rows() []Row {
	return a.rows
}

// Count returns how many rows carry key.
func (a *Accumulator) Count(key string) int {
	return a.counts[key]
}

// Group is every row sharing one dedup key, in fetch order.
type Group struct {
	Key  string
	Rows []Row
}

// Partition splits rows into duplicate groups and uniques.
type Partition struct {
	// Groups are ordered by ascending Key (byte order).
	Groups []Group

	// Unique holds rows with an empty key or a key seen once, in fetch order.
	Unique []Row
}

// DuplicateRows returns the total number of rows across all groups.
func (p Partition) DuplicateRows() int {
	n := 0
	for _, g := range p.Groups {
		n += len(g.Rows)
	}
	return n
}

// Partition groups rows whose non-empty key occurs at least twice across the
// whole accumulation. Every row lands in exactly one group or in Unique.
func (a *Accumulator) Partition() Partition {
	var p Partition
	byKey := make(map[string]int)

	for _, row := range a.rows {
		if row.Key == "" || a.counts[row.Key] < 2 {
			p.Unique = append(p.Unique, row)
			continue
		}
		idx, ok := byKey[row.Key]
		if !ok {
			idx = len(p.Groups)
			byKey[row.Key] = idx
			p.Groups = append(p.Groups, Group{Key: row.Key})
		}
		p.Groups[idx].Rows = append(p.Groups[idx].Rows, row)
	}

	sort.Slice(p.Groups, func(i, j int) bool {
		return p.Groups[i].Key < p.Groups[j].Key
	})
	return p
}
