package stats

import (
	"fmt"
)

// Tree accumulates entries into fixed-depth calendar buckets:
// year -> month -> day, keyed "2024" / "03" / "15" in BusinessZone.
// The root carries the all-time grand total. Invariant: every bucket's
// totals equal the field-wise sum of its children (and, at the leaves,
// of the raw entries added to that day).
type Tree struct {
	root *Bucket
}

// Bucket is one period node. Periods is nil at the day level.
type Bucket struct {
	Totals  Totals             `json:"totals"`
	Periods map[string]*Bucket `json:"periods,omitempty"`
}

// ExportStats is the persisted plain-object form of a Tree, stored as the
// `stats` field of branch_stats/company_stats documents.
type ExportStats = Bucket

// NewTree creates an empty tree.
func NewTree() *Tree {
	return &Tree{root: &Bucket{}}
}

// BucketPath returns the year, month and day keys for an entry date,
// computed in BusinessZone.
func BucketPath(e Entry) (year, month, day string) {
	d := e.Date.In(BusinessZone)
	return fmt.Sprintf("%04d", d.Year()),
		fmt.Sprintf("%02d", int(d.Month())),
		fmt.Sprintf("%02d", d.Day())
}

// Add validates the entry, then adds its fields into the day bucket and
// every ancestor up to the grand total. Buckets missing along the path are
// created zeroed first. On error nothing is modified.
func (t *Tree) Add(e Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}

	year, month, day := BucketPath(e)

	node := t.root
	node.Totals.add(e)
	for _, key := range []string{year, month, day} {
		if node.Periods == nil {
			node.Periods = make(map[string]*Bucket)
		}
		child, ok := node.Periods[key]
		if !ok {
			child = &Bucket{}
			node.Periods[key] = child
		}
		child.Totals.add(e)
		node = child
	}
	return nil
}

// Totals returns the all-time grand total.
func (t *Tree) Totals() Totals {
	return t.root.Totals
}

// Period returns the totals of one bucket; keys beyond the first may be
// empty to address coarser granularities. The second return is false when
// the bucket was never touched.
func (t *Tree) Period(year, month, day string) (Totals, bool) {
	node := t.root
	for _, key := range []string{year, month, day} {
		if key == "" {
			break
		}
		child, ok := node.Periods[key]
		if !ok {
			return Totals{}, false
		}
		node = child
	}
	return node.Totals, true
}

// ToObj serializes the tree into its persisted plain-object form.
// The returned value is a deep copy; mutating it does not touch the tree.
func (t *Tree) ToObj() *ExportStats {
	return cloneBucket(t.root)
}

// FromObj reconstructs a tree from a previously persisted ToObj output,
// including buckets not touched by the current update cycle. A nil object
// yields an empty tree.
func FromObj(obj *ExportStats) *Tree {
	if obj == nil {
		return NewTree()
	}
	return &Tree{root: cloneBucket(obj)}
}

func cloneBucket(b *Bucket) *Bucket {
	out := &Bucket{Totals: b.Totals}
	if len(b.Periods) > 0 {
		out.Periods = make(map[string]*Bucket, len(b.Periods))
		for key, child := range b.Periods {
			out.Periods[key] = cloneBucket(child)
		}
	}
	return out
}
