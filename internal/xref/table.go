package xref

import "sort"

// Table is the resolver's side table. It is read-only once ResolveAll returns.
type Table struct {
	resolved map[string]map[int]*CrossReference
	broken   map[string]map[int]*BrokenReference
	refs     []*CrossReference
	brokens  []*BrokenReference
}

func newTable() *Table {
	return &Table{
		resolved: map[string]map[int]*CrossReference{},
		broken:   map[string]map[int]*BrokenReference{},
	}
}

func (t *Table) addResolved(ref *CrossReference) {
	m := t.resolved[ref.SourceID]
	if m == nil {
		m = map[int]*CrossReference{}
		t.resolved[ref.SourceID] = m
	}
	m[ref.Offset] = ref
	t.refs = append(t.refs, ref)
}

func (t *Table) addBroken(b *BrokenReference) {
	m := t.broken[b.SourceID]
	if m == nil {
		m = map[int]*BrokenReference{}
		t.broken[b.SourceID] = m
	}
	m[b.Offset] = b
	t.brokens = append(t.brokens, b)
}

// Lookup returns the outcome for the reference token starting at offset in
// the body of sourceID. Both results are nil when no reference starts there.
func (t *Table) Lookup(sourceID string, offset int) (*CrossReference, *BrokenReference) {
	if t == nil {
		return nil, nil
	}
	return t.resolved[sourceID][offset], t.broken[sourceID][offset]
}

// References returns all resolved references in source order.
func (t *Table) References() []*CrossReference { return t.refs }

// Broken returns all broken references ordered by source path, then line.
func (t *Table) Broken() []*BrokenReference {
	out := make([]*BrokenReference, len(t.brokens))
	copy(out, t.brokens)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SourcePath != out[j].SourcePath {
			return out[i].SourcePath < out[j].SourcePath
		}
		return out[i].Offset < out[j].Offset
	})
	return out
}

// From returns the resolved references of one source document in source order.
func (t *Table) From(sourceID string) []*CrossReference {
	var out []*CrossReference
	for _, ref := range t.refs {
		if ref.SourceID == sourceID {
			out = append(out, ref)
		}
	}
	return out
}
