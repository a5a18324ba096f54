package engine

// edit records one splice in original coordinates: the original index it
// happened at and the net length change it caused.
type edit struct {
	origStart int
	delta     int
}

// positionTranslator maps original indexes to indexes in the working copy
// after a series of edits applied in ascending original order.
//
// Not safe for concurrent use; one translator lives for one ApplyPatches call.
type positionTranslator struct {
	edits []edit
}

// record registers an edit. Edits must arrive in ascending origStart order.
func (t *positionTranslator) record(origStart, delta int) {
	t.edits = append(t.edits, edit{origStart: origStart, delta: delta})
}

// translate returns where original index i lives now. Only edits strictly
// before i shift it.
func (t *positionTranslator) translate(i int) int {
	shifted := i
	for _, e := range t.edits {
		if e.origStart < i {
			shifted += e.delta
		}
	}
	return shifted
}

// netDelta is the total length change over all recorded edits.
func (t *positionTranslator) netDelta() int {
	n := 0
	for _, e := range t.edits {
		n += e.delta
	}
	return n
}
