package ledger

// AncestorIter lazily walks the prev-closure of a block, oldest link
// last. It is finite (the store is acyclic) and restartable via Reset
type AncestorIter struct {
	s     *Store
	start BlockID
	cur   BlockID
	ok    bool
}

// Ancestors returns an iterator over the prev-link ancestry of id.
// Unknown ids fail with ErrNotFound
func (s *Store) Ancestors(id BlockID) (*AncestorIter, error) {
	s.mu.RLock()
	_, ok := s.blocks[id]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}

	it := &AncestorIter{s: s, start: id}
	it.Reset()

	return it, nil
}

func (it *AncestorIter) Reset() {
	it.cur = it.start
	it.ok = true
}

// Next yields the next ancestor id, or false once the walk passes
// genesis or leaves the prev chain (dag blocks have no prev ancestry)
func (it *AncestorIter) Next() (BlockID, bool) {
	if !it.ok {
		return BlockID{}, false
	}

	it.s.mu.RLock()
	defer it.s.mu.RUnlock()

	b, ok := it.s.blocks[it.cur]
	if !ok || b.Prev == nil {
		it.ok = false
		return BlockID{}, false
	}

	it.cur = *b.Prev
	return it.cur, true
}
