package ledger

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/tcfw/blockmesh/pkg/tx"
)

// Commit is delivered to subscribers after a successful append.
// External collaborators (event indexers, fee accounting) consume
// these; they never mutate ledger state
type Commit struct {
	ID     BlockID
	Height uint64
	Chain  bool
	TxN    int
}

type CommitFn func(Commit)

// Store owns the block arena for a single node's view of the ledger.
// Blocks are created at append, immutable thereafter and never
// deleted. All appends are validate-then-insert: any rejection leaves
// the store untouched
type Store struct {
	mu sync.RWMutex

	blocks  map[BlockID]*Block
	heights map[BlockID]uint64
	closure map[BlockID]map[BlockID]struct{}
	txIndex map[tx.Ref]BlockID
	bloom   *txBloom

	genesis BlockID
	hasGen  bool

	subs []CommitFn
}

func NewStore() *Store {
	return &Store{
		blocks:  make(map[BlockID]*Block),
		heights: make(map[BlockID]uint64),
		closure: make(map[BlockID]map[BlockID]struct{}),
		txIndex: make(map[tx.Ref]BlockID),
		bloom:   newTxBloom(),
	}
}

// Subscribe registers a block-committed observer. Callbacks run
// outside the store lock, in append order
func (s *Store) Subscribe(fn CommitFn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subs = append(s.subs, fn)
}

// AppendBlock validates then inserts b. Validation covers id
// uniqueness, the chain/dag mode rule, ancestry acyclicity, merkle
// root presence, global tx uniqueness and, for chain blocks,
// cumulative inclusion of the predecessor's txs
func (s *Store) AppendBlock(b *Block) error {
	if b == nil || !b.ID.Defined() {
		return ErrUndefinedID
	}

	s.mu.Lock()

	commit, err := s.appendLocked(b)

	var subs []CommitFn
	if err == nil {
		subs = append(subs, s.subs...)
	}

	s.mu.Unlock()

	if err != nil {
		return err
	}

	for _, fn := range subs {
		fn(commit)
	}

	return nil
}

func (s *Store) appendLocked(b *Block) (Commit, error) {
	if _, ok := s.blocks[b.ID]; ok {
		return Commit{}, ErrIDCollision
	}

	if b.Prev != nil && len(b.Parents) > 0 {
		return Commit{}, ErrModeViolation
	}

	if b.IsGenesis() && s.hasGen {
		return Commit{}, errors.Wrap(ErrModeViolation, "genesis already seeded")
	}

	edges, err := s.resolveEdgesLocked(b)
	if err != nil {
		return Commit{}, err
	}

	if len(b.Meta.MerkleRoot) == 0 {
		return Commit{}, ErrMissingMerkleRoot
	}

	held := make(map[tx.Ref]struct{}, len(b.Txs))
	for _, t := range b.Txs {
		if _, ok := held[t]; ok {
			return Commit{}, errors.Wrapf(ErrDuplicateTx, "tx %s repeated in block", t)
		}
		held[t] = struct{}{}
	}

	newTxs := b.Txs
	if b.IsChain() {
		prev := s.blocks[*b.Prev]

		for _, t := range prev.Txs {
			if _, ok := held[t]; !ok {
				return Commit{}, errors.Wrapf(ErrMissingAncestorTx, "tx %s", t)
			}
		}

		newTxs = make([]tx.Ref, 0, len(b.Txs))
		inherited := make(map[tx.Ref]struct{}, len(prev.Txs))
		for _, t := range prev.Txs {
			inherited[t] = struct{}{}
		}
		for _, t := range b.Txs {
			if _, ok := inherited[t]; !ok {
				newTxs = append(newTxs, t)
			}
		}
	}

	for _, t := range newTxs {
		if s.containsTxLocked(t) {
			return Commit{}, errors.Wrapf(ErrDuplicateTx, "tx %s", t)
		}
	}

	// all checks passed; mutate
	stored := b.clone()
	s.blocks[stored.ID] = stored

	anc := make(map[BlockID]struct{})
	for _, e := range edges {
		anc[e] = struct{}{}
		for a := range s.closure[e] {
			anc[a] = struct{}{}
		}
	}
	s.closure[stored.ID] = anc

	commit := Commit{ID: stored.ID, TxN: len(stored.Txs)}

	switch {
	case stored.IsGenesis():
		s.heights[stored.ID] = 0
		s.genesis = stored.ID
		s.hasGen = true
		commit.Chain = true
	case stored.IsChain():
		s.heights[stored.ID] = s.heights[*stored.Prev] + 1
		commit.Chain = true
		commit.Height = s.heights[stored.ID]
	}

	for _, t := range newTxs {
		s.txIndex[t] = stored.ID
		s.bloom.Add(t)
	}

	return commit, nil
}

// resolveEdgesLocked checks predecessor references exist and that no
// ancestry cycle would be introduced along either edge kind
func (s *Store) resolveEdgesLocked(b *Block) ([]BlockID, error) {
	var edges []BlockID

	if b.Prev != nil {
		edges = append(edges, *b.Prev)
	} else {
		seen := make(map[BlockID]struct{}, len(b.Parents))
		for _, p := range b.Parents {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			edges = append(edges, p)
		}
	}

	if len(edges) == 0 && !b.IsGenesis() {
		return nil, ErrModeViolation
	}

	for _, e := range edges {
		if e == b.ID {
			return nil, ErrCycle
		}

		if _, ok := s.blocks[e]; !ok {
			return nil, errors.Wrapf(ErrUnknownParent, "block %s", e)
		}

		if _, ok := s.closure[e][b.ID]; ok {
			return nil, ErrCycle
		}
	}

	return edges, nil
}

func (s *Store) containsTxLocked(t tx.Ref) bool {
	if !s.bloom.MayContain(t) {
		return false
	}

	_, ok := s.txIndex[t]
	return ok
}

// ContainsTransaction is the global membership check backing the
// append-time tx uniqueness rule
func (s *Store) ContainsTransaction(t tx.Ref) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.containsTxLocked(t)
}

// TxBlock returns the block that introduced t
func (s *Store) TxBlock(t tx.Ref) (BlockID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.txIndex[t]
	if !ok {
		return BlockID{}, ErrNotFound
	}

	return id, nil
}

// Height returns the cached chain height of id. Dag blocks have no
// height and fail with ErrNotApplicable
func (s *Store) Height(id BlockID) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.blocks[id]; !ok {
		return 0, ErrNotFound
	}

	h, ok := s.heights[id]
	if !ok {
		return 0, ErrNotApplicable
	}

	return h, nil
}

// Block returns a copy of the stored record
func (s *Store) Block(id BlockID) (*Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.blocks[id]
	if !ok {
		return nil, ErrNotFound
	}

	return b.clone(), nil
}

func (s *Store) Genesis() (BlockID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.genesis, s.hasGen
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.blocks)
}

// BlockIDs snapshots the known block universe, for sync-set audits
func (s *Store) BlockIDs() []BlockID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]BlockID, 0, len(s.blocks))
	for id := range s.blocks {
		ids = append(ids, id)
	}

	return ids
}
