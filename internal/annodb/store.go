package annodb

import (
	"cmp"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// DefaultAddressLimit covers real-mode memory including the high memory
// area: FFFF:FFFF is 0x10FFEF.
const DefaultAddressLimit = 0x110000

// Key prefixes. The address follows big-endian so iteration is address-ordered.
const (
	prefixRefs byte = 'r'
	prefixSyms byte = 's'
)

// Store is a Database backed by LevelDB. Values are JSON lists of the
// references or symbols at one address. References are kept sorted by
// index, then destination.
type Store struct {
	db    *leveldb.DB
	limit uint32
}

var _ Database = (*Store)(nil)

// Open opens or creates a store at path. An empty path opens an in-memory store.
func Open(path string) (*Store, error) {
	return OpenWithLimit(path, DefaultAddressLimit)
}

// OpenMemory opens an in-memory store.
func OpenMemory() (*Store, error) {
	return Open("")
}

// OpenWithLimit opens a store whose addresses must be below limit.
func OpenWithLimit(path string, limit uint32) (*Store, error) {
	var db *leveldb.DB
	var err error
	if path == "" {
		db, err = leveldb.Open(storage.NewMemStorage(), nil)
	} else {
		db, err = leveldb.OpenFile(path, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("annodb: open %q: %w", path, err)
	}
	return &Store{db: db, limit: limit}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Resolve fails with ErrOutOfRange for addresses at or above the limit.
func (s *Store) Resolve(physical uint32) (uint32, error) {
	if physical >= s.limit {
		return 0, fmt.Errorf("annodb: 0x%X (limit 0x%X): %w", physical, s.limit, ErrOutOfRange)
	}
	return physical, nil
}

func (s *Store) HasReferencesFrom(from uint32) (bool, error) {
	refs, err := s.ReferencesFrom(from)
	return len(refs) > 0, err
}

func (s *Store) ReferencesFrom(from uint32) ([]Reference, error) {
	var refs []Reference
	_, err := s.getJSON(addrKey(prefixRefs, from), &refs)
	return refs, err
}

func (s *Store) RemoveReferencesFrom(from uint32) (int, error) {
	refs, err := s.ReferencesFrom(from)
	if err != nil || len(refs) == 0 {
		return 0, err
	}
	if err := s.db.Delete(addrKey(prefixRefs, from), nil); err != nil {
		return 0, fmt.Errorf("annodb: delete refs 0x%X: %w", from, err)
	}
	return len(refs), nil
}

func (s *Store) RemoveReferences(from uint32, kind RefKind, source SourceType) (int, error) {
	refs, err := s.ReferencesFrom(from)
	if err != nil || len(refs) == 0 {
		return 0, err
	}
	kept := refs[:0]
	for _, r := range refs {
		if r.Kind == kind && r.Source == source {
			continue
		}
		kept = append(kept, r)
	}
	removed := len(refs) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	return removed, s.putRefs(from, kept)
}

// AddReference adds ref to its source. Adding an identical reference is a no-op.
func (s *Store) AddReference(ref Reference) error {
	refs, err := s.ReferencesFrom(ref.From)
	if err != nil {
		return err
	}
	if slices.Contains(refs, ref) {
		return nil
	}
	return s.putRefs(ref.From, append(refs, ref))
}

// Symbols returns the symbols at addr in creation order.
func (s *Store) Symbols(addr uint32) ([]Symbol, error) {
	var syms []Symbol
	_, err := s.getJSON(addrKey(prefixSyms, addr), &syms)
	return syms, err
}

func (s *Store) PrimarySymbol(addr uint32) (Symbol, bool, error) {
	syms, err := s.Symbols(addr)
	if err != nil {
		return Symbol{}, false, err
	}
	for _, sym := range syms {
		if sym.Primary {
			return sym, true, nil
		}
	}
	return Symbol{}, false, nil
}

// CreateLabel adds a label at addr and makes it primary, unless a function
// owns the address, in which case the function name stays primary.
// A label that already exists under that name is not duplicated.
func (s *Store) CreateLabel(addr uint32, name string, source SourceType) error {
	return s.AddSymbol(Symbol{Addr: addr, Name: name, Kind: SymbolLabel, Source: source, Primary: true})
}

// AddSymbol stores sym. A symbol with the same name at that address is
// replaced in place. If sym.Primary is set it takes over as primary unless
// the current primary is a function and sym is not; the first symbol at an
// address is always primary.
func (s *Store) AddSymbol(sym Symbol) error {
	if _, err := s.Resolve(sym.Addr); err != nil {
		return err
	}
	syms, err := s.Symbols(sym.Addr)
	if err != nil {
		return err
	}

	primary := -1
	for i, existing := range syms {
		if existing.Primary {
			primary = i
		}
	}
	makePrimary := primary < 0 ||
		(sym.Primary && (syms[primary].Kind != SymbolFunction || sym.Kind == SymbolFunction))

	idx := -1
	for i, existing := range syms {
		if existing.Name == sym.Name {
			idx = i
			break
		}
	}
	if idx >= 0 {
		// Keep the existing primary flag unless this insert takes over.
		sym.Primary = syms[idx].Primary
		syms[idx] = sym
	} else {
		sym.Primary = false
		syms = append(syms, sym)
		idx = len(syms) - 1
	}
	if makePrimary {
		for i := range syms {
			syms[i].Primary = i == idx
		}
	}
	return s.putJSON(addrKey(prefixSyms, sym.Addr), syms)
}

// Snapshot returns every reference and symbol in address order.
func (s *Store) Snapshot() (Snapshot, error) {
	var snap Snapshot
	if err := s.scan(prefixRefs, func(value []byte) error {
		var refs []Reference
		if err := json.Unmarshal(value, &refs); err != nil {
			return err
		}
		snap.References = append(snap.References, refs...)
		return nil
	}); err != nil {
		return Snapshot{}, err
	}
	if err := s.scan(prefixSyms, func(value []byte) error {
		var syms []Symbol
		if err := json.Unmarshal(value, &syms); err != nil {
			return err
		}
		snap.Symbols = append(snap.Symbols, syms...)
		return nil
	}); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func (s *Store) scan(prefix byte, fn func(value []byte) error) error {
	iter := s.db.NewIterator(util.BytesPrefix([]byte{prefix}), nil)
	defer iter.Release()
	for iter.Next() {
		if err := fn(iter.Value()); err != nil {
			return fmt.Errorf("annodb: decode %x: %w", iter.Key(), err)
		}
	}
	if err := iter.Error(); err != nil {
		return fmt.Errorf("annodb: scan %c: %w", prefix, err)
	}
	return nil
}

func (s *Store) putRefs(from uint32, refs []Reference) error {
	if len(refs) == 0 {
		if err := s.db.Delete(addrKey(prefixRefs, from), nil); err != nil {
			return fmt.Errorf("annodb: delete refs 0x%X: %w", from, err)
		}
		return nil
	}
	slices.SortFunc(refs, compareRefs)
	return s.putJSON(addrKey(prefixRefs, from), refs)
}

// compareRefs orders the references of one source by index, then
// destination, so the stored order does not depend on insertion history.
func compareRefs(a, b Reference) int {
	return cmp.Or(
		cmp.Compare(a.Index, b.Index),
		cmp.Compare(a.To, b.To),
		cmp.Compare(a.Kind, b.Kind),
		cmp.Compare(a.Source, b.Source),
	)
}

func (s *Store) getJSON(key []byte, v any) (bool, error) {
	data, err := s.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("annodb: get %x: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("annodb: decode %x: %w", key, err)
	}
	return true, nil
}

func (s *Store) putJSON(key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("annodb: encode %x: %w", key, err)
	}
	if err := s.db.Put(key, data, nil); err != nil {
		return fmt.Errorf("annodb: put %x: %w", key, err)
	}
	return nil
}

func addrKey(prefix byte, addr uint32) []byte {
	k := make([]byte, 5)
	k[0] = prefix
	binary.BigEndian.PutUint32(k[1:], addr)
	return k
}
