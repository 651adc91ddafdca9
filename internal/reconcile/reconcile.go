// Package reconcile applies traced control flow to a disassembly database.
//
// Each pass writes the references recorded for one edge category and makes
// sure every destination carries a label. Passes are idempotent: running the
// same trace again reproduces the same database state.
package reconcile

import (
	"fmt"
	"log/slog"

	"dosflow/internal/annodb"
	"dosflow/internal/segaddr"
	"dosflow/internal/trace"
)

// DefaultLabelPrefix starts every generated label name.
const DefaultLabelPrefix = "generated_label_"

// ClearPolicy decides which existing references a pass removes at a source
// before writing its own.
type ClearPolicy int

const (
	// ClearImported removes only imported references of the pass kind, once
	// per (source, kind) in a run. Analyst references and the output of an
	// earlier pass of another kind survive.
	ClearImported ClearPolicy = iota
	// ClearAll removes every outgoing reference each time a pass touches a
	// source. A later pass replaces an earlier one at a shared source.
	ClearAll
)

func (p ClearPolicy) String() string {
	switch p {
	case ClearImported:
		return "imported"
	case ClearAll:
		return "all"
	default:
		return fmt.Sprintf("ClearPolicy(%d)", int(p))
	}
}

// Options configures an Engine.
type Options struct {
	Policy      ClearPolicy
	LabelPrefix string // DefaultLabelPrefix if empty
	Logger      *slog.Logger
}

// PassStats counts what one pass did.
type PassStats struct {
	Name       string
	Kind       annodb.RefKind
	Sources    int
	References int
	Removed    int
	Labels     int
}

// Report is the result of Run.
type Report struct {
	Passes     []PassStats
	Collisions []uint32 // sources both called and jumped from
}

// Totals sums all passes.
func (r Report) Totals() PassStats {
	t := PassStats{Name: "total"}
	for _, p := range r.Passes {
		t.Sources += p.Sources
		t.References += p.References
		t.Removed += p.Removed
		t.Labels += p.Labels
	}
	return t
}

type clearKey struct {
	from uint32
	kind annodb.RefKind
}

// Engine reconciles trace documents into a database. It is not safe for
// concurrent use; the database is assumed to have no other writer.
type Engine struct {
	db   annodb.Database
	opts Options
	log  *slog.Logger
}

// New returns an Engine writing to db.
func New(db annodb.Database, opts Options) *Engine {
	if opts.LabelPrefix == "" {
		opts.LabelPrefix = DefaultLabelPrefix
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Engine{db: db, opts: opts, log: log}
}

// Run applies the jump, call and return tables of doc in that fixed order.
// Returns are written as jump references. The first failure stops the run;
// work already written stays in the database.
func (e *Engine) Run(doc *trace.Document) (Report, error) {
	cleared := make(map[clearKey]bool)

	rep := Report{Collisions: doc.Collisions()}
	if len(rep.Collisions) > 0 {
		e.log.Warn("sources recorded as both call and jump", "count", len(rep.Collisions))
	}

	passes := []struct {
		name  string
		table *trace.EdgeTable
		kind  annodb.RefKind
	}{
		{"jumps", doc.JumpsFromTo(), annodb.ComputedJump},
		{"calls", doc.CallsFromTo(), annodb.ComputedCall},
		{"rets", doc.RetsFromTo(), annodb.ComputedJump},
	}
	for _, p := range passes {
		st, err := e.importReferences(p.table, p.kind, cleared)
		st.Name = p.name
		rep.Passes = append(rep.Passes, st)
		if err != nil {
			return rep, fmt.Errorf("reconcile: %s pass: %w", p.name, err)
		}
		e.log.Info("pass done", "pass", p.name, "kind", p.kind,
			"sources", st.Sources, "refs", st.References, "removed", st.Removed, "labels", st.Labels)
	}
	return rep, nil
}

// ImportReferences writes every edge of table as a reference of kind.
// Destinations are written in recorded order with their position as index,
// and each unlabeled destination gets a generated label. Every call
// replaces the imported references of kind at each source it touches.
func (e *Engine) ImportReferences(table *trace.EdgeTable, kind annodb.RefKind) (PassStats, error) {
	return e.importReferences(table, kind, make(map[clearKey]bool))
}

// importReferences clears each (source, kind) at most once per cleared set.
func (e *Engine) importReferences(table *trace.EdgeTable, kind annodb.RefKind, cleared map[clearKey]bool) (PassStats, error) {
	st := PassStats{Kind: kind}
	for _, entry := range table.Entries() {
		from, err := e.db.Resolve(entry.Source)
		if err != nil {
			return st, fmt.Errorf("source 0x%X: %w", entry.Source, err)
		}

		removed, err := e.clear(from, kind, cleared)
		if err != nil {
			return st, fmt.Errorf("source 0x%X: clear: %w", from, err)
		}
		st.Removed += removed
		st.Sources++

		for index, dst := range entry.Destinations {
			to, err := e.db.Resolve(dst.Physical())
			if err != nil {
				return st, fmt.Errorf("source 0x%X: destination %v: %w", from, dst, err)
			}
			ref := annodb.Reference{
				From:   from,
				To:     to,
				Kind:   kind,
				Source: annodb.SourceImported,
				Index:  index,
			}
			if err := e.db.AddReference(ref); err != nil {
				return st, fmt.Errorf("source 0x%X: add reference to %v: %w", from, dst, err)
			}
			st.References++

			created, err := e.ensureLabel(to, kind, dst)
			if err != nil {
				return st, fmt.Errorf("source 0x%X: label %v: %w", from, dst, err)
			}
			if created {
				st.Labels++
			}
		}
	}
	return st, nil
}

func (e *Engine) clear(from uint32, kind annodb.RefKind, cleared map[clearKey]bool) (int, error) {
	switch e.opts.Policy {
	case ClearAll:
		has, err := e.db.HasReferencesFrom(from)
		if err != nil || !has {
			return 0, err
		}
		return e.db.RemoveReferencesFrom(from)
	default:
		k := clearKey{from: from, kind: kind}
		if cleared[k] {
			return 0, nil
		}
		cleared[k] = true
		return e.db.RemoveReferences(from, kind, annodb.SourceImported)
	}
}

// ensureLabel creates a generated label at to unless a named label is
// already primary there. It reports whether a new label was added.
func (e *Engine) ensureLabel(to uint32, kind annodb.RefKind, dst segaddr.Address) (bool, error) {
	syms, err := e.db.Symbols(to)
	if err != nil {
		return false, err
	}
	name := LabelName(e.opts.LabelPrefix, kind, dst)
	var primary *annodb.Symbol
	exists := false
	for i := range syms {
		if syms[i].Primary {
			primary = &syms[i]
		}
		if syms[i].Name == name {
			exists = true
		}
	}
	if primary != nil && primary.Kind == annodb.SymbolLabel {
		return false, nil
	}
	// Under a function primary the generated label is already in place.
	if exists && primary != nil && primary.Kind == annodb.SymbolFunction {
		return false, nil
	}
	if err := e.db.CreateLabel(to, name, annodb.SourceUserDefined); err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	e.log.Debug("label", "addr", dst.String(), "name", name)
	return true, nil
}

// LabelName builds prefix + kind + "_" + SSSS_OOOO_PPPPPP.
func LabelName(prefix string, kind annodb.RefKind, dst segaddr.Address) string {
	return prefix + string(kind) + "_" + dst.Full()
}
