package query

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/xerrors"

	"github.com/das-systems/das-core/atom"
)

// MaxInnerTemplates bounds how many nested LinkTemplate targets a single
// LinkTemplate may declare (§4.5.2: "a practical limit of 4 AND-inputs per
// inner layer is documented").
const MaxInnerTemplates = 4

// importanceCacheSize bounds the per-LinkTemplate LRU of resolved
// importances (§2 DOMAIN STACK: avoids re-querying Attention for candidates
// already resolved by an earlier Run of the same LinkTemplate; within one
// fetch each candidate is resolved at most once regardless of the cache).
const importanceCacheSize = 4096

var ErrTooManyInnerTemplates = xerrors.New("query: too many nested link templates")

// TemplateTarget is anything that can occupy a LinkTemplate target position:
// a Terminal (concrete Node/Link/UntypedVariable) or a nested LinkTemplate.
// Both lend an atom.Atom for folding into the enclosing LinkSchema.
type TemplateTarget interface {
	Element
	schemaAtom() atom.Atom
	isInner() bool
}

func (t *Terminal) schemaAtom() atom.Atom { return t.atom }
func (t *Terminal) isInner() bool         { return false }

// LinkTemplate is the source element described in §4.5.2: it resolves a
// (possibly WILDCARD-typed) link pattern against an AtomStore, ranks
// candidates by Attention importance, and emits one QueryAnswer per
// matching link, binding any variables found at any nesting depth.
type LinkTemplate struct {
	id         string
	typeName   string
	targets    []TemplateTarget
	store      AtomStore
	importance ImportanceSource
	ctx        string

	schema *atom.LinkSchema
	inner  []int

	out             *AnswerQueue
	importanceCache *lru.Cache[string, float64]
	pollInterval    time.Duration
}

// NewLinkTemplate builds a LinkTemplate over typeName (atom.WildcardString
// meaning "any link type") and targets, computing its LinkSchema eagerly so
// construction fails fast on a malformed template.
func NewLinkTemplate(typeName string, targets []TemplateTarget, store AtomStore, importance ImportanceSource, importanceContext string) (*LinkTemplate, error) {
	if len(targets) == 0 {
		return nil, atom.ErrNoTargets
	}
	innerCount := 0
	for _, t := range targets {
		if t.isInner() {
			innerCount++
		}
	}
	if innerCount > MaxInnerTemplates {
		return nil, xerrors.Errorf("%w: %d nested templates, max %d", ErrTooManyInnerTemplates, innerCount, MaxInnerTemplates)
	}

	cache, err := lru.New[string, float64](importanceCacheSize)
	if err != nil {
		return nil, err
	}
	lt := &LinkTemplate{
		id:              uuid.NewString(),
		typeName:        typeName,
		targets:         targets,
		store:           store,
		importance:      importance,
		ctx:             importanceContext,
		out:             NewAnswerQueue(),
		importanceCache: cache,
		pollInterval:    time.Millisecond,
	}
	if err := lt.build(); err != nil {
		return nil, err
	}
	return lt, nil
}

// ID returns this LinkTemplate's unique instance id, the Go replacement for
// the original's process-wide "static unsigned int instance_count" counter
// (see SPEC_FULL.md §2): safe to hand out concurrently across goroutines.
func (lt *LinkTemplate) ID() string { return lt.id }

func (lt *LinkTemplate) build() error {
	schema, err := atom.NewLinkSchema(lt.typeName, len(lt.targets), nil)
	if err != nil {
		return err
	}
	for i, t := range lt.targets {
		if err := schema.StackAtom(t.schemaAtom()); err != nil {
			return err
		}
		if t.isInner() {
			lt.inner = append(lt.inner, i)
		}
	}
	if err := schema.Build(); err != nil {
		return err
	}
	lt.schema = schema
	return nil
}

// Schema returns the built LinkSchema, letting this LinkTemplate itself be
// used as a TemplateTarget (a nested "inner position") of an enclosing one.
func (lt *LinkTemplate) Schema() *atom.LinkSchema { return lt.schema }

func (lt *LinkTemplate) schemaAtom() atom.Atom { return lt.schema }
func (lt *LinkTemplate) isInner() bool         { return true }

func (lt *LinkTemplate) Output() *AnswerQueue { return lt.out }

// fetchCandidates resolves the set of stored link handles this template's
// schema could possibly match. A concrete (non-WILDCARD) type is answered
// directly by the pattern index; a WILDCARD type has no single pattern
// handle meaning "any type" (the index is keyed per concrete link type), so
// it falls back to a per-known-type union scan (see
// atomstore.Store.KnownLinkTypes).
func (lt *LinkTemplate) fetchCandidates() ([]string, error) {
	if lt.typeName != atom.WildcardString {
		return lt.store.QueryForPattern(lt.schema)
	}

	lister, ok := lt.store.(interface{ KnownLinkTypes() []string })
	if !ok {
		return nil, nil
	}
	seen := map[string]struct{}{}
	var out []string
	for _, typeName := range lister.KnownLinkTypes() {
		perType, err := atom.NewLinkSchema(typeName, len(lt.targets), nil)
		if err != nil {
			return nil, err
		}
		for _, t := range lt.targets {
			if err := perType.StackAtom(t.schemaAtom()); err != nil {
				return nil, err
			}
		}
		if err := perType.Build(); err != nil {
			return nil, err
		}
		handles, err := lt.store.QueryForPattern(perType)
		if err != nil {
			return nil, err
		}
		for _, h := range handles {
			if _, dup := seen[h]; !dup {
				seen[h] = struct{}{}
				out = append(out, h)
			}
		}
	}
	return out, nil
}

// rank resolves each candidate's importance via ImportanceSource, paginating
// requests to MaxGetImportanceBundleSize handles at a time and reusing
// results cached by earlier Runs of this LinkTemplate, then returns candidates sorted
// by non-increasing importance (§4.5.2 step 3, the ordering guarantee of
// §5).
func (lt *LinkTemplate) rank(candidates []string) ([]string, map[string]float64, error) {
	importances := make(map[string]float64, len(candidates))
	var toResolve []string
	for _, h := range candidates {
		if v, ok := lt.importanceCache.Get(h); ok {
			importances[h] = v
		} else {
			toResolve = append(toResolve, h)
		}
	}

	for start := 0; start < len(toResolve); start += MaxGetImportanceBundleSize {
		end := start + MaxGetImportanceBundleSize
		if end > len(toResolve) {
			end = len(toResolve)
		}
		chunk := toResolve[start:end]
		values, err := lt.importance.GetImportance(lt.ctx, chunk)
		if err != nil {
			return nil, nil, err
		}
		for i, h := range chunk {
			v := 0.0
			if i < len(values) {
				v = values[i]
			}
			importances[h] = v
			lt.importanceCache.Add(h, v)
		}
	}

	ranked := append([]string(nil), candidates...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return importances[ranked[i]] > importances[ranked[j]]
	})
	return ranked, importances, nil
}

// Run resolves candidates, ranks them, re-validates each against the schema
// (recovering the variable assignment along the way — see DESIGN.md for why
// this subsumes the "spawn an inner AND operator" architecture described in
// spec §4.5.2 step 4), and emits one QueryAnswer per match in non-increasing
// importance order.
func (lt *LinkTemplate) Run(ctx context.Context) error {
	defer lt.out.Finish()

	candidates, err := lt.fetchCandidates()
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		return nil
	}

	ranked, importances, err := lt.rank(candidates)
	if err != nil {
		return err
	}

	for _, h := range ranked {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		assignment := atom.NewAssignment()
		matched, err := lt.schema.Match(h, assignment, lt.store)
		if err != nil {
			return err
		}
		if !matched {
			continue
		}
		answer := NewHandleAnswer(h, importances[h])
		answer.Assignment = assignment
		answer.Strength = 1.0
		lt.out.Enqueue(answer)
	}
	return nil
}
