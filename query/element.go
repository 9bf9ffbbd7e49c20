package query

import (
	"context"

	"github.com/das-systems/das-core/atom"
)

// AtomStore is the subset of atomstore.Store the query pipeline consumes.
// Defined as an interface here (rather than importing atomstore directly)
// so a remote peer implementation can stand in for the in-memory store
// (§6.3); atomstore.Store satisfies it structurally.
type AtomStore interface {
	atom.HandleDecoder
	QueryForPattern(schema *atom.LinkSchema) ([]string, error)
	QueryForTargets(handle string) ([]string, error)
}

// ImportanceSource ranks candidate handles for a LinkTemplate. The Attention
// subsystem's GetImportance satisfies this; context partitions the Hebbian
// network the same way it does there.
type ImportanceSource interface {
	GetImportance(context string, handles []string) ([]float64, error)
}

// MaxGetImportanceBundleSize bounds how many handles a single
// ImportanceSource.GetImportance call asks for at once.
const MaxGetImportanceBundleSize = 100000

// Element is any node in the query DAG.
type Element interface {
	// Output returns the queue this element writes its answers to.
	Output() *AnswerQueue
}

// Source is an element that can be run to produce answers: a leaf reading
// the atom store (LinkTemplate) or nothing at all (Terminal), or an operator
// (AND, OR) over other Sources.
type Source interface {
	Element
	// Run executes the element, populating Output and calling Finish when
	// done or when ctx is cancelled.
	Run(ctx context.Context) error
}
