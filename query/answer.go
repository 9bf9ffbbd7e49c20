// Package query implements the query pipeline: sources that fetch candidate
// links from an atom store, operators that join and union their answers, and
// sinks that drain the result.
package query

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/xerrors"

	"github.com/das-systems/das-core/atom"
)

// Limits re-exported from the atom package so callers can pre-validate a
// token stream or a QueryAnswer before round-tripping it.
const (
	MaxNumberOfOperationClauses = atom.MaxNumberOfOperationClauses
	MaxNumberOfVariablesInQuery = atom.MaxNumberOfVariablesInQuery
	MaxVariableNameSize         = atom.MaxVariableNameSize
)

var ErrInvalidTokenString = xerrors.New("query: invalid token string")

// QueryAnswer is a candidate answer flowing through the query pipeline: the
// handles of the links that, together, satisfy a (sub-)query under the
// attached variable assignment, plus an importance/strength estimate derived
// from its constituents.
type QueryAnswer struct {
	Handles         []string
	Assignment      *atom.Assignment
	Importance      float64
	Strength        float64
	MettaExpression map[string]string
}

// NewQueryAnswer returns an empty answer with a fresh, empty assignment.
func NewQueryAnswer() *QueryAnswer {
	return &QueryAnswer{Assignment: atom.NewAssignment()}
}

// NewHandleAnswer returns a single-handle answer, as produced by a Terminal
// or by a LinkTemplate candidate before it is joined with any inner answer.
func NewHandleAnswer(handle string, importance float64) *QueryAnswer {
	return &QueryAnswer{Handles: []string{handle}, Importance: importance, Assignment: atom.NewAssignment()}
}

// AddHandle appends a handle to the answer, as new constituents are joined in.
func (qa *QueryAnswer) AddHandle(handle string) {
	qa.Handles = append(qa.Handles, handle)
}

// Copy makes a shallow copy: the assignment and metta map are cloned, but
// the underlying atom/handle strings are shared.
func (qa *QueryAnswer) Copy() *QueryAnswer {
	out := &QueryAnswer{
		Handles:    append([]string(nil), qa.Handles...),
		Assignment: qa.Assignment.Clone(),
		Importance: qa.Importance,
		Strength:   qa.Strength,
	}
	if qa.MettaExpression != nil {
		out.MettaExpression = make(map[string]string, len(qa.MettaExpression))
		for k, v := range qa.MettaExpression {
			out.MettaExpression[k] = v
		}
	}
	return out
}

// Merge folds other into qa: the assignments must be compatible (§4.3) or
// the merge fails and qa is left untouched. When merged, qa's importance
// becomes the max of the two, strength their product, and other's handles
// not already present in qa are appended.
func (qa *QueryAnswer) Merge(other *QueryAnswer) bool {
	if !qa.Assignment.IsCompatible(other.Assignment) {
		return false
	}
	merged := qa.Assignment.Clone()
	merged.AddAssignments(other.Assignment)
	qa.Assignment = merged
	if qa.Importance < other.Importance {
		qa.Importance = other.Importance
	}
	qa.Strength *= other.Strength
	seen := make(map[string]struct{}, len(qa.Handles))
	for _, h := range qa.Handles {
		seen[h] = struct{}{}
	}
	for _, h := range other.Handles {
		if _, ok := seen[h]; !ok {
			qa.Handles = append(qa.Handles, h)
			seen[h] = struct{}{}
		}
	}
	return true
}

// DedupeKey identifies an answer for the OR operator's union de-duplication:
// the sorted handle list plus the assignment's canonical string form.
func (qa *QueryAnswer) DedupeKey() string {
	handles := append([]string(nil), qa.Handles...)
	sort.Strings(handles)
	return strings.Join(handles, ",") + "|" + qa.Assignment.String()
}

func (qa *QueryAnswer) String() string {
	return fmt.Sprintf("QueryAnswer<%d,%d> %v %s (%.10f, %.10f)",
		len(qa.Handles), qa.Assignment.VariableCount(), qa.Handles, qa.Assignment.String(), qa.Strength, qa.Importance)
}

// Tokenize renders the answer as the single space-delimited wire format
// described in §6.1:
//
//	<strength:10dp> <importance:10dp> <N> <h1> … <hN> <M> <l1> <v1> … <lM> <vM> <K> [<hi> <metta_i>]*K
func (qa *QueryAnswer) Tokenize() (string, error) {
	if len(qa.Handles) > MaxNumberOfOperationClauses {
		return "", xerrors.Errorf("%w: %d handles exceeds MaxNumberOfOperationClauses", ErrInvalidTokenString, len(qa.Handles))
	}
	if qa.Assignment.VariableCount() > MaxNumberOfVariablesInQuery {
		return "", xerrors.Errorf("%w: %d assignments exceeds MaxNumberOfVariablesInQuery", ErrInvalidTokenString, qa.Assignment.VariableCount())
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%.10f %.10f %d", qa.Strength, qa.Importance, len(qa.Handles))
	for _, h := range qa.Handles {
		b.WriteString(" ")
		b.WriteString(h)
	}

	labels := qa.Assignment.Labels()
	fmt.Fprintf(&b, " %d", len(labels))
	for _, label := range labels {
		v, _ := qa.Assignment.Get(label)
		b.WriteString(" ")
		b.WriteString(label)
		b.WriteString(" ")
		b.WriteString(v)
	}

	mettaHandles := make([]string, 0, len(qa.MettaExpression))
	for h := range qa.MettaExpression {
		mettaHandles = append(mettaHandles, h)
	}
	sort.Strings(mettaHandles)
	fmt.Fprintf(&b, " %d", len(mettaHandles))
	for _, h := range mettaHandles {
		b.WriteString(" ")
		b.WriteString(h)
		b.WriteString(" ")
		b.WriteString(encodeMettaExpression(qa.MettaExpression[h]))
	}

	return b.String(), nil
}

// encodeMettaExpression wraps an expression in double quotes (escaping any
// embedded quote or backslash) unless it starts with '(' (taken to be a
// parenthesised S-expression; balance is not checked here) or contains no
// space, tab, quote or parenthesis, in which case it is written bare.
func encodeMettaExpression(expr string) string {
	if len(expr) > 0 && expr[0] == '(' {
		return expr
	}
	if !strings.ContainsAny(expr, " \t\"()") {
		return expr
	}
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(expr); i++ {
		c := expr[i]
		if c == '"' || c == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	b.WriteByte('"')
	return b.String()
}

// Untokenize parses the wire format produced by Tokenize into a new
// QueryAnswer.
func Untokenize(tokens string) (*QueryAnswer, error) {
	cursor := 0
	next := func() (string, error) {
		for cursor < len(tokens) && tokens[cursor] == ' ' {
			cursor++
		}
		start := cursor
		for cursor < len(tokens) && tokens[cursor] != ' ' {
			cursor++
		}
		if start == cursor {
			return "", xerrors.Errorf("%w: unexpected end of tokens", ErrInvalidTokenString)
		}
		return tokens[start:cursor], nil
	}
	nextInt := func() (int, error) {
		tok, err := next()
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(tok)
		if err != nil {
			return 0, xerrors.Errorf("%w: %s is not a number", ErrInvalidTokenString, tok)
		}
		return n, nil
	}

	qa := NewQueryAnswer()

	strengthTok, err := next()
	if err != nil {
		return nil, err
	}
	qa.Strength, err = strconv.ParseFloat(strengthTok, 64)
	if err != nil {
		return nil, xerrors.Errorf("%w: invalid strength %q", ErrInvalidTokenString, strengthTok)
	}

	importanceTok, err := next()
	if err != nil {
		return nil, err
	}
	qa.Importance, err = strconv.ParseFloat(importanceTok, 64)
	if err != nil {
		return nil, xerrors.Errorf("%w: invalid importance %q", ErrInvalidTokenString, importanceTok)
	}

	n, err := nextInt()
	if err != nil {
		return nil, err
	}
	if n > MaxNumberOfOperationClauses {
		return nil, xerrors.Errorf("%w: %d handles exceeds MaxNumberOfOperationClauses", ErrInvalidTokenString, n)
	}
	for i := 0; i < n; i++ {
		h, err := next()
		if err != nil {
			return nil, err
		}
		qa.Handles = append(qa.Handles, h)
	}

	m, err := nextInt()
	if err != nil {
		return nil, err
	}
	if m > MaxNumberOfVariablesInQuery {
		return nil, xerrors.Errorf("%w: %d assignments exceeds MaxNumberOfVariablesInQuery", ErrInvalidTokenString, m)
	}
	for i := 0; i < m; i++ {
		label, err := next()
		if err != nil {
			return nil, err
		}
		if len(label) > MaxVariableNameSize {
			return nil, xerrors.Errorf("%w: variable name %q exceeds MaxVariableNameSize", ErrInvalidTokenString, label)
		}
		v, err := next()
		if err != nil {
			return nil, err
		}
		qa.Assignment.Assign(label, v)
	}

	k, err := nextInt()
	if err != nil {
		return nil, err
	}
	if k > 0 {
		qa.MettaExpression = make(map[string]string, k)
		for i := 0; i < k; i++ {
			for cursor < len(tokens) && tokens[cursor] == ' ' {
				cursor++
			}
			start := cursor
			for cursor < len(tokens) && tokens[cursor] != ' ' {
				cursor++
			}
			if start == cursor {
				return nil, xerrors.Errorf("%w: unexpected end of tokens", ErrInvalidTokenString)
			}
			h := tokens[start:cursor]
			cursor++ // skip the separating space

			expr, err := readMettaExpression(tokens, &cursor)
			if err != nil {
				return nil, err
			}
			qa.MettaExpression[h] = expr
		}
	}

	return qa, nil
}

// readMettaExpression consumes one metta expression token starting at
// *cursor: a balanced, backslash-escapable "(...)" or "\"...\"" span, or (if
// neither delimiter opens it) a bare symbol ending at the next space.
func readMettaExpression(tokens string, cursor *int) (string, error) {
	start := *cursor
	if start >= len(tokens) {
		return "", xerrors.Errorf("%w: missing metta expression", ErrInvalidTokenString)
	}

	var open, close byte
	switch tokens[start] {
	case '(':
		open, close = '(', ')'
	case '"':
		open, close = '"', '"'
	default:
		end := start
		for end < len(tokens) && tokens[end] != ' ' {
			end++
		}
		*cursor = end + 1
		return tokens[start:end], nil
	}

	unmatched := 1
	i := start
	for unmatched > 0 {
		i++
		if i >= len(tokens) {
			return "", xerrors.Errorf("%w: unbalanced metta expression", ErrInvalidTokenString)
		}
		switch {
		case tokens[i] == close && tokens[i-1] != '\\':
			unmatched--
		case tokens[i] == open && tokens[i-1] != '\\' && open != close:
			unmatched++
		}
	}
	end := i + 1
	*cursor = end + 1
	return tokens[start:end], nil
}
