// Package lang parses the flat query token stream of spec.md §6.2
// (NODE/LINK/ATOM/VARIABLE/LINK_TEMPLATE/AND/OR/NOT) into a query.Source
// DAG ready to run. It is the only place in this repository that
// understands that grammar; query itself stays token-format agnostic.
package lang

import (
	"context"
	"strconv"
	"strings"

	"golang.org/x/xerrors"

	"github.com/das-systems/das-core/atom"
	"github.com/das-systems/das-core/query"
)

// ErrInvalidQuery is returned for any malformed token stream: an unknown
// token, a truncated stream, or an arity that does not match its targets.
var ErrInvalidQuery = xerrors.New("lang: invalid query token stream")

// Tokenize splits a query string on whitespace into the flat token stream
// Parse expects. Target/type/name tokens never contain whitespace
// themselves in this grammar (unlike QueryAnswer's metta expressions, which
// have their own escaping rules in query.Untokenize).
func Tokenize(text string) []string {
	return strings.Fields(text)
}

// Parser walks a token stream, building LinkTemplates (and the atoms their
// concrete targets require) against store, ranked through importance.
type Parser struct {
	tokens     []string
	pos        int
	store      query.AtomStore
	importance query.ImportanceSource
	importCtx  string
}

// NewParser returns a Parser over tokens. store resolves ATOM references and
// backs every LinkTemplate; importance ranks their candidates.
func NewParser(tokens []string, store query.AtomStore, importance query.ImportanceSource, importanceContext string) *Parser {
	return &Parser{tokens: tokens, store: store, importance: importance, importCtx: importanceContext}
}

// Parse parses the entire token stream as a single query, returning its root
// Source. Parse fails if tokens are left over after the root form.
func Parse(tokens []string, store query.AtomStore, importance query.ImportanceSource, importanceContext string) (query.Source, error) {
	p := NewParser(tokens, store, importance, importanceContext)
	src, err := p.parseSource()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.tokens) {
		return nil, xerrors.Errorf("%w: %d trailing tokens", ErrInvalidQuery, len(p.tokens)-p.pos)
	}
	return src, nil
}

func (p *Parser) next() (string, error) {
	if p.pos >= len(p.tokens) {
		return "", xerrors.Errorf("%w: unexpected end of tokens", ErrInvalidQuery)
	}
	tok := p.tokens[p.pos]
	p.pos++
	return tok, nil
}

func (p *Parser) nextInt() (int, error) {
	tok, err := p.next()
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, xerrors.Errorf("%w: %q is not a number", ErrInvalidQuery, tok)
	}
	return n, nil
}

// parseSource parses one of LINK_TEMPLATE/AND/OR/NOT: the forms that can
// sit at the root of a query, or as a child of AND/OR/NOT.
func (p *Parser) parseSource() (query.Source, error) {
	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	switch tok {
	case "LINK_TEMPLATE":
		return p.parseLinkTemplate()
	case "AND":
		return p.parseAND()
	case "OR":
		return p.parseOR()
	case "NOT":
		return p.parseNOT()
	default:
		return nil, xerrors.Errorf("%w: unexpected token %q, want a source form", ErrInvalidQuery, tok)
	}
}

func (p *Parser) parseLinkTemplate() (*query.LinkTemplate, error) {
	typeName, err := p.next()
	if err != nil {
		return nil, err
	}
	arity, err := p.nextInt()
	if err != nil {
		return nil, err
	}
	targets := make([]query.TemplateTarget, arity)
	for i := 0; i < arity; i++ {
		targets[i], err = p.parseTarget()
		if err != nil {
			return nil, err
		}
	}
	return query.NewLinkTemplate(typeName, targets, p.store, p.importance, p.importCtx)
}

// parseTarget parses one target_token of a LINK_TEMPLATE: NODE, VARIABLE,
// ATOM, LINK (concrete), or a nested LINK_TEMPLATE.
func (p *Parser) parseTarget() (query.TemplateTarget, error) {
	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	switch tok {
	case "NODE":
		typeName, name, err := p.twoStrings()
		if err != nil {
			return nil, err
		}
		return query.NewNodeTerminal(typeName, name)
	case "VARIABLE":
		name, err := p.next()
		if err != nil {
			return nil, err
		}
		return query.NewVariableTerminal(name)
	case "ATOM":
		handle, err := p.next()
		if err != nil {
			return nil, err
		}
		return query.NewAtomTerminal(handle, p.store)
	case "LINK":
		return p.parseConcreteLinkTerminal()
	case "LINK_TEMPLATE":
		return p.parseLinkTemplate()
	default:
		return nil, xerrors.Errorf("%w: unexpected token %q, want a target form", ErrInvalidQuery, tok)
	}
}

func (p *Parser) twoStrings() (string, string, error) {
	a, err := p.next()
	if err != nil {
		return "", "", err
	}
	b, err := p.next()
	if err != nil {
		return "", "", err
	}
	return a, b, nil
}

// parseConcreteLinkTerminal parses a LINK target_token: a fully-resolved
// link built from concrete sub-targets only (no VARIABLE), wrapped as a
// Terminal.
func (p *Parser) parseConcreteLinkTerminal() (*query.Terminal, error) {
	typeName, err := p.next()
	if err != nil {
		return nil, err
	}
	arity, err := p.nextInt()
	if err != nil {
		return nil, err
	}
	targets := make([]string, arity)
	for i := 0; i < arity; i++ {
		targets[i], err = p.parseConcreteHandle()
		if err != nil {
			return nil, err
		}
	}
	return query.NewLinkTerminal(typeName, targets)
}

// parseConcreteHandle parses a NODE, ATOM, or nested LINK token_tree and
// returns the handle it resolves to.
func (p *Parser) parseConcreteHandle() (string, error) {
	tok, err := p.next()
	if err != nil {
		return "", err
	}
	switch tok {
	case "NODE":
		typeName, name, err := p.twoStrings()
		if err != nil {
			return "", err
		}
		n, err := atom.NewNode(typeName, name, nil)
		if err != nil {
			return "", err
		}
		return n.Handle(), nil
	case "ATOM":
		return p.next()
	case "LINK":
		typeName, err := p.next()
		if err != nil {
			return "", err
		}
		arity, err := p.nextInt()
		if err != nil {
			return "", err
		}
		targets := make([]string, arity)
		for i := 0; i < arity; i++ {
			targets[i], err = p.parseConcreteHandle()
			if err != nil {
				return "", err
			}
		}
		l, err := atom.NewLink(typeName, targets, nil)
		if err != nil {
			return "", err
		}
		return l.Handle(), nil
	default:
		return "", xerrors.Errorf("%w: unexpected token %q inside a concrete LINK", ErrInvalidQuery, tok)
	}
}

func (p *Parser) parseAND() (*query.AND, error) {
	k, err := p.nextInt()
	if err != nil {
		return nil, err
	}
	children := make([]query.Source, k)
	for i := 0; i < k; i++ {
		children[i], err = p.parseSource()
		if err != nil {
			return nil, err
		}
	}
	return query.NewAND(children)
}

func (p *Parser) parseOR() (*query.OR, error) {
	k, err := p.nextInt()
	if err != nil {
		return nil, err
	}
	children := make([]query.Source, k)
	for i := 0; i < k; i++ {
		children[i], err = p.parseSource()
		if err != nil {
			return nil, err
		}
	}
	return query.NewOR(children)
}

// ErrNotUnsupported is returned when a NOT query is actually run. The
// grammar accepts NOT (spec.md §6.2 marks it "documented, optional") but its
// negation semantics over a streaming, potentially-infinite candidate space
// are not specified; rather than guess, NOT parses successfully (so well-
// formed token streams round-trip) but fails at Run time, matching
// set_determiners' "implement as a no-op unless a precise specification is
// supplied" resolution for other underspecified surfaces (spec.md §9 Open
// Questions).
var ErrNotUnsupported = xerrors.New("lang: NOT queries are not implemented")

type notSource struct {
	child query.Source
	out   *query.AnswerQueue
}

func (p *Parser) parseNOT() (query.Source, error) {
	child, err := p.parseSource()
	if err != nil {
		return nil, err
	}
	return &notSource{child: child, out: query.NewAnswerQueue()}, nil
}

func (n *notSource) Output() *query.AnswerQueue { return n.out }

func (n *notSource) Run(ctx context.Context) error {
	defer n.out.Finish()
	return ErrNotUnsupported
}
