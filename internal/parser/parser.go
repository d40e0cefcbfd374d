package parser

import (
	"fmt"
	"os"
	"strings"
)

// Invocation is a single program call. Argv[0] names the program; an
// empty Argv is a no-op.
type Invocation struct {
	Argv []string
}

func (inv Invocation) Empty() bool {
	return len(inv.Argv) == 0
}

func (inv Invocation) Name() string {
	if inv.Empty() {
		return ""
	}
	return inv.Argv[0]
}

func (inv Invocation) Args() []string {
	if inv.Empty() {
		return nil
	}
	return inv.Argv[1:]
}

func (inv Invocation) String() string {
	quoted := make([]string, len(inv.Argv))
	for i, arg := range inv.Argv {
		quoted[i] = fmt.Sprintf("%q", arg)
	}
	return "[" + strings.Join(quoted, ",") + "]"
}

type GroupKind int

const (
	Basic GroupKind = iota
	Sequential
	Piped
)

func (k GroupKind) String() string {
	switch k {
	case Basic:
		return "Basic"
	case Sequential:
		return "Sequential"
	case Piped:
		return "Piped"
	default:
		return fmt.Sprintf("GroupKind(%d)", int(k))
	}
}

// CallGroup is one schedulable unit of an input line.
type CallGroup struct {
	Kind        GroupKind
	Invocations []Invocation
	Background  bool
}

func (g CallGroup) String() string {
	parts := make([]string, len(g.Invocations))
	for i, inv := range g.Invocations {
		parts[i] = inv.String()
	}
	return fmt.Sprintf("CallGroup { kind: %s, background: %t, invocations: [%s] }",
		g.Kind, g.Background, strings.Join(parts, ", "))
}

// Plan is the execution plan of one input line. Err is set on a parse
// failure, in which case Groups is empty.
type Plan struct {
	Groups []CallGroup
	Err    error
}

func (p Plan) String() string {
	parts := make([]string, len(p.Groups))
	for i, g := range p.Groups {
		parts[i] = g.String()
	}
	return fmt.Sprintf("Plan { len: %d, parse_error: %t, groups: [%s] }",
		len(p.Groups), p.Err != nil, strings.Join(parts, ", "))
}

// Parse tokenizes and builds line, expanding $NAME arguments from the
// process environment.
func Parse(line string) Plan {
	return ParseWithEnv(line, os.Getenv)
}

func ParseWithEnv(line string, getenv func(string) string) Plan {
	tokens, err := Tokenize(line)
	if err != nil {
		return Plan{Err: err}
	}
	return Build(tokens, getenv)
}

// Build folds tokens into call groups.
func Build(tokens []Token, getenv func(string) string) Plan {
	b := &builder{getenv: getenv}
	for _, tok := range tokens {
		if !tok.Kind.IsOperator() {
			b.words = append(b.words, tok.Text)
			continue
		}
		b.operator(tok)
	}
	b.finish()
	return Plan{Groups: b.groups}
}

type builder struct {
	getenv func(string) string
	groups []CallGroup
	cur    CallGroup
	words  []string
	// set once the current group is marked background; the next
	// invocation starts a new group
	sealed bool
}

func (b *builder) operator(tok Token) {
	if tok.Text != "" {
		b.words = append(b.words, tok.Text)
	}
	inv := b.closeInvocation()
	if b.sealed {
		if inv.Empty() {
			return
		}
		b.push()
	}

	expected := b.cur.Kind
	switch tok.Kind {
	case Pipe:
		expected = Piped
	case SequentialAnd:
		expected = Sequential
	}

	if b.cur.Kind == Basic || b.cur.Kind == expected {
		b.cur.Kind = expected
		b.cur.Invocations = append(b.cur.Invocations, inv)
	} else {
		b.push()
		b.cur = CallGroup{Kind: expected, Invocations: []Invocation{inv}}
	}

	if tok.Kind == Background {
		b.cur.Background = true
		b.sealed = true
	}
}

func (b *builder) finish() {
	if len(b.words) > 0 {
		inv := b.closeInvocation()
		if b.sealed {
			b.push()
		}
		b.cur.Invocations = append(b.cur.Invocations, inv)
	}
	b.push()
}

func (b *builder) push() {
	g := b.cur
	if g.Kind != Basic && len(g.Invocations) < 2 {
		g.Kind = Basic
	}
	b.groups = append(b.groups, g)
	b.cur = CallGroup{}
	b.sealed = false
}

func (b *builder) closeInvocation() Invocation {
	argv := make([]string, 0, len(b.words))
	for _, w := range b.words {
		w = expandVar(w, b.getenv)
		if w != "" {
			argv = append(argv, w)
		}
	}
	b.words = nil
	return Invocation{Argv: argv}
}

func expandVar(word string, getenv func(string) string) string {
	if len(word) < 2 || word[0] != '$' {
		return word
	}
	if getenv == nil {
		return ""
	}
	return getenv(word[1:])
}
