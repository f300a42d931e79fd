package atom

import "github.com/cuemby/protobase/internal/protoerr"

const literalClassName = "literal"

// Literal is the atom backing the literal pool (spec §9 / SPEC_FULL §B):
// every ordinary string field is persisted as a pointer reference to one of
// these rather than inlined, so repeated strings share a single on-disk
// copy once the pool has interned them.
type Literal struct {
	Base
	Content string
}

func init() {
	Register(literalClassName, func() Atom { return &Literal{} })
}

// NewLiteral builds an unsaved literal atom holding s.
func NewLiteral(s string) *Literal { return &Literal{Content: s} }

func (l *Literal) ClassName() string { return literalClassName }

func (l *Literal) Fields() []Field {
	return []Field{{Name: "string", Value: RawStr(l.Content)}}
}

func (l *Literal) LoadFields(fields map[string]Value) error {
	v, ok := fields["string"]
	if !ok {
		return protoerr.ErrFieldMissing
	}
	l.Content = v.Text
	return nil
}

// Pool interns strings for as long as the pool lives (an object space keeps
// one for all its transactions): repeated calls with equal text return the
// same *Literal instance (and, once saved, the same Pointer), so a string
// set in a hundred fields is only ever written once.
type Pool struct {
	byText map[string]*Literal
}

// NewPool builds an empty literal pool.
func NewPool() *Pool {
	return &Pool{byText: make(map[string]*Literal)}
}

// Intern returns the pool's Literal for s, creating one on first use.
func (p *Pool) Intern(s string) *Literal {
	if lit, ok := p.byText[s]; ok {
		return lit
	}
	lit := NewLiteral(s)
	p.byText[s] = lit
	return lit
}
