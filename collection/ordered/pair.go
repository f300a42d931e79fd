package ordered

import (
	"github.com/cuemby/protobase/atom"
	"github.com/cuemby/protobase/internal/protoerr"
)

const pairClassName = "protobase.kv_pair"

// pairAtom is the (key, value) unit a Dict's backing list stores one of per
// entry, kept sorted by order_key(key).
type pairAtom struct {
	atom.Base
	key   atom.Value
	value atom.Value
}

func init() {
	atom.Register(pairClassName, func() atom.Atom { return &pairAtom{} })
}

func (p *pairAtom) ClassName() string { return pairClassName }

func (p *pairAtom) Fields() []atom.Field {
	return []atom.Field{
		{Name: "key", Value: p.key},
		{Name: "value", Value: p.value},
	}
}

func (p *pairAtom) LoadFields(fields map[string]atom.Value) error {
	p.key = fields["key"]
	p.value = fields["value"]
	return nil
}

func pairOf(v atom.Value) (*pairAtom, error) {
	a, err := v.Resolve()
	if err != nil {
		return nil, err
	}
	pr, ok := a.(*pairAtom)
	if !ok {
		return nil, protoerr.CorruptionErrorf("expected kv_pair atom, got %T", a)
	}
	return pr, nil
}
