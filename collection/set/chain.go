package set

import (
	"github.com/cuemby/protobase/atom"
	"github.com/cuemby/protobase/internal/protoerr"
)

const chainClassName = "protobase.set_chain"

// chainNode is one link of the singly linked list a hash bucket holds:
// every element whose stable_hash_32 collided into the same int32 key.
type chainNode struct {
	atom.Base
	value atom.Value
	next  *chainRef
}

func init() {
	atom.Register(chainClassName, func() atom.Atom { return &chainNode{} })
}

func (c *chainNode) ClassName() string { return chainClassName }

func (c *chainNode) Fields() []atom.Field {
	return []atom.Field{
		{Name: "value", Value: c.value},
		{Name: "next", Value: c.next.fieldValue()},
	}
}

func (c *chainNode) LoadFields(fields map[string]atom.Value) error {
	c.value = fields["value"]
	c.next = chainRefFromValue(fields["next"])
	return nil
}

// chainRef lazily resolves the next link, the same pattern collection/list
// and collection/hashdict use for their child slots.
type chainRef struct {
	resolved *chainNode
	raw      atom.Value
}

func chainRefFromNode(n *chainNode) *chainRef {
	if n == nil {
		return &chainRef{}
	}
	return &chainRef{resolved: n, raw: atom.FromAtom(n)}
}

func chainRefFromValue(v atom.Value) *chainRef {
	return &chainRef{raw: v}
}

func (c *chainRef) get() (*chainNode, error) {
	if c == nil {
		return nil, nil
	}
	if c.resolved != nil {
		return c.resolved, nil
	}
	a, err := c.raw.Resolve()
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, nil
	}
	n, ok := a.(*chainNode)
	if !ok {
		return nil, protoerr.CorruptionErrorf("expected set chain node, got %s", a.ClassName())
	}
	c.resolved = n
	return n, nil
}

func (c *chainRef) fieldValue() atom.Value {
	if c == nil {
		return atom.Nil()
	}
	if c.resolved != nil {
		return atom.FromAtom(c.resolved)
	}
	return c.raw
}

func resolveChainHead(v atom.Value) (*chainNode, error) {
	a, err := v.Resolve()
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, nil
	}
	n, ok := a.(*chainNode)
	if !ok {
		return nil, protoerr.CorruptionErrorf("expected set chain node, got %s", a.ClassName())
	}
	return n, nil
}

func chainContains(n *chainNode, x atom.Value) (bool, error) {
	for n != nil {
		if n.value.Equal(x) {
			return true, nil
		}
		next, err := n.next.get()
		if err != nil {
			return false, err
		}
		n = next
	}
	return false, nil
}

func chainPrepend(head *chainNode, x atom.Value) *chainNode {
	return &chainNode{value: x, next: chainRefFromNode(head)}
}

// chainRemove splices x out of the chain rooted at n, reporting whether it
// was found.
func chainRemove(n *chainNode, x atom.Value) (*chainNode, bool, error) {
	if n == nil {
		return nil, false, nil
	}
	next, err := n.next.get()
	if err != nil {
		return nil, false, err
	}
	if n.value.Equal(x) {
		return next, true, nil
	}
	newNext, removed, err := chainRemove(next, x)
	if err != nil || !removed {
		return n, removed, err
	}
	return &chainNode{value: n.value, next: chainRefFromNode(newNext)}, true, nil
}

func chainForEach(n *chainNode, visit func(atom.Value) error) error {
	for n != nil {
		if err := visit(n.value); err != nil {
			return err
		}
		next, err := n.next.get()
		if err != nil {
			return err
		}
		n = next
	}
	return nil
}
