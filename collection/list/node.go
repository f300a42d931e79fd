package list

import (
	"github.com/cuemby/protobase/atom"
	"github.com/cuemby/protobase/internal/protoerr"
)

const nodeClassName = "protobase.list_node"

// Node is one element of a persistent, AVL-balanced rank tree: the
// underlying representation for both List (C4) and, reused verbatim, the
// (key, value) sequence Dict (C5) sorts into order_key order.
type Node struct {
	atom.Base
	value atom.Value
	left  *childRef
	right *childRef

	height int
	count  int // size of the subtree rooted at this node, including itself
}

func init() {
	atom.Register(nodeClassName, func() atom.Atom { return &Node{} })
}

func (n *Node) ClassName() string { return nodeClassName }

func (n *Node) Fields() []atom.Field {
	return []atom.Field{
		{Name: "value", Value: n.value},
		{Name: "left", Value: n.left.fieldValue()},
		{Name: "right", Value: n.right.fieldValue()},
		{Name: "height", Value: atom.Int(int64(n.height))},
		{Name: "count", Value: atom.Int(int64(n.count))},
	}
}

func (n *Node) LoadFields(fields map[string]atom.Value) error {
	n.value = fields["value"]
	n.left = childFromValue(fields["left"])
	n.right = childFromValue(fields["right"])
	if h, ok := fields["height"].AsInt64(); ok {
		n.height = int(h)
	}
	if c, ok := fields["count"].AsInt64(); ok {
		n.count = int(c)
	}
	return nil
}

// childRef lazily resolves a child slot: either already-materialized
// in-memory (freshly built or previously resolved), an unresolved on-disk
// reference, or empty. A nil *childRef also means empty, so every node
// always has non-nil left/right fields in practice but callers never need
// to special-case a bare nil.
type childRef struct {
	resolved *Node
	raw      atom.Value
}

func childFromNode(n *Node) *childRef {
	if n == nil {
		return &childRef{}
	}
	return &childRef{resolved: n, raw: atom.FromAtom(n)}
}

func childFromValue(v atom.Value) *childRef {
	return &childRef{raw: v}
}

func (c *childRef) get() (*Node, error) {
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
	n, ok := a.(*Node)
	if !ok {
		return nil, protoerr.CorruptionErrorf("expected list node, got %s", a.ClassName())
	}
	c.resolved = n
	return n, nil
}

func (c *childRef) fieldValue() atom.Value {
	if c == nil {
		return atom.Nil()
	}
	if c.resolved != nil {
		return atom.FromAtom(c.resolved)
	}
	return c.raw
}

func height(n *Node) int {
	if n == nil {
		return 0
	}
	return n.height
}

func count(n *Node) int {
	if n == nil {
		return 0
	}
	return n.count
}

func newNode(left *Node, v atom.Value, right *Node) *Node {
	h := height(left)
	if rh := height(right); rh > h {
		h = rh
	}
	return &Node{
		value:  v,
		left:   childFromNode(left),
		right:  childFromNode(right),
		height: h + 1,
		count:  1 + count(left) + count(right),
	}
}

func getChild(n *Node, left bool) (*Node, error) {
	if n == nil {
		return nil, nil
	}
	if left {
		return n.left.get()
	}
	return n.right.get()
}

// balanced is the smart constructor every structural change goes through:
// it rebuilds a node from its (possibly just-changed) children and restores
// the AVL invariant with at most one single or double rotation, which
// suffices because a single insert/delete changes a subtree's height by at
// most one.
func balanced(left *Node, v atom.Value, right *Node) (*Node, error) {
	bf := height(left) - height(right)
	switch {
	case bf > 1:
		ll, err := getChild(left, true)
		if err != nil {
			return nil, err
		}
		lr, err := getChild(left, false)
		if err != nil {
			return nil, err
		}
		if height(ll) >= height(lr) {
			return newNode(ll, left.value, newNode(lr, v, right)), nil
		}
		lrl, err := getChild(lr, true)
		if err != nil {
			return nil, err
		}
		lrr, err := getChild(lr, false)
		if err != nil {
			return nil, err
		}
		return newNode(newNode(ll, left.value, lrl), lr.value, newNode(lrr, v, right)), nil
	case bf < -1:
		rl, err := getChild(right, true)
		if err != nil {
			return nil, err
		}
		rr, err := getChild(right, false)
		if err != nil {
			return nil, err
		}
		if height(rr) >= height(rl) {
			return newNode(newNode(left, v, rl), right.value, rr), nil
		}
		rll, err := getChild(rl, true)
		if err != nil {
			return nil, err
		}
		rlr, err := getChild(rl, false)
		if err != nil {
			return nil, err
		}
		return newNode(newNode(left, v, rll), rl.value, newNode(rlr, right.value, rr)), nil
	default:
		return newNode(left, v, right), nil
	}
}
