package hashdict

import (
	"github.com/cuemby/protobase/atom"
	"github.com/cuemby/protobase/internal/protoerr"
)

const nodeClassName = "protobase.hashdict_node"

// Node is one key/value entry plus its AVL subtree.
type Node struct {
	atom.Base
	key    int32
	value  atom.Value
	left   *childRef
	right  *childRef
	height int
	count  int
}

func init() {
	atom.Register(nodeClassName, func() atom.Atom { return &Node{} })
}

func (n *Node) ClassName() string { return nodeClassName }

func (n *Node) Fields() []atom.Field {
	return []atom.Field{
		{Name: "key", Value: atom.Int(int64(n.key))},
		{Name: "value", Value: n.value},
		{Name: "left", Value: n.left.fieldValue()},
		{Name: "right", Value: n.right.fieldValue()},
		{Name: "height", Value: atom.Int(int64(n.height))},
		{Name: "count", Value: atom.Int(int64(n.count))},
	}
}

func (n *Node) LoadFields(fields map[string]atom.Value) error {
	k, ok := fields["key"].AsInt64()
	if !ok {
		return protoerr.ErrFieldMissing
	}
	n.key = int32(k)
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
		return nil, protoerr.CorruptionErrorf("expected hashdict node, got %s", a.ClassName())
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

func newNode(left *Node, key int32, value atom.Value, right *Node) *Node {
	h := height(left)
	if rh := height(right); rh > h {
		h = rh
	}
	return &Node{
		key:    key,
		value:  value,
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

// balanced rebuilds a node from its (possibly just-changed) children and
// restores the AVL invariant with at most one rotation.
func balanced(left *Node, key int32, value atom.Value, right *Node) (*Node, error) {
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
			return newNode(ll, left.key, left.value, newNode(lr, key, value, right)), nil
		}
		lrl, err := getChild(lr, true)
		if err != nil {
			return nil, err
		}
		lrr, err := getChild(lr, false)
		if err != nil {
			return nil, err
		}
		return newNode(newNode(ll, left.key, left.value, lrl), lr.key, lr.value, newNode(lrr, key, value, right)), nil
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
			return newNode(newNode(left, key, value, rl), right.key, right.value, rr), nil
		}
		rll, err := getChild(rl, true)
		if err != nil {
			return nil, err
		}
		rlr, err := getChild(rl, false)
		if err != nil {
			return nil, err
		}
		return newNode(newNode(left, key, value, rll), rl.key, rl.value, newNode(rlr, right.key, right.value, rr)), nil
	default:
		return newNode(left, key, value, right), nil
	}
}
