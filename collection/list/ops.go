package list

import (
	"github.com/cuemby/protobase/atom"
	"github.com/cuemby/protobase/internal/protoerr"
)

func getAt(n *Node, i int) (atom.Value, error) {
	if n == nil {
		return atom.Value{}, protoerr.ValidationErrorf("list index %d out of range", i)
	}
	left, err := n.left.get()
	if err != nil {
		return atom.Value{}, err
	}
	lc := count(left)
	switch {
	case i < lc:
		return getAt(left, i)
	case i == lc:
		return n.value, nil
	default:
		right, err := n.right.get()
		if err != nil {
			return atom.Value{}, err
		}
		return getAt(right, i-lc-1)
	}
}

func setAt(n *Node, i int, v atom.Value) (*Node, error) {
	if n == nil {
		return nil, protoerr.ValidationErrorf("list index %d out of range", i)
	}
	left, err := n.left.get()
	if err != nil {
		return nil, err
	}
	right, err := n.right.get()
	if err != nil {
		return nil, err
	}
	lc := count(left)
	switch {
	case i < lc:
		newLeft, err := setAt(left, i, v)
		if err != nil {
			return nil, err
		}
		return newNode(newLeft, n.value, right), nil
	case i == lc:
		return newNode(left, v, right), nil
	default:
		newRight, err := setAt(right, i-lc-1, v)
		if err != nil {
			return nil, err
		}
		return newNode(left, n.value, newRight), nil
	}
}

func insertAt(n *Node, i int, v atom.Value) (*Node, error) {
	if n == nil {
		return newNode(nil, v, nil), nil
	}
	left, err := n.left.get()
	if err != nil {
		return nil, err
	}
	right, err := n.right.get()
	if err != nil {
		return nil, err
	}
	lc := count(left)
	if i <= lc {
		newLeft, err := insertAt(left, i, v)
		if err != nil {
			return nil, err
		}
		return balanced(newLeft, n.value, right)
	}
	newRight, err := insertAt(right, i-lc-1, v)
	if err != nil {
		return nil, err
	}
	return balanced(left, n.value, newRight)
}

func removeAt(n *Node, i int) (*Node, error) {
	if n == nil {
		return nil, protoerr.ValidationErrorf("list index %d out of range", i)
	}
	left, err := n.left.get()
	if err != nil {
		return nil, err
	}
	right, err := n.right.get()
	if err != nil {
		return nil, err
	}
	lc := count(left)
	switch {
	case i < lc:
		newLeft, err := removeAt(left, i)
		if err != nil {
			return nil, err
		}
		return balanced(newLeft, n.value, right)
	case i > lc:
		newRight, err := removeAt(right, i-lc-1)
		if err != nil {
			return nil, err
		}
		return balanced(left, n.value, newRight)
	default:
		if left == nil {
			return right, nil
		}
		if right == nil {
			return left, nil
		}
		succVal, newRight, err := removeMin(right)
		if err != nil {
			return nil, err
		}
		return balanced(left, succVal, newRight)
	}
}

// removeMin removes and returns the leftmost (minimum-rank) value of n,
// used to pick the in-order successor when deleting a node with two
// children.
func removeMin(n *Node) (atom.Value, *Node, error) {
	left, err := n.left.get()
	if err != nil {
		return atom.Value{}, nil, err
	}
	right, err := n.right.get()
	if err != nil {
		return atom.Value{}, nil, err
	}
	if left == nil {
		return n.value, right, nil
	}
	v, newLeft, err := removeMin(left)
	if err != nil {
		return atom.Value{}, nil, err
	}
	newN, err := balanced(newLeft, n.value, right)
	return v, newN, err
}

func inorder(n *Node, visit func(atom.Value) error) error {
	if n == nil {
		return nil
	}
	left, err := n.left.get()
	if err != nil {
		return err
	}
	if err := inorder(left, visit); err != nil {
		return err
	}
	if err := visit(n.value); err != nil {
		return err
	}
	right, err := n.right.get()
	if err != nil {
		return err
	}
	return inorder(right, visit)
}
