package hashdict

import "github.com/cuemby/protobase/atom"

func get(n *Node, key int32) (atom.Value, bool, error) {
	for n != nil {
		switch {
		case key == n.key:
			return n.value, true, nil
		case key < n.key:
			left, err := n.left.get()
			if err != nil {
				return atom.Value{}, false, err
			}
			n = left
		default:
			right, err := n.right.get()
			if err != nil {
				return atom.Value{}, false, err
			}
			n = right
		}
	}
	return atom.Value{}, false, nil
}

func set(n *Node, key int32, value atom.Value) (*Node, error) {
	if n == nil {
		return newNode(nil, key, value, nil), nil
	}
	left, err := n.left.get()
	if err != nil {
		return nil, err
	}
	right, err := n.right.get()
	if err != nil {
		return nil, err
	}
	switch {
	case key == n.key:
		return newNode(left, key, value, right), nil
	case key < n.key:
		newLeft, err := set(left, key, value)
		if err != nil {
			return nil, err
		}
		return balanced(newLeft, n.key, n.value, right)
	default:
		newRight, err := set(right, key, value)
		if err != nil {
			return nil, err
		}
		return balanced(left, n.key, n.value, newRight)
	}
}

func remove(n *Node, key int32) (*Node, bool, error) {
	if n == nil {
		return nil, false, nil
	}
	left, err := n.left.get()
	if err != nil {
		return nil, false, err
	}
	right, err := n.right.get()
	if err != nil {
		return nil, false, err
	}
	switch {
	case key < n.key:
		newLeft, removed, err := remove(left, key)
		if err != nil || !removed {
			return n, removed, err
		}
		balancedNode, err := balanced(newLeft, n.key, n.value, right)
		return balancedNode, true, err
	case key > n.key:
		newRight, removed, err := remove(right, key)
		if err != nil || !removed {
			return n, removed, err
		}
		balancedNode, err := balanced(left, n.key, n.value, newRight)
		return balancedNode, true, err
	default:
		if left == nil {
			return right, true, nil
		}
		if right == nil {
			return left, true, nil
		}
		succKey, succVal, newRight, err := removeMin(right)
		if err != nil {
			return nil, false, err
		}
		balancedNode, err := balanced(left, succKey, succVal, newRight)
		return balancedNode, true, err
	}
}

func removeMin(n *Node) (int32, atom.Value, *Node, error) {
	left, err := n.left.get()
	if err != nil {
		return 0, atom.Value{}, nil, err
	}
	if left == nil {
		right, err := n.right.get()
		if err != nil {
			return 0, atom.Value{}, nil, err
		}
		return n.key, n.value, right, nil
	}
	k, v, newLeft, err := removeMin(left)
	if err != nil {
		return 0, atom.Value{}, nil, err
	}
	right, err := n.right.get()
	if err != nil {
		return 0, atom.Value{}, nil, err
	}
	newN, err := balanced(newLeft, n.key, n.value, right)
	return k, v, newN, err
}

func getFirst(n *Node) (int32, atom.Value, bool, error) {
	if n == nil {
		return 0, atom.Value{}, false, nil
	}
	for {
		left, err := n.left.get()
		if err != nil {
			return 0, atom.Value{}, false, err
		}
		if left == nil {
			return n.key, n.value, true, nil
		}
		n = left
	}
}

func getLast(n *Node) (int32, atom.Value, bool, error) {
	if n == nil {
		return 0, atom.Value{}, false, nil
	}
	for {
		right, err := n.right.get()
		if err != nil {
			return 0, atom.Value{}, false, err
		}
		if right == nil {
			return n.key, n.value, true, nil
		}
		n = right
	}
}

func inorder(n *Node, visit func(int32, atom.Value) error) error {
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
	if err := visit(n.key, n.value); err != nil {
		return err
	}
	right, err := n.right.get()
	if err != nil {
		return err
	}
	return inorder(right, visit)
}
