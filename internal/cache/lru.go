package cache

// Node is an element of a recency List. It carries its key so the owner can
// remove the matching map entry when the node falls off the tail.
type Node[K comparable] struct {
	key  K
	prev *Node[K]
	next *Node[K]
}

// Key returns the key stored in the node.
func (n *Node[K]) Key() K { return n.key }

// List is a doubly-linked recency list. The front is the most recently
// used key, the back the least recently used one.
//
// List is not safe for concurrent use.
type List[K comparable] struct {
	head *Node[K]
	tail *Node[K]
	len  int
}

// NewList creates an empty list.
func NewList[K comparable]() *List[K] {
	return &List[K]{}
}

// Len returns the number of nodes in the list.
func (l *List[K]) Len() int {
	return l.len
}

// PushFront inserts key as the most recently used node.
func (l *List[K]) PushFront(key K) *Node[K] {
	n := &Node[K]{key: key}
	l.linkFront(n)
	return n
}

// Touch moves n to the front.
func (l *List[K]) Touch(n *Node[K]) {
	if n == nil || n == l.head {
		return
	}
	l.unlink(n)
	l.linkFront(n)
}

// Remove unlinks n. Removing a node that is not linked is a no-op.
func (l *List[K]) Remove(n *Node[K]) {
	if n == nil || (n.prev == nil && n.next == nil && l.head != n) {
		return
	}
	l.unlink(n)
}

// PopBack removes and returns the least recently used key.
func (l *List[K]) PopBack() (K, bool) {
	if l.tail == nil {
		var zero K
		return zero, false
	}
	n := l.tail
	l.unlink(n)
	return n.key, true
}

// Back returns the least recently used key without removing it.
func (l *List[K]) Back() (K, bool) {
	if l.tail == nil {
		var zero K
		return zero, false
	}
	return l.tail.key, true
}

// WalkBack calls fn from the least to the most recently used key until fn
// returns false. fn must not modify the list.
func (l *List[K]) WalkBack(fn func(K) bool) {
	for n := l.tail; n != nil; n = n.prev {
		if !fn(n.key) {
			return
		}
	}
}

// Clear drops every node.
func (l *List[K]) Clear() {
	l.head = nil
	l.tail = nil
	l.len = 0
}

func (l *List[K]) linkFront(n *Node[K]) {
	n.prev = nil
	n.next = l.head
	if l.head != nil {
		l.head.prev = n
	}
	l.head = n
	if l.tail == nil {
		l.tail = n
	}
	l.len++
}

func (l *List[K]) unlink(n *Node[K]) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
	n.prev = nil
	n.next = nil
	l.len--
}
