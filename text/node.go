package text

import (
	"encoding/json"
	"fmt"

	"github.com/alimasry/go-collab-blocks/orderable"
)

// TextNode is a node of the AVL tree of inserted spans. Every node knows
// the total text length of its subtree so commands can walk by index.
type TextNode struct {
	left, right *TextNode
	rank        int

	span            INSSpan
	length          int
	shouldBeDeleted bool
}

func NewTextNode(span INSSpan, left, right *TextNode) *TextNode {
	n := &TextNode{span: span, left: left, right: right}
	n.update()
	return n
}

func rankOf(n *TextNode) int {
	if n == nil {
		return 0
	}
	return n.rank
}

func lengthOf(n *TextNode) int {
	if n == nil {
		return 0
	}
	return n.length
}

func (n *TextNode) Span() INSSpan { return n.span }

func (n *TextNode) Length() int { return n.length }

func (n *TextNode) leftLength() int { return lengthOf(n.left) }

func (n *TextNode) minSpan() INSSpan {
	if n.left != nil {
		return n.left.minSpan()
	}
	return n.span
}

func (n *TextNode) maxSpan() INSSpan {
	if n.right != nil {
		return n.right.maxSpan()
	}
	return n.span
}

// predecessorSpan returns the zero span when there is no left subtree.
func (n *TextNode) predecessorSpan() INSSpan {
	if n.left != nil {
		return n.left.maxSpan()
	}
	return INSSpan{}
}

func (n *TextNode) successorSpan() INSSpan {
	if n.right != nil {
		return n.right.minSpan()
	}
	return INSSpan{}
}

// Spans returns the spans of the subtree in order.
func (n *TextNode) Spans() Spans {
	spans := Spans{}
	n.collect(&spans)
	return spans
}

func (n *TextNode) collect(spans *Spans) {
	if n.left != nil {
		n.left.collect(spans)
	}
	*spans = append(*spans, n.span)
	if n.right != nil {
		n.right.collect(spans)
	}
}

func (n *TextNode) setLeft(left *TextNode) {
	n.left = left
	n.update()
}

func (n *TextNode) setRight(right *TextNode) {
	n.right = right
	n.update()
}

func (n *TextNode) setSpan(span INSSpan) {
	n.length += span.Length() - n.span.Length()
	n.span = span
}

func (n *TextNode) update() {
	n.rank = 1 + max(rankOf(n.left), rankOf(n.right))
	n.length = lengthOf(n.left) + n.span.Length() + lengthOf(n.right)
}

func (n *TextNode) balanceFactor() int {
	return rankOf(n.right) - rankOf(n.left)
}

// balance restores the AVL invariant at n and returns the new subtree
// root, or nil when n was emptied by a deletion. The subtrees must be
// balanced already, but their ranks may differ by any amount.
func (n *TextNode) balance() *TextNode {
	if n.shouldBeDeleted {
		return nil
	}
	return join(n.left, n, n.right)
}

// join hangs left and right under n. When one side is taller by more than
// one rank, n sinks down the inner spine of that side until the ranks
// meet, and every node on the way back up is fixed with a single or
// double rotation.
func join(left, n, right *TextNode) *TextNode {
	switch {
	case rankOf(right) > rankOf(left)+1:
		right.setLeft(join(left, n, right.left))
		return right.rotate()
	case rankOf(left) > rankOf(right)+1:
		left.setRight(join(left.right, n, right))
		return left.rotate()
	}
	n.left, n.right = left, right
	n.update()
	return n
}

// rotate fixes a node whose subtrees differ in rank by at most two.
func (n *TextNode) rotate() *TextNode {
	switch bf := n.balanceFactor(); {
	case bf > 1:
		if n.right.balanceFactor() < 0 {
			n.setRight(n.right.rotateRight())
		}
		return n.rotateLeft()
	case bf < -1:
		if n.left.balanceFactor() > 0 {
			n.setLeft(n.left.rotateLeft())
		}
		return n.rotateRight()
	}
	return n
}

func (n *TextNode) rotateLeft() *TextNode {
	r := n.right
	n.setRight(r.left)
	r.setLeft(n)
	return r
}

func (n *TextNode) rotateRight() *TextNode {
	l := n.left
	n.setLeft(l.right)
	l.setRight(n)
	return l
}

func (n *TextNode) insertPredecessor(span INSSpan) {
	if n.left != nil {
		n.setLeft(n.left.insertMax(span))
		return
	}
	n.setLeft(NewTextNode(span, nil, nil))
}

func (n *TextNode) insertSuccessor(span INSSpan) {
	if n.right != nil {
		n.setRight(n.right.insertMin(span))
		return
	}
	n.setRight(NewTextNode(span, nil, nil))
}

func (n *TextNode) insertMin(span INSSpan) *TextNode {
	if n.left != nil {
		n.setLeft(n.left.insertMin(span))
	} else {
		n.setLeft(NewTextNode(span, nil, nil))
	}
	return n.balance()
}

func (n *TextNode) insertMax(span INSSpan) *TextNode {
	if n.right != nil {
		n.setRight(n.right.insertMax(span))
	} else {
		n.setRight(NewTextNode(span, nil, nil))
	}
	return n.balance()
}

func (n *TextNode) deletePredecessor() {
	if n.left != nil {
		n.setLeft(n.left.deleteMax())
	}
}

func (n *TextNode) deleteSuccessor() {
	if n.right != nil {
		n.setRight(n.right.deleteMin())
	}
}

func (n *TextNode) deleteMin() *TextNode {
	if n.left != nil {
		n.setLeft(n.left.deleteMin())
		return n.balance()
	}
	return n.right
}

func (n *TextNode) deleteMax() *TextNode {
	if n.right != nil {
		n.setRight(n.right.deleteMax())
		return n.balance()
	}
	return n.left
}

// deleteSelf replaces n's span with a neighbour's, or marks n for removal
// by the parent's next balance when it is a leaf.
func (n *TextNode) deleteSelf() {
	if succ := n.successorSpan(); !succ.IsZero() {
		n.deleteSuccessor()
		n.setSpan(succ)
		n.mergeLeft()
		return
	}
	if prev := n.predecessorSpan(); !prev.IsZero() {
		n.deletePredecessor()
		n.setSpan(prev)
		return
	}
	n.shouldBeDeleted = true
}

// mergeLeft folds the predecessor into n when its points run straight
// into n's.
func (n *TextNode) mergeLeft() {
	curr := n.span
	if curr.Content().IsMeta() {
		return
	}
	prev := n.predecessorSpan()
	if prev.IsZero() || prev.Content().IsMeta() || prev.Compare(curr) != orderable.Prependable {
		return
	}
	merged, err := prev.Append(curr)
	if err != nil {
		return
	}
	n.deletePredecessor()
	n.setSpan(merged)
}

func (n *TextNode) mergeRight() {
	curr := n.span
	if curr.Content().IsMeta() {
		return
	}
	succ := n.successorSpan()
	if succ.IsZero() || succ.Content().IsMeta() || succ.Compare(curr) != orderable.Appendable {
		return
	}
	merged, err := curr.Append(succ)
	if err != nil {
		return
	}
	n.deleteSuccessor()
	n.setSpan(merged)
}

// TextNodeFromSpans builds a balanced tree over spans, or nil when there
// are none.
func TextNodeFromSpans(spans []INSSpan) *TextNode {
	if len(spans) == 0 {
		return nil
	}
	mid := len(spans) / 2
	return NewTextNode(spans[mid], TextNodeFromSpans(spans[:mid]), TextNodeFromSpans(spans[mid+1:]))
}

func (n *TextNode) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.Spans())
}

// DecodeTextNode rebuilds a tree from its encoded spans.
func DecodeTextNode(b []byte) (*TextNode, error) {
	var spans []INSSpan
	if err := json.Unmarshal(b, &spans); err != nil {
		return nil, fmt.Errorf("decode text node: %w", err)
	}
	return TextNodeFromSpans(spans), nil
}
