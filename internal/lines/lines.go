// Package lines reconstructs 1-based source line numbers while a syntax tree
// is walked token by token. The counter only moves forward: it consumes the
// special text (whitespace and comments) in front of each token together with
// the token itself and counts the line breaks it sees.
package lines

import "github.com/jward/arbor/internal/syntax"

// Counter is a running line counter over one source buffer.
type Counter struct {
	src     []byte
	pos     uint32
	line    int
	started bool
	cr      bool
}

// NewCounter returns a counter positioned before the first byte of src.
func NewCounter(src []byte) *Counter {
	return &Counter{src: src}
}

// Advance consumes the source up to end. "\n", "\r\n" and a lone "\r" each
// count as one line break. Offsets at or before the consumed position are
// ignored, so re-walking a consumed region does not change the count.
func (c *Counter) Advance(end uint32) {
	if int(end) > len(c.src) {
		end = uint32(len(c.src))
	}
	if end <= c.pos {
		return
	}
	if !c.started {
		c.started = true
		c.line = 1
	}
	for _, b := range c.src[c.pos:end] {
		switch b {
		case '\n':
			if !c.cr {
				c.line++
			}
			c.cr = false
		case '\r':
			c.line++
			c.cr = true
		default:
			c.cr = false
		}
	}
	c.pos = end
}

// Consume advances past the node and everything before it.
func (c *Counter) Consume(n syntax.Node) {
	c.Advance(n.EndByte())
}

// Line returns the line of the last consumed byte, or 0 before any token.
func (c *Counter) Line() int {
	return c.line
}

// NextStart returns the start line for a construct whose first token has not
// been consumed yet: the line after the previous token.
func (c *Counter) NextStart() int {
	if !c.started {
		return 1
	}
	return c.line + 1
}

// Offset returns the number of consumed bytes.
func (c *Counter) Offset() uint32 {
	return c.pos
}

// Span is the line range of one construct.
type Span struct {
	Start int
	Decl  int
	End   int
}

// Walker drives a Counter over every token of a subtree in source order.
// It knows nothing about the meaning of the nodes it passes.
type Walker struct {
	c *Counter
}

// NewWalker returns a walker over c.
func NewWalker(c *Counter) *Walker {
	return &Walker{c: c}
}

// Counter returns the counter the walker advances.
func (w *Walker) Counter() *Counter {
	return w.c
}

// Skip advances over n without reporting anything.
func (w *Walker) Skip(n syntax.Node) {
	w.walk(n, nil)
}

// Walk advances over n and calls visit for every named node after its last
// token has been consumed. Decl is the line of the node's first token.
func (w *Walker) Walk(n syntax.Node, visit func(syntax.Node, Span)) {
	w.walk(n, visit)
}

func (w *Walker) walk(n syntax.Node, visit func(syntax.Node, Span)) Span {
	// Comments are read as part of the gap in front of the next token.
	if n.IsNull() || n.IsExtra() {
		return Span{}
	}
	span := Span{Start: w.c.NextStart()}
	if n.IsLeaf() {
		w.c.Consume(n)
		span.Decl = w.c.Line()
	} else {
		first := true
		for _, child := range n.Children() {
			if child.IsExtra() {
				continue
			}
			w.walk(child, visit)
			if first {
				span.Decl = w.c.Line()
				first = false
			}
		}
		if first {
			span.Decl = span.Start
		}
	}
	if span.End = w.c.Line(); span.End < span.Decl {
		span.End = span.Decl
	}
	if span.Decl < span.Start {
		span.Start = span.Decl
	}
	if visit != nil && n.IsNamed() {
		visit(n, span)
	}
	return span
}

// FileSpan consumes the whole tree and returns the file's span: it starts on
// line 1 and ends on the last line holding a token, or line 1 when empty.
func FileSpan(tree *syntax.Tree) Span {
	c := NewCounter(tree.Source())
	NewWalker(c).Skip(tree.Root())
	end := c.Line()
	if end < 1 {
		end = 1
	}
	return Span{Start: 1, Decl: 1, End: end}
}
