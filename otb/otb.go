// Package otb reads and writes the OTB container format, as implemented in
// OpenTibia Server's fileloader.cpp and used by items.otb.
//
// A file is a 4 byte header followed by a tree of nodes. Each node is
// bracketed by NODE_START and NODE_END, and carries a type byte, a 32 bit
// flags word and a list of tagged attributes. Inside a node's data, bytes
// that collide with the structural markers are prefixed with ESCAPE_CHAR.
package otb

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"badc0de.net/pkg/tibia-assets/codec"
)

// Various special-meaning characters that might be encountered while parsing a
// node.
const (
	ESCAPE_CHAR = 0xFD // Following character should be read verbatim, even if it otherwise has a special meaning.
	NODE_START  = 0xFE // From this character onwards, this is a new OTB node. If preceded by NODE_END, this is the next sibling node. Otherwise, it's a child node.
	NODE_END    = 0xFF // This character marks the end of the latest OTB node. If immediately followed by a NODE_START, that will be the next sibling node.
)

const (
	headerSize = 4
	flagsSize  = 4
)

// NoParent is the parent index of the root node.
const NoParent = -1

// Node is a single node of a Tree. Nodes refer to each other by index into
// Tree.Nodes.
//
// In items.otb the root node carries the file version, and each of its
// children is an item whose type is the item group.
type Node struct {
	Type   uint8
	Flags  uint32
	Parent int
	Attrs  Attributes

	children []int
	raw      []RawAttr
}

// Raw returns the bytes of an attribute as read, if present.
func (n *Node) Raw(id Attribute) ([]byte, bool) {
	return findRaw(n.raw, id)
}

// RawAttrs returns all attributes as read, in file order.
func (n *Node) RawAttrs() []RawAttr {
	return n.raw
}

// SetRaw stores bytes for an attribute without a typed form. Setting a typed
// attribute this way only takes effect if the typed field is left unset and
// the bytes do not decode.
func (n *Node) SetRaw(id Attribute, data []byte) {
	n.raw = setRaw(n.raw, id, append([]byte{}, data...))
}

// DeleteRaw drops an attribute from the raw table.
func (n *Node) DeleteRaw(id Attribute) {
	for i, r := range n.raw {
		if r.ID == id {
			n.raw = append(n.raw[:i:i], n.raw[i+1:]...)
			return
		}
	}
}

// Tree is a decoded OTB file. Node 0 is the root.
type Tree struct {
	Header [headerSize]byte
	Nodes  []Node
}

// New creates a tree holding only a root node of the given type.
func New(rootType uint8) *Tree {
	return &Tree{Nodes: []Node{{Type: rootType, Parent: NoParent}}}
}

// Root returns the root node.
func (t *Tree) Root() *Node {
	if len(t.Nodes) == 0 {
		return nil
	}
	return &t.Nodes[0]
}

// Node returns the node with index i.
func (t *Tree) Node(i int) *Node {
	return &t.Nodes[i]
}

// Children returns the indexes of the children of node i, in file order.
func (t *Tree) Children(i int) []int {
	return t.Nodes[i].children
}

// AddNode appends a new last child to parent and returns its index.
func (t *Tree) AddNode(parent int, typ uint8) int {
	idx := len(t.Nodes)
	t.Nodes = append(t.Nodes, Node{Type: typ, Parent: parent})
	t.Nodes[parent].children = append(t.Nodes[parent].children, idx)
	return idx
}

// Walk visits node i and its descendants in pre-order. fn receives the index
// and depth of each node; returning false skips the node's children.
func (t *Tree) Walk(i int, fn func(idx, depth int) bool) {
	type frame struct{ idx, depth int }
	stack := []frame{{i, 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(f.idx, f.depth) {
			continue
		}
		kids := t.Nodes[f.idx].children
		for k := len(kids) - 1; k >= 0; k-- {
			stack = append(stack, frame{kids[k], f.depth + 1})
		}
	}
}

// Options controls a decode.
type Options struct {
	Progress codec.Progress
}

// Decode reads a whole OTB file.
func Decode(b []byte) (*Tree, error) {
	return DecodeContext(context.Background(), b, Options{})
}

// DecodeContext reads a whole OTB file, reporting progress per node and
// stopping if ctx is cancelled. Any structural problem fails the decode.
func DecodeContext(ctx context.Context, b []byte, o Options) (*Tree, error) {
	if len(b) < headerSize+1 {
		return nil, errors.Wrapf(codec.ErrMalformedHeader, "otb: file is %d bytes", len(b))
	}
	if b[headerSize] != NODE_START {
		return nil, errors.Wrapf(codec.ErrMalformedHeader, "otb: expected start of node: got %x, want %x", b[headerSize], NODE_START)
	}

	t := &Tree{}
	copy(t.Header[:], b)
	tr := codec.NewTracker(ctx, o.Progress, countNodes(b[headerSize:]))

	// stack holds the open nodes; bufs their unescaped data so far.
	var stack []int
	var bufs [][]byte
	pos := headerSize + 1

	open := func(parent int) error {
		if pos >= len(b) {
			return errors.Wrapf(codec.ErrMalformedHeader, "otb: node without a type at offset %d", pos)
		}
		if len(b)-pos-1 < flagsSize {
			return errors.Wrapf(codec.ErrUnexpectedEOF, "otb: flags at offset %d: want %d bytes, have %d", pos+1, flagsSize, len(b)-pos-1)
		}
		idx := len(t.Nodes)
		t.Nodes = append(t.Nodes, Node{Type: b[pos], Flags: binary.LittleEndian.Uint32(b[pos+1:]), Parent: parent})
		if parent != NoParent {
			t.Nodes[parent].children = append(t.Nodes[parent].children, idx)
		}
		glog.V(3).Infof("%stype 0x%02X flags %08x", strings.Repeat(" ", len(stack)), b[pos], t.Nodes[idx].Flags)
		pos += 1 + flagsSize
		stack = append(stack, idx)
		bufs = append(bufs, nil)
		return nil
	}
	closeTop := func() error {
		idx, data := stack[len(stack)-1], bufs[len(bufs)-1]
		stack, bufs = stack[:len(stack)-1], bufs[:len(bufs)-1]
		if err := parseNodeData(&t.Nodes[idx], data); err != nil {
			return errors.Wrapf(err, "otb: node %d", idx)
		}
		return tr.Step()
	}

	if err := open(NoParent); err != nil {
		return nil, err
	}
	for len(stack) > 0 {
		if pos >= len(b) {
			return nil, errors.Wrapf(codec.ErrMalformedHeader, "otb: %d nodes left open at end of file", len(stack))
		}
		c := b[pos]
		pos++
		var err error
		switch c {
		case NODE_START:
			err = open(stack[len(stack)-1])
		case NODE_END:
			err = closeTop()
		case ESCAPE_CHAR:
			if pos >= len(b) {
				return nil, errors.Wrap(codec.ErrUnexpectedEOF, "otb: escape at end of file")
			}
			bufs[len(bufs)-1] = append(bufs[len(bufs)-1], b[pos])
			pos++
		default:
			bufs[len(bufs)-1] = append(bufs[len(bufs)-1], c)
		}
		if err != nil {
			return nil, err
		}
	}
	tr.Finish()

	if pos < len(b) {
		glog.Warningf("otb: %d bytes after the root node ignored", len(b)-pos)
	}
	glog.V(2).Infof("otb: %d nodes", len(t.Nodes))
	return t, nil
}

// parseNodeData decodes the unescaped attribute data of a node.
func parseNodeData(n *Node, data []byte) error {
	attrs, raw, err := decodeProps(data)
	if err != nil {
		return errors.Wrap(codec.ErrUnexpectedEOF, err.Error())
	}
	n.Attrs, n.raw = attrs, raw
	return nil
}

// countNodes counts the structural NODE_START bytes. The type and flags
// following a start are skipped unscanned.
func countNodes(b []byte) int {
	n := 0
	for i := 0; i < len(b); i++ {
		switch b[i] {
		case ESCAPE_CHAR:
			i++
		case NODE_START:
			n++
			i += 1 + flagsSize
		}
	}
	return n
}

// Encode writes the tree. Attribute data is escaped; the markers, type bytes
// and flags are not.
func Encode(t *Tree) []byte {
	out := append([]byte{}, t.Header[:]...)
	if len(t.Nodes) == 0 {
		return out
	}

	// Each entry either opens a node or, with end set, closes it.
	type step struct {
		idx int
		end bool
	}
	stack := []step{{idx: 0}}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if s.end {
			out = append(out, NODE_END)
			continue
		}
		n := &t.Nodes[s.idx]
		out = append(out, NODE_START, n.Type)
		out = binary.LittleEndian.AppendUint32(out, n.Flags)
		out = appendEscaped(out, encodeProps(&n.Attrs, n.raw))

		stack = append(stack, step{idx: s.idx, end: true})
		for k := len(n.children) - 1; k >= 0; k-- {
			stack = append(stack, step{idx: n.children[k]})
		}
	}
	return out
}

func appendEscaped(out, data []byte) []byte {
	for _, c := range data {
		if c == ESCAPE_CHAR || c == NODE_START || c == NODE_END {
			out = append(out, ESCAPE_CHAR)
		}
		out = append(out, c)
	}
	return out
}

// String summarizes a node for logs.
func (n *Node) String() string {
	var parts []string
	if n.Attrs.ServerID != nil {
		parts = append(parts, fmt.Sprintf("server id %d", *n.Attrs.ServerID))
	}
	if n.Attrs.ClientID != nil {
		parts = append(parts, fmt.Sprintf("client id %d", *n.Attrs.ClientID))
	}
	if n.Attrs.Name != nil {
		parts = append(parts, fmt.Sprintf("%q", *n.Attrs.Name))
	}
	return fmt.Sprintf("type 0x%02X flags %08x, %d attributes (%s)", n.Type, n.Flags, len(n.raw), strings.Join(parts, ", "))
}
