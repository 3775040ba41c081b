package isobmff

import (
	"github.com/ngohuy/hlspacker/pkg/bitio"
	"github.com/ngohuy/hlspacker/pkg/errors"
)

// Box is one node in the parsed ISOBMFF tree. Payload aliases the original
// input buffer for leaf boxes; it is nil for containers and for mdat/free/
// skip, whose bytes are never materialized.
type Box struct {
	Type       string
	TotalSize  uint64
	HeaderSize int
	Offset     int64 // absolute file offset of the box header
	Payload    []byte
	Children   []*Box
}

// PayloadStart returns the absolute file offset of the first payload byte,
// i.e. Offset + HeaderSize.
func (b *Box) PayloadStart() int64 {
	return b.Offset + int64(b.HeaderSize)
}

// PayloadSize returns TotalSize - HeaderSize.
func (b *Box) PayloadSize() uint64 {
	return b.TotalSize - uint64(b.HeaderSize)
}

// Find returns the first direct child with the given type, or nil.
func (b *Box) Find(boxType string) *Box {
	for _, c := range b.Children {
		if c.Type == boxType {
			return c
		}
	}
	return nil
}

// FindAll returns every direct child with the given type.
func (b *Box) FindAll(boxType string) []*Box {
	var out []*Box
	for _, c := range b.Children {
		if c.Type == boxType {
			out = append(out, c)
		}
	}
	return out
}

// FindPath descends through nested containers by type, e.g.
// FindPath("mdia", "minf", "stbl").
func (b *Box) FindPath(path ...string) *Box {
	cur := b
	for _, t := range path {
		cur = cur.Find(t)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// ParseBoxes parses every top-level box in buf[start:end), recursively
// expanding container types. base is the absolute file offset that buf[0]
// corresponds to, so Box.Offset values are stable across sub-slices.
func ParseBoxes(buf []byte, start, end int, base int64) ([]*Box, error) {
	if start < 0 || end > len(buf) || start > end {
		return nil, errors.NewInvalidData("box range out of bounds")
	}
	var boxes []*Box
	pos := start
	for pos < end {
		box, next, err := parseOneBox(buf, pos, end, base)
		if err != nil {
			return nil, err
		}
		boxes = append(boxes, box)
		pos = next
	}
	return boxes, nil
}

func parseOneBox(buf []byte, pos, end int, base int64) (*Box, int, error) {
	if end-pos < 8 {
		return nil, 0, errors.NewInvalidBoxData("????", "truncated box header")
	}
	r := bitio.NewReader(buf[pos:end])
	size32, err := r.ReadU32()
	if err != nil {
		return nil, 0, errors.NewInvalidBoxData("????", "truncated box size")
	}
	boxType, err := r.Read4CC()
	if err != nil {
		return nil, 0, errors.NewInvalidBoxData("????", "truncated box type")
	}

	headerSize := 8
	var totalSize uint64
	switch size32 {
	case 1:
		ext, err := r.ReadU64()
		if err != nil {
			return nil, 0, errors.NewInvalidBoxData(boxType, "truncated extended size")
		}
		totalSize = ext
		headerSize = 16
	case 0:
		totalSize = uint64(end - pos)
	default:
		totalSize = uint64(size32)
	}

	if totalSize < uint64(headerSize) {
		return nil, 0, errors.NewInvalidBoxData(boxType, "size < header_size")
	}
	boxEnd := pos + int(totalSize)
	if boxEnd > end || totalSize > uint64(end-pos) {
		return nil, 0, errors.NewInvalidBoxData(boxType, "box extends past enclosing range")
	}

	box := &Box{
		Type:       boxType,
		TotalSize:  totalSize,
		HeaderSize: headerSize,
		Offset:     base + int64(pos),
	}

	payloadStart := pos + headerSize
	payloadEnd := boxEnd

	switch {
	case IsOpaqueBox(boxType):
		// mdat/free/skip: never materialize payload, just record the range.
	case IsContainerBox(boxType):
		children, err := ParseBoxes(buf, payloadStart, payloadEnd, base)
		if err != nil {
			return nil, 0, err
		}
		box.Children = children
	default:
		box.Payload = buf[payloadStart:payloadEnd]
	}

	return box, boxEnd, nil
}

// FindTopLevel locates the first top-level box of the given type among a
// previously parsed slice of boxes.
func FindTopLevel(boxes []*Box, boxType string) *Box {
	for _, b := range boxes {
		if b.Type == boxType {
			return b
		}
	}
	return nil
}
