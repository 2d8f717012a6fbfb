package vm

import (
	"errors"

	"github.com/holiman/uint256"
)

// ErrOutOfOffset is returned when a memory access offset/length would
// overflow a machine word. Memory is not grown when it is returned.
var ErrOutOfOffset = errors.New("vm: out of offset")

// Memory is the Machine's byte-addressable memory. Growth is monotonic
// (grow-only, word-aligned) and every access is bounds-checked: the old
// out-of-bounds panics are replaced by ErrOutOfOffset so callers can
// translate failures into an Exit verdict.
type Memory struct {
	store []byte
}

// NewMemory returns a new empty Memory instance.
func NewMemory() *Memory {
	return &Memory{}
}

// ResizeOffset grows memory, if needed, so that [offset, offset+size) is
// addressable, rounding the new length up to the next 32-byte word. It
// reports ErrOutOfOffset on uint64 overflow of offset+size; it never
// shrinks memory.
func (m *Memory) ResizeOffset(offset, size uint64) error {
	if size == 0 {
		return nil
	}
	end := offset + size
	if end < offset {
		return ErrOutOfOffset
	}
	if end <= uint64(len(m.store)) {
		return nil
	}
	words := (end + 31) / 32
	newLen := words * 32
	m.store = append(m.store, make([]byte, newLen-uint64(len(m.store)))...)
	return nil
}

// Set copies value into memory at the given offset. The caller must have
// already grown memory with ResizeOffset.
func (m *Memory) Set(offset, size uint64, value []byte) error {
	if size == 0 {
		return nil
	}
	if offset+size > uint64(len(m.store)) {
		return ErrOutOfOffset
	}
	copy(m.store[offset:offset+size], value)
	return nil
}

// Set32 writes a 32-byte big-endian, zero-padded word at the given offset.
func (m *Memory) Set32(offset uint64, val *uint256.Int) error {
	if offset+32 > uint64(len(m.store)) {
		return ErrOutOfOffset
	}
	b := val.Bytes32()
	copy(m.store[offset:offset+32], b[:])
	return nil
}

// Get returns a copy of the memory contents at [offset, offset+size).
func (m *Memory) Get(offset, size uint64) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	if offset+size > uint64(len(m.store)) {
		return nil, ErrOutOfOffset
	}
	out := make([]byte, size)
	copy(out, m.store[offset:offset+size])
	return out, nil
}

// CopyLarge copies length bytes from src[srcOffset:] into memory at
// dstOffset. Bytes of src beyond srcOffset+length are not read; bytes of
// the destination beyond len(src) are zero-padded, matching the source
// EXTCODECOPY-style semantics where the source may be shorter than the
// requested length.
func (m *Memory) CopyLarge(dstOffset, srcOffset, length uint64, src []byte) error {
	if length == 0 {
		return nil
	}
	if dstOffset+length > uint64(len(m.store)) {
		return ErrOutOfOffset
	}
	dst := m.store[dstOffset : dstOffset+length]
	if srcOffset >= uint64(len(src)) {
		for i := range dst {
			dst[i] = 0
		}
		return nil
	}
	n := copy(dst, src[srcOffset:])
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
	return nil
}

// Len returns the current length of the memory in bytes.
func (m *Memory) Len() int {
	return len(m.store)
}

// Data returns the full backing slice. The caller must not retain or
// mutate it beyond the current step.
func (m *Memory) Data() []byte {
	return m.store
}
