package bind

import (
	"encoding/binary"

	"github.com/wippyai/memlayout/errors"
)

// Buffer is a fixed-size, slice-backed memlayout.Memory for use outside a
// WebAssembly runtime.
type Buffer struct {
	data []byte
}

// NewBuffer returns a zeroed buffer of size bytes.
func NewBuffer(size uint32) *Buffer {
	return &Buffer{data: make([]byte, size)}
}

// Size returns the buffer length in bytes.
func (b *Buffer) Size() uint32 { return uint32(len(b.data)) }

func (b *Buffer) span(offset uint32, length uint64) ([]byte, error) {
	if uint64(offset)+length > uint64(len(b.data)) {
		return nil, errors.OutOfBounds(errors.PhaseBind, nil, uint64(offset), length)
	}
	return b.data[offset : uint64(offset)+length], nil
}

// Read returns a slice aliasing the buffer.
func (b *Buffer) Read(offset uint32, length uint32) ([]byte, error) {
	return b.span(offset, uint64(length))
}

func (b *Buffer) Write(offset uint32, data []byte) error {
	s, err := b.span(offset, uint64(len(data)))
	if err != nil {
		return err
	}
	copy(s, data)
	return nil
}

func (b *Buffer) ReadU8(offset uint32) (uint8, error) {
	s, err := b.span(offset, 1)
	if err != nil {
		return 0, err
	}
	return s[0], nil
}

func (b *Buffer) ReadU16(offset uint32) (uint16, error) {
	s, err := b.span(offset, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(s), nil
}

func (b *Buffer) ReadU32(offset uint32) (uint32, error) {
	s, err := b.span(offset, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(s), nil
}

func (b *Buffer) ReadU64(offset uint32) (uint64, error) {
	s, err := b.span(offset, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(s), nil
}

func (b *Buffer) WriteU8(offset uint32, value uint8) error {
	s, err := b.span(offset, 1)
	if err != nil {
		return err
	}
	s[0] = value
	return nil
}

func (b *Buffer) WriteU16(offset uint32, value uint16) error {
	s, err := b.span(offset, 2)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(s, value)
	return nil
}

func (b *Buffer) WriteU32(offset uint32, value uint32) error {
	s, err := b.span(offset, 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(s, value)
	return nil
}

func (b *Buffer) WriteU64(offset uint32, value uint64) error {
	s, err := b.span(offset, 8)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(s, value)
	return nil
}
