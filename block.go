package pencils

import (
	"reflect"
	"unsafe"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// StorageKind tags the container family of a block: which kind of memory
// backs it. It is used only to type-match allocations and transfer buffers;
// it never affects layout math.
type StorageKind int

//go:generate go tool enumer -type=StorageKind -trimprefix=Storage -output=gen_storagekind_enumer.go block.go

const (
	// StorageHost is ordinary host memory.
	StorageHost StorageKind = iota

	// StorageDevice tags blocks bound for accelerator memory. Allocation is
	// host-backed until a device allocator is plugged in; the tag still
	// participates in container matching.
	StorageDevice
)

// Block is a dense one-dimensional slab of elements tagged with its
// container family. It is the capability surface the rest of the package
// works through: allocation, raw element access, and a byte view for
// message buffers.
type Block[T any] struct {
	kind StorageKind
	data []T
}

// AllocBlock allocates a block of n elements in the given container family.
func AllocBlock[T any](kind StorageKind, n int) Block[T] {
	return Block[T]{kind: kind, data: make([]T, n)}
}

// BlockOf wraps an existing slice as a block of the given container family.
func BlockOf[T any](kind StorageKind, data []T) Block[T] {
	return Block[T]{kind: kind, data: data}
}

// Kind returns the block's container family.
func (b Block[T]) Kind() StorageKind { return b.kind }

// Data returns the block's backing slice.
func (b Block[T]) Data() []T { return b.data }

// Len returns the number of elements in the block.
func (b Block[T]) Len() int { return len(b.data) }

// DType returns the element type tag of the block.
func (b Block[T]) DType() dtypes.DType {
	var t T
	return dtypes.FromGoType(reflect.TypeOf(t))
}

// Bytes returns the block's contents as a byte slice aliasing the same
// memory, the view handed to message transports.
func (b Block[T]) Bytes() []byte {
	if len(b.data) == 0 {
		return nil
	}
	var t T
	return unsafe.Slice((*byte)(unsafe.Pointer(&b.data[0])), len(b.data)*int(unsafe.Sizeof(t)))
}

// elemSize returns the size of T in bytes.
func elemSize[T any]() int {
	var t T
	return int(unsafe.Sizeof(t))
}

// allocBytes allocates a scratch byte buffer sized past the tiny allocator,
// so element views of it stay word-aligned.
func allocBytes(n int) []byte {
	return make([]byte, max(n, 64))[:n]
}

// bytesAsElems reinterprets a byte buffer as a slice of elements. Scratch
// buffers come from allocBytes and are at least word-aligned, which covers
// every bits-copyable element type.
func bytesAsElems[T any](buf []byte) ([]T, error) {
	size := elemSize[T]()
	if len(buf)%size != 0 {
		return nil, errors.Errorf("pencils: buffer of %d bytes is not a whole number of %d-byte elements",
			len(buf), size)
	}
	if len(buf) == 0 {
		return nil, nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&buf[0])), len(buf)/size), nil
}
