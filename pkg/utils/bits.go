package utils

import (
	"unsafe"

	"golang.org/x/exp/constraints"
)

// Returns the size in bits of n bytes
func Bits(bytes int) int {
	return bytes * 8
}

// Returns the size in bytes of values of a type
func Sizeof[T any]() int {
	var val T
	return int(unsafe.Sizeof(val))
}

// Returns the size in bits of values of a type
func SizeofBits[T any]() int {
	return Bits(Sizeof[T]())
}

// Returns an all ones bitmask of n bits of the given unsigned integer type
func AllOnes[T constraints.Unsigned](bits int) T {
	if bits >= SizeofBits[T]() {
		return ^T(0)
	}
	return (T(1) << bits) - T(1)
}

// Implements a read/write view over an unsigned interger, allowing manipullating individual bits easily
type BitView[T constraints.Unsigned] struct {
	Bits *T
}

// Returns the viewed unsigned int value
func (v BitView[T]) Value() T {
	return *v.Bits
}

// Extracts a range of bits given a first bit and a width
func (v BitView[T]) Read(bit int, width int) T {
	mask := AllOnes[T](width)
	return (v.Value() >> bit) & mask
}

// Copies a value into a range of bits, given the start and width of the range.
// All most significant bits of the value not fitting into the destination range are ignored.
// The previous contents of the range are overwritten.
func (v BitView[T]) Write(value T, bit int, width int) {
	mask := AllOnes[T](width)
	*v.Bits = (*v.Bits &^ (mask << bit)) | ((value & mask) << bit)
}

// Creates a bit view out of an unsigned int
func CreateBitView[T constraints.Unsigned](value *T) BitView[T] {
	return BitView[T]{
		Bits: value,
	}
}

// BitField names a contiguous range of bits within a fixed width word.
// Wire layouts are declared as lists of fields so the same description
// drives both encoding and documentation.
type BitField struct {
	Name   string
	Offset int
	Width  int
}

// Get extracts the field from a 64 bit word
func (f BitField) Get(word uint64) uint64 {
	return CreateBitView(&word).Read(f.Offset, f.Width)
}

// Set returns the word with the field replaced by value. Bits of value not fitting the field are dropped.
func (f BitField) Set(word uint64, value uint64) uint64 {
	CreateBitView(&word).Write(value, f.Offset, f.Width)
	return word
}

// Max returns the largest value the field can hold
func (f BitField) Max() uint64 {
	return AllOnes[uint64](f.Width)
}

// Fits returns whether value can be stored without truncation
func (f BitField) Fits(value uint64) bool {
	return value <= f.Max()
}
