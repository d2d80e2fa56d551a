// Package endian provides byte order utilities for collection metadata records.
//
// Metadata records are sequences of fixed-width unsigned 64-bit fields. Stored state
// produced by existing hosts is little-endian, so GetLittleEndianEngine is the default
// everywhere in segcoll; the big-endian engine exists for hosts that define their own
// record format.
//
// # Basic Usage
//
//	engine := endian.GetLittleEndianEngine()
//	buf := engine.AppendUint64(nil, meta.MaxLength)
//
// # Thread Safety
//
// All functions and methods in this package are safe for concurrent use.
// The returned EndianEngine instances are immutable and stateless.
package endian

import (
	"encoding/binary"
	"unsafe"
)

// EndianEngine combines ByteOrder and AppendByteOrder interfaces from encoding/binary
// into a single interface for convenient byte order operations.
//
// binary.LittleEndian and binary.BigEndian both satisfy it.
type EndianEngine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// CheckEndianness uses a fixed integer value to determine the host's byte order.
func CheckEndianness() binary.ByteOrder {
	// 0x0100 is 256. For a little-endian system, the LSB (0x00) is first.
	var i uint16 = 0x0100

	b := (*[2]byte)(unsafe.Pointer(&i))
	if b[0] == 0x01 {
		return binary.BigEndian
	}

	return binary.LittleEndian
}

func IsNativeLittleEndian() bool {
	return CheckEndianness() == binary.LittleEndian
}

// GetLittleEndianEngine returns the little-endian engine.
func GetLittleEndianEngine() EndianEngine {
	return binary.LittleEndian
}

// GetBigEndianEngine returns the big-endian engine.
func GetBigEndianEngine() EndianEngine {
	return binary.BigEndian
}

// PutUint64s writes vals as consecutive 8-byte fields into dst, which must hold
// at least 8*len(vals) bytes.
func PutUint64s(engine EndianEngine, dst []byte, vals ...uint64) {
	for i, v := range vals {
		engine.PutUint64(dst[i*8:], v)
	}
}

// Uint64s reads len(dst) consecutive 8-byte fields from src into dst.
func Uint64s(engine EndianEngine, src []byte, dst []uint64) {
	for i := range dst {
		dst[i] = engine.Uint64(src[i*8:])
	}
}
