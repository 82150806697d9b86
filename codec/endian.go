package codec

import "encoding/binary"

// Every on-disk EWF field is little-endian. These wrap encoding/binary so
// call sites in section/ and chunkindex/ read as named field accesses
// instead of repeated binary.LittleEndian.Uintxx boilerplate.

func ReadUint16(b []byte) uint16 { return binary.LittleEndian.Uint16(b) }
func ReadUint32(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }
func ReadUint64(b []byte) uint64 { return binary.LittleEndian.Uint64(b) }

func WriteUint16(b []byte, v uint16) { binary.LittleEndian.PutUint16(b, v) }
func WriteUint32(b []byte, v uint32) { binary.LittleEndian.PutUint32(b, v) }
func WriteUint64(b []byte, v uint64) { binary.LittleEndian.PutUint64(b, v) }
