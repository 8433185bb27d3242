package util

import (
	"bytes"
	"testing"
)

func TestWriteReadUB(t *testing.T) {
	buf := make([]byte, 0)
	buf = WriteUB2(buf, 0xBEEF)
	buf = WriteUB4(buf, 0xDEADBEEF)
	buf = WriteUB8(buf, 0x0102030405060708)

	cursor := 0
	cursor, u16 := ReadUB2(buf, cursor)
	if u16 != 0xBEEF {
		t.Errorf("ReadUB2 = %x", u16)
	}
	cursor, u32 := ReadUB4(buf, cursor)
	if u32 != 0xDEADBEEF {
		t.Errorf("ReadUB4 = %x", u32)
	}
	_, u64 := ReadUB8(buf, cursor)
	if u64 != 0x0102030405060708 {
		t.Errorf("ReadUB8 = %x", u64)
	}
}

func TestWriteLengthBoundaries(t *testing.T) {
	// 251 是 NULL 标记，一字节形式只能编码 0..250
	for _, length := range []int64{0, 1, 250, 251, 252, 0xFFFF, 0x10000, 0xFFFFFF, 0x1000000} {
		buf := WriteLength(make([]byte, 0), length)
		if got := GetLength(length); got != len(buf) {
			t.Errorf("GetLength(%d) = %d, encoded %d bytes", length, got, len(buf))
		}
		_, decoded := ReadLength(buf, 0)
		if int64(decoded) != length {
			t.Errorf("length %d decoded as %d", length, decoded)
		}
	}
}

func TestWriteWithLength(t *testing.T) {
	payload := []byte("metadata/v1.metadata.json")
	buf := WriteWithLength(make([]byte, 0), payload)
	if len(buf) != GetLengthBytes(payload) {
		t.Errorf("encoded size %d, GetLengthBytes %d", len(buf), GetLengthBytes(payload))
	}
	_, decoded := ReadLengthBytes(buf, 0)
	if !bytes.Equal(decoded, payload) {
		t.Errorf("decoded %q", decoded)
	}
}

func TestReadLengthString(t *testing.T) {
	buf := WriteWithLength(make([]byte, 0), []byte("warehouse"))
	buf = WriteWithLength(buf, []byte(""))
	cursor, s1 := ReadLengthString(buf, 0)
	_, s2 := ReadLengthString(buf, cursor)
	if s1 != "warehouse" || s2 != "" {
		t.Errorf("decoded %q, %q", s1, s2)
	}
}

func TestConvertHelpers(t *testing.T) {
	if got := ReadUB4Byte2UInt32(ConvertUInt4Bytes(7)); got != 7 {
		t.Errorf("uint32 round trip = %d", got)
	}
	if ConvertBool2Byte(true) != 1 || ConvertBool2Byte(false) != 0 {
		t.Error("bool conversion broken")
	}
	long := ConvertULong8Bytes(0xCAFEBABE00112233)
	_, back := ReadUB8(long, 0)
	if back != 0xCAFEBABE00112233 {
		t.Errorf("uint64 round trip = %x", back)
	}
}
