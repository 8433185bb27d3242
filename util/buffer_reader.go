package util

func ReadBytes(buff []byte, cursor int, offset int) (int, []byte) {
	if offset <= 0 {
		return cursor, nil
	}
	return cursor + offset, buff[cursor : cursor+offset]
}

func ReadByte(buff []byte, cursor int) (int, byte) {
	return cursor + 1, buff[cursor]
}

func ReadUB2(buff []byte, cursor int) (int, uint16) {
	i := uint16(buff[cursor])
	i |= uint16(buff[cursor+1]) << 8
	return cursor + 2, i
}

func ReadUB3(buff []byte, cursor int) (int, uint32) {
	i := uint32(buff[cursor])
	i |= uint32(buff[cursor+1]) << 8
	i |= uint32(buff[cursor+2]) << 16
	return cursor + 3, i
}

func ReadUB4(buff []byte, cursor int) (int, uint32) {
	i := uint32(buff[cursor])
	i |= uint32(buff[cursor+1]) << 8
	i |= uint32(buff[cursor+2]) << 16
	i |= uint32(buff[cursor+3]) << 24
	return cursor + 4, i
}

func ReadUB8(buff []byte, cursor int) (int, uint64) {
	i := uint64(buff[cursor])
	i |= uint64(buff[cursor+1]) << 8
	i |= uint64(buff[cursor+2]) << 16
	i |= uint64(buff[cursor+3]) << 24
	i |= uint64(buff[cursor+4]) << 32
	i |= uint64(buff[cursor+5]) << 40
	i |= uint64(buff[cursor+6]) << 48
	i |= uint64(buff[cursor+7]) << 56
	return cursor + 8, i
}

// ReadLength 读取长度编码的整数
func ReadLength(buff []byte, cursor int) (int, uint64) {
	length := buff[cursor]
	cursor++
	switch length {
	case 251:
		return cursor, 0
	case 252:
		cursor, u16 := ReadUB2(buff, cursor)
		return cursor, uint64(u16)
	case 253:
		cursor, u24 := ReadUB3(buff, cursor)
		return cursor, uint64(u24)
	case 254:
		cursor, u64 := ReadUB8(buff, cursor)
		return cursor, u64
	default:
		return cursor, uint64(length)
	}
}

func ReadLengthString(buff []byte, cursor int) (int, string) {
	cursor, strLen := ReadLength(buff, cursor)
	cursor, tmp := ReadBytes(buff, cursor, int(strLen))
	return cursor, string(tmp)
}

func ReadLengthBytes(buff []byte, cursor int) (int, []byte) {
	cursor, length := ReadLength(buff, cursor)
	if length <= 0 {
		result := make([]byte, 0)
		return cursor, result
	}
	return cursor + int(length), buff[cursor : cursor+int(length)]
}

// GetLength 计算长度编码整数本身占用的字节数
func GetLength(length int64) int {
	if length < 251 {
		return 1
	} else if length < 0x10000 {
		return 3
	} else if length < 0x1000000 {
		return 4
	} else {
		return 9
	}
}

// GetLengthBytes 计算带长度前缀写入后占用的总字节数
func GetLengthBytes(buff []byte) int {
	length := len(buff)
	if length < 251 {
		return 1 + length
	} else if length < 0x10000 {
		return 3 + length
	} else if length < 0x1000000 {
		return 4 + length
	} else {
		return 9 + length
	}
}

func ReadUB4Byte2UInt32(buff []byte) uint32 {
	if len(buff) == 2 {
		buff = append(buff, 0, 0)
	}
	_, rs := ReadUB4(buff, 0)
	return rs
}
