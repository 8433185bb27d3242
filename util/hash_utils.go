package util

import (
	"github.com/OneOfOne/xxhash"
)

// HashCode 返回 key 的 xxhash64 摘要。
// 二进制帧的尾校验与快照 ID 派生共用这一摘要。
func HashCode(key []byte) uint64 {
	h := xxhash.New64()
	h.Write(key)
	return h.Sum64()
}
