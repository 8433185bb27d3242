package metadata

import (
	"fmt"
	"strconv"
	"strings"
)

// Transform is the partition or sort transform applied to a source column,
// kept in its canonical string form, e.g. "identity", "bucket[16]".
type Transform string

const (
	TRANSFORM_IDENTITY Transform = "identity"
	TRANSFORM_YEAR     Transform = "year"
	TRANSFORM_MONTH    Transform = "month"
	TRANSFORM_DAY      Transform = "day"
	TRANSFORM_HOUR     Transform = "hour"
	TRANSFORM_VOID     Transform = "void"
)

// BucketTransform hashes the source value into n buckets
func BucketTransform(n int) Transform {
	return Transform(fmt.Sprintf("bucket[%d]", n))
}

// TruncateTransform truncates the source value to the given width
func TruncateTransform(width int) Transform {
	return Transform(fmt.Sprintf("truncate[%d]", width))
}

// ParseTransform validates a canonical transform string
func ParseTransform(s string) (Transform, error) {
	switch Transform(s) {
	case TRANSFORM_IDENTITY, TRANSFORM_YEAR, TRANSFORM_MONTH, TRANSFORM_DAY, TRANSFORM_HOUR, TRANSFORM_VOID:
		return Transform(s), nil
	}
	if n, ok := bracketParam(s, "bucket"); ok {
		if n <= 0 {
			return "", fmt.Errorf("bucket count must be positive: %q", s)
		}
		return Transform(s), nil
	}
	if w, ok := bracketParam(s, "truncate"); ok {
		if w <= 0 {
			return "", fmt.Errorf("truncate width must be positive: %q", s)
		}
		return Transform(s), nil
	}
	return "", fmt.Errorf("unknown transform %q", s)
}

// IsIdentity reports whether the transform passes values through unchanged
func (t Transform) IsIdentity() bool {
	return t == TRANSFORM_IDENTITY
}

// IsTruncate reports whether the transform is a truncate of any width
func (t Transform) IsTruncate() bool {
	_, ok := bracketParam(string(t), "truncate")
	return ok
}

// Validate checks the transform is a known canonical form
func (t Transform) Validate() error {
	_, err := ParseTransform(string(t))
	return err
}

func bracketParam(s, name string) (int, bool) {
	prefix := name + "["
	if !strings.HasPrefix(s, prefix) || !strings.HasSuffix(s, "]") {
		return 0, false
	}
	n, err := strconv.Atoi(s[len(prefix) : len(s)-1])
	if err != nil {
		return 0, false
	}
	return n, true
}
