package cos

import "unsafe"

// UnsafeB casts a string to a []byte without copying; the result must not be
// mutated. Used on the route hot path to avoid allocating when hashing or
// hitting the cuckoo filter with a string key.
func UnsafeB(s string) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

// UnsafeS is the inverse of UnsafeB.
func UnsafeS(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(&b[0], len(b))
}
