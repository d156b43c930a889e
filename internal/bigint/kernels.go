package bigint

import "github.com/mpengine/mpcore/internal/logsink"

// Compare lexicographically compares two equal-length limb arrays from the most
// significant limb down, returning -1, 0, or 1.
func Compare(a, b []uint64) int {
	for i := len(a) - 1; i >= 0; i-- {
		if a[i] > b[i] {
			return 1
		}
		if a[i] < b[i] {
			return -1
		}
	}
	return 0
}

// AddWithCarry computes c = a + b limb-wise in the given base, returning whether the
// final carry out of the top limb was set.
func AddWithCarry(a, b, c []uint64, base uint64) bool {
	var carry uint64
	for i := range a {
		sum := a[i] + b[i] + carry
		if sum >= base {
			c[i] = sum - base
			carry = 1
		} else {
			c[i] = sum
			carry = 0
		}
	}
	return carry != 0
}

// SubAGeB computes c = a - b limb-wise in the given base, under the precondition that a
// >= b as multi-limb values. Returns the final borrow, which should always be false
// under that precondition; a true return indicates the precondition was violated and is
// logged by the caller as a kernel anomaly.
func SubAGeB(a, b, c []uint64, base uint64) bool {
	var borrow uint64
	for i := range a {
		if a[i] >= b[i]+borrow {
			c[i] = a[i] - b[i] - borrow
			borrow = 0
		} else {
			c[i] = a[i] + base - b[i] - borrow
			borrow = 1
		}
	}
	return borrow != 0
}

// Mul2Len computes c = a * b via schoolbook multiplication into a pre-zeroed,
// 2*len(a)-length result c. It returns whether the top limb of the 2L-length result
// stayed within base — a different overflow-signaling convention from the other three
// kernels (they report a carry-out; this reports whether the top output limb alone is
// still a valid single digit), preserved as-is because that is what the original
// actually checks.
func Mul2Len(a, b, c []uint64, base uint64) bool {
	length := len(a)
	for i := 0; i < length; i++ {
		var carry uint64
		for j := 0; j < length; j++ {
			total := c[i+j] + a[i]*b[j] + carry
			if total >= base {
				c[i+j] = total % base
				carry = total / base
			} else {
				c[i+j] = total
				carry = 0
			}
		}
		c[i+length] = carry
	}
	return c[2*length-1] < base
}

// AddSigned computes c = a + b for signed magnitudes (signA, a) and (signB, b), writing
// the result magnitude into c and returning the result sign. Equal signs add magnitudes
// directly; differing signs subtract the smaller magnitude from the larger. A carry out
// of the top limb (from either the add or the subtract path) is logged as a kernel
// anomaly — callers are expected to have sized c generously enough that this never
// legitimately happens.
func AddSigned(signA bool, a []uint64, signB bool, b []uint64, c []uint64, base uint64) (signC bool) {
	if signA == signB {
		if AddWithCarry(a, b, c, base) {
			logsink.Global().Add("calculation overflow", logsink.WARN)
		}
		return signA
	}
	switch Compare(a, b) {
	case 0:
		for i := range c {
			c[i] = 0
		}
		return true
	case 1:
		if SubAGeB(a, b, c, base) {
			logsink.Global().Add("calculation overflow", logsink.WARN)
		}
		return signA
	default:
		if SubAGeB(b, a, c, base) {
			logsink.Global().Add("calculation overflow", logsink.WARN)
		}
		return signB
	}
}
