// Package bigint implements the engine's fixed-length signed limb vector (Component G)
// and the arithmetic kernels it is computed with (Component H). A BigInt's storage
// comes from the shared slab allocator rather than one-off heap allocations, so a DAG
// with thousands of intermediate values never pressures the garbage collector with
// thousands of small slices.
package bigint

import (
	"fmt"
	"math/bits"
	"runtime"
	"strings"
	"unsafe"

	"github.com/mpengine/mpcore/internal/alloc"
	"github.com/mpengine/mpcore/internal/logsink"
	"github.com/mpengine/mpcore/pkg/mperrors"
)

// IOBasic selects the I/O radix a BigInt is parsed and formatted in; it also fixes the
// limb's internal store base.
type IOBasic int

const (
	Oct IOBasic = iota
	Dec
	Hex
)

// ioBase is the external, human-facing radix: 8, 10, or 16.
func (b IOBasic) ioBase() uint64 {
	switch b {
	case Oct:
		return 8
	case Hex:
		return 16
	default:
		return 10
	}
}

// StoreBase is the per-limb radix: a power of the I/O base (oct: 8^9 = 2^27,
// dec: 10^8, hex: 16^7 = 2^28) small enough that a uint64 column addition/multiplication
// never overflows, grounded exactly on the original iofun constant table.
func (b IOBasic) StoreBase() uint64 {
	switch b {
	case Oct:
		return 134217728
	case Hex:
		return 268435456
	default:
		return 100000000
	}
}

// DigitsPerLimb is how many I/O-base digits one limb holds.
func (b IOBasic) DigitsPerLimb() int {
	switch b {
	case Oct:
		return 9
	case Hex:
		return 7
	default:
		return 8
	}
}

func (b IOBasic) String() string {
	switch b {
	case Oct:
		return "Oct"
	case Hex:
		return "Hex"
	default:
		return "Dec"
	}
}

// PrecisionToLogLen computes the smallest logL such that 2^logL limbs hold at least
// digits decimal (or oct/hex) digits of precision.
func PrecisionToLogLen(digits int, base IOBasic) int {
	if digits <= 0 {
		digits = 1
	}
	dpl := base.DigitsPerLimb()
	limbs := (digits + dpl - 1) / dpl
	if limbs < 1 {
		limbs = 1
	}
	ceilPow2 := uint64(1)
	for ceilPow2 < uint64(limbs) {
		ceilPow2 <<= 1
	}
	return bits.TrailingZeros64(ceilPow2)
}

// Limits bounds the configured logL range a BigInt's length is clamped to; obtained
// from the engine configuration (Component K) rather than hardcoded so deployments can
// widen or narrow it.
type Limits struct {
	MinLogLen, MaxLogLen int
	DelayedAllocation    bool
	Pool                 *alloc.Pool
}

// BigInt is the fixed-length signed limb vector. sign=true means non-negative,
// including zero.
type BigInt struct {
	sign    bool
	base    IOBasic
	logLen  int
	length  int
	limits  Limits
	handle  *alloc.Handle
	cleanup runtime.Cleanup
	data    []uint64
}

// NewBigInt builds a BigInt with the requested logL (clamped into limits), deferring
// storage allocation unless limits.DelayedAllocation is false.
func NewBigInt(logL int, base IOBasic, limits Limits) *BigInt {
	if limits.MaxLogLen <= limits.MinLogLen {
		limits.MinLogLen, limits.MaxLogLen = alloc.MinLogLen, alloc.MaxLogLen
	}
	if logL < limits.MinLogLen {
		logsink.Global().Add("(Basic Integer): the data length is implicitly truncated to the lower bound", logsink.INFO)
		logL = limits.MinLogLen
	}
	if logL > limits.MaxLogLen {
		logsink.Global().Add("(Basic Integer): the data length is implicitly truncated to the upper bound", logsink.INFO)
		logL = limits.MaxLogLen
	}
	b := &BigInt{
		sign:   true,
		base:   base,
		logLen: logL,
		length: 1 << uint(logL),
		limits: limits,
	}
	if !limits.DelayedAllocation {
		b.allocate()
	}
	return b
}

func (b *BigInt) allocate() {
	if b.data != nil {
		return
	}
	pool := b.limits.Pool
	if pool == nil {
		pool = alloc.Global()
	}
	h := pool.Allocate(uint64(b.length) * 8)
	b.handle = &h
	b.cleanup = runtime.AddCleanup(b, func(handle alloc.Handle) {
		handle.Release()
	}, h)
	raw := h.Bytes()
	b.data = reinterpretUint64(raw)[:b.length]
	for i := range b.data {
		b.data[i] = 0
	}
}

// reinterpretUint64 views a slab-allocated byte slice as a []uint64 without copying.
// Safe because alloc.Pool guarantees 64-byte-aligned, 64-byte-granular blocks, which is
// far stricter than uint64 alignment; it mirrors the source's
// reinterpret_cast<ElementType*> over its own aligned_alloc buffer.
func reinterpretUint64(raw []byte) []uint64 {
	n := len(raw) / 8
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*uint64)(unsafe.Pointer(&raw[0])), n)
}

// EnsuredPointer returns the limb slice, allocating storage on first use.
func (b *BigInt) EnsuredPointer() []uint64 {
	b.allocate()
	return b.data
}

// Pointer returns the limb slice if already allocated, or nil.
func (b *BigInt) Pointer() []uint64 { return b.data }

// Len is the limb count (2^logL).
func (b *BigInt) Len() int { return b.length }

// Base is the I/O radix this value is parsed/formatted in.
func (b *BigInt) Base() IOBasic { return b.base }

// Sign reports whether the value is non-negative (true includes zero).
func (b *BigInt) Sign() bool { return b.sign }

// SetSign overrides the sign flag directly; used by the add node once it has computed
// the result magnitude and needs to record which operand's sign won.
func (b *BigInt) SetSign(sign bool) { b.sign = sign }

// Release returns the limb storage to the slab pool immediately, ahead of GC. Safe to
// call on an unallocated BigInt (a no-op) or more than once.
func (b *BigInt) Release() {
	if b.handle != nil {
		b.cleanup.Stop()
		b.handle.Release()
		b.handle = nil
		b.data = nil
	}
}

// Status reports "null_yet" or "allocated", matching the source's debug accessor.
func (b *BigInt) Status() string {
	if b.data == nil {
		return "null_yet"
	}
	return "allocated"
}

// Parse fills b's limbs from a signed integer literal in b's configured base.
func Parse(s string, b *BigInt) error {
	if s == "" {
		return mperrors.New(mperrors.ParseError, "empty string input")
	}
	sign := true
	switch s[0] {
	case '+':
		s = s[1:]
	case '-':
		sign = false
		s = s[1:]
	}
	if s == "" {
		return mperrors.New(mperrors.ParseError, "empty string input")
	}
	arr := b.EnsuredPointer()
	for i := range arr {
		arr[i] = 0
	}
	storeBase := b.base.StoreBase()
	ioBase := b.base.ioBase()

	var storeDigit, power uint64 = 0, 1
	p := 0
	for i := len(s) - 1; i >= 0; i-- {
		digit, err := digitParse(s[i])
		if err != nil {
			return err
		}
		if digit >= ioBase {
			return mperrors.New(mperrors.ParseError, fmt.Sprintf("invalid digit: '%c' in base: %s", s[i], b.base))
		}
		storeDigit += power * digit
		power *= ioBase
		if power == storeBase {
			if p >= len(arr) {
				return mperrors.New(mperrors.ParseError, "integer length limit exceeded")
			}
			arr[p] = storeDigit
			p++
			storeDigit, power = 0, 1
		}
	}
	if storeDigit != 0 {
		if p >= len(arr) {
			return mperrors.New(mperrors.ParseError, "integer length limit exceeded")
		}
		arr[p] = storeDigit
	}
	b.sign = sign
	return nil
}

func digitParse(r byte) (uint64, error) {
	switch {
	case '0' <= r && r <= '9':
		return uint64(r - '0'), nil
	case 'A' <= r && r <= 'Z':
		return uint64(r-'A') + 10, nil
	case 'a' <= r && r <= 'z':
		return uint64(r-'a') + 10, nil
	default:
		return 0, mperrors.New(mperrors.ParseError, fmt.Sprintf("invalid character in integer: '%c'", r))
	}
}

// Format renders b as a signed integer literal in its configured base.
func Format(b *BigInt) string {
	arr := b.Pointer()
	if arr == nil {
		return "0"
	}
	var out strings.Builder
	if !b.sign {
		out.WriteByte('-')
	}
	noneZero := false
	dpl := b.base.DigitsPerLimb()
	for i := len(arr) - 1; i >= 0; i-- {
		if arr[i] != 0 && !noneZero {
			noneZero = true
			writeStoreDigit(&out, b.base, arr[i], false, dpl)
		} else if noneZero {
			writeStoreDigit(&out, b.base, arr[i], true, dpl)
		}
	}
	if !noneZero {
		return "0"
	}
	return out.String()
}

func writeStoreDigit(out *strings.Builder, base IOBasic, digit uint64, filling bool, width int) {
	var s string
	switch base {
	case Oct:
		s = fmt.Sprintf("%o", digit)
	case Hex:
		s = fmt.Sprintf("%x", digit)
	default:
		s = fmt.Sprintf("%d", digit)
	}
	if filling && len(s) < width {
		out.WriteString(strings.Repeat("0", width-len(s)))
	}
	out.WriteString(s)
}
