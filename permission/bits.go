package permission

import (
	"strconv"
	"strings"
)

// Bits is a capability bitmask for one principal on one module.
type Bits uint8

const (
	// None grants nothing.
	None Bits = 0
	// Read allows GET, HEAD and OPTIONS.
	Read Bits = 1 << 0
	// Create allows POST.
	Create Bits = 1 << 1
	// Update allows PUT and PATCH.
	Update Bits = 1 << 2
	// Delete allows DELETE.
	Delete Bits = 1 << 3

	// ReadWrite is every capability except Delete.
	ReadWrite = Read | Create | Update
	// FullAccess is every capability.
	FullAccess = Read | Create | Update | Delete

	// Max is the largest valid mask.
	Max = FullAccess
)

// ordered lists the single capabilities in canonical rendering order.
var ordered = [...]struct {
	bit  Bits
	name string
}{
	{Read, "Read"},
	{Create, "Create"},
	{Update, "Update"},
	{Delete, "Delete"},
}

// roundNames holds the fixed names for the four "round" combinations.
var roundNames = map[Bits]string{
	None:       "No Access",
	Read:       "Read Only",
	ReadWrite:  "Read/Write",
	FullAccess: "Full Access",
}

// Separator joins capability names for non-round combinations.
const Separator = ", "

// Has reports whether every bit of bit is set in mask.
// Has(mask, None) is always true.
func Has(mask, bit Bits) bool {
	return mask&bit == bit
}

// Add returns mask with bit set.
func Add(mask, bit Bits) Bits {
	return mask | bit
}

// Remove returns mask with bit cleared.
func Remove(mask, bit Bits) Bits {
	return mask &^ bit
}

// Valid reports whether mask only uses the four defined bits.
func Valid(mask Bits) bool {
	return mask&^Max == 0
}

// Name renders mask canonically: a fixed name for none, read-only, read/write and
// full access, otherwise the set capability names in Read, Create, Update, Delete
// order joined by [Separator]. Bits outside the four defined ones are ignored.
func Name(mask Bits) string {
	mask &= Max
	if name, ok := roundNames[mask]; ok {
		return name
	}

	parts := make([]string, 0, len(ordered))
	for _, o := range ordered {
		if mask&o.bit != 0 {
			parts = append(parts, o.name)
		}
	}
	return strings.Join(parts, Separator)
}

// List returns the names of the single capabilities set in mask.
func List(mask Bits) []string {
	var names []string
	for _, o := range ordered {
		if mask&o.bit != 0 {
			names = append(names, o.name)
		}
	}
	return names
}

// Has reports whether every bit of bit is set in m.
func (m Bits) Has(bit Bits) bool { return Has(m, bit) }

// Add returns m with bit set.
func (m Bits) Add(bit Bits) Bits { return Add(m, bit) }

// Remove returns m with bit cleared.
func (m Bits) Remove(bit Bits) Bits { return Remove(m, bit) }

// String returns [Name] of m.
func (m Bits) String() string { return Name(m) }

// Raw returns the mask as a plain integer, the form persisted by stores.
func (m Bits) Raw() int { return int(m) }

// FromInt converts a stored integer to Bits, rejecting values outside 0-15.
func FromInt(v int) (Bits, error) {
	if v < 0 || v > int(Max) {
		return None, &RangeError{Value: strconv.Itoa(v)}
	}
	return Bits(v), nil
}
