package atom

import (
	"fmt"
	"sort"
	"strings"
)

// Properties holds an atom's custom, schema-free attributes. nil and the
// empty Properties are equivalent.
type Properties map[string]any

// Equal reports whether p and other hold the same keys mapped to values that
// compare equal with ==. Values that aren't comparable (slices, maps) are
// compared via fmt.Sprintf as a fallback, matching the loose equality the
// original's Properties::operator== gives custom attributes.
func (p Properties) Equal(other Properties) bool {
	if len(p) != len(other) {
		return false
	}
	for k, v := range p {
		ov, ok := other[k]
		if !ok {
			return false
		}
		if !propertyValueEqual(v, ov) {
			return false
		}
	}
	return true
}

func propertyValueEqual(a, b any) (equal bool) {
	defer func() {
		if recover() != nil {
			equal = fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
		}
	}()
	return a == b
}

// String renders Properties deterministically (keys sorted) for use in
// to_string()-style debug output.
func (p Properties) String() string {
	if len(p) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %v", k, p[k])
	}
	b.WriteByte('}')
	return b.String()
}
