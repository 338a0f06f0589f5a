package analysis

import (
	"encoding/json"
	"math"
	"strconv"
)

// Num is an optional float64. The zero value is undefined.
// Arithmetic on an undefined operand yields undefined, and any
// non-finite result (NaN, ±Inf) is coerced to undefined.
type Num struct {
	v  float64
	ok bool
}

// Undefined is the undefined Num
var Undefined = Num{}

// Some wraps a finite value; NaN and ±Inf become Undefined
func Some(v float64) Num {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Undefined
	}
	return Num{v: v, ok: true}
}

// FromPtr converts a nullable float to a Num
func FromPtr(p *float64) Num {
	if p == nil {
		return Undefined
	}
	return Some(*p)
}

// Valid reports whether the value is defined
func (n Num) Valid() bool { return n.ok }

// Float returns the value and whether it is defined
func (n Num) Float() (float64, bool) { return n.v, n.ok }

// Or returns the value, or def when undefined
func (n Num) Or(def float64) float64 {
	if !n.ok {
		return def
	}
	return n.v
}

// NaN returns the value, or NaN when undefined (for columnar export)
func (n Num) NaN() float64 { return n.Or(math.NaN()) }

// Ptr returns a pointer copy of the value, nil when undefined
func (n Num) Ptr() *float64 {
	if !n.ok {
		return nil
	}
	v := n.v
	return &v
}

func (n Num) Add(m Num) Num {
	if !n.ok || !m.ok {
		return Undefined
	}
	return Some(n.v + m.v)
}

func (n Num) Mul(m Num) Num {
	if !n.ok || !m.ok {
		return Undefined
	}
	return Some(n.v * m.v)
}

// Div divides n by m. Division by zero is undefined.
func (n Num) Div(m Num) Num {
	if !n.ok || !m.ok || m.v == 0 {
		return Undefined
	}
	return Some(n.v / m.v)
}

// Scale multiplies by a plain constant
func (n Num) Scale(f float64) Num {
	if !n.ok {
		return Undefined
	}
	return Some(n.v * f)
}

func (n Num) String() string {
	if !n.ok {
		return "undefined"
	}
	return strconv.FormatFloat(n.v, 'g', -1, 64)
}

// MarshalJSON encodes undefined as null
func (n Num) MarshalJSON() ([]byte, error) {
	if !n.ok {
		return []byte("null"), nil
	}
	return json.Marshal(n.v)
}

// UnmarshalJSON accepts a number or null
func (n *Num) UnmarshalJSON(data []byte) error {
	var p *float64
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*n = FromPtr(p)
	return nil
}
