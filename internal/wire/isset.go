package wire

import (
	"math"

	"github.com/obsctl/obsctl/internal/state"
)

const numberTolerance = 1e-4

// IsSetNumber reports whether every element named in want matches the
// vector's current value within absolute tolerance 1e-4, per spec section
// 4.1 is_set.
func IsSetNumber(v *state.Vector, want map[string]float64) bool {
	for name, target := range want {
		el, ok := v.Number(name)
		if !ok {
			return false
		}
		if math.Abs(el.Value-target) > numberTolerance {
			return false
		}
	}
	return true
}

// IsSetText reports whether every element named in want matches by string equality.
func IsSetText(v *state.Vector, want map[string]string) bool {
	for name, target := range want {
		el, ok := v.Text(name)
		if !ok || el.Value != target {
			return false
		}
	}
	return true
}

// IsSetSwitch reports whether every element named in want matches by enum equality.
func IsSetSwitch(v *state.Vector, want map[string]bool) bool {
	for name, target := range want {
		el, ok := v.Switch(name)
		if !ok {
			return false
		}
		if (el.Value == state.SwitchOn) != target {
			return false
		}
	}
	return true
}

// IsSetBlob always returns true: blob writes are not value-confirmed, per
// spec section 4.1.
func IsSetBlob(*state.Vector, map[string]struct{}) bool {
	return true
}
