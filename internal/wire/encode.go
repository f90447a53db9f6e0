package wire

import (
	"encoding/base64"
	"fmt"
	"html"
	"strings"

	"github.com/obsctl/obsctl/internal/state"
)

// EncodeNumberVector builds a newNumberVector mutation element. values maps
// element name to the requested value; any value outside [min, max] is
// rejected with ErrRange, per spec section 4.1 encoding.
func EncodeNumberVector(v *state.Vector, values map[string]float64) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, `<newNumberVector device="%s" name="%s">`, esc(v.Device), esc(v.Name))
	for _, name := range v.ElementNames() {
		val, wants := values[name]
		if !wants {
			continue
		}
		el, ok := v.Number(name)
		if !ok {
			continue
		}
		if val < el.Min || val > el.Max {
			return "", fmt.Errorf("%w: %s/%s=%g not in [%g, %g]", ErrRange, v.Name, name, val, el.Min, el.Max)
		}
		fmt.Fprintf(&sb, `<oneNumber name="%s">%g</oneNumber>`, esc(name), val)
	}
	sb.WriteString("</newNumberVector>")
	return sb.String(), nil
}

// EncodeTextVector builds a newTextVector mutation element.
func EncodeTextVector(v *state.Vector, values map[string]string) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, `<newTextVector device="%s" name="%s">`, esc(v.Device), esc(v.Name))
	for _, name := range v.ElementNames() {
		val, wants := values[name]
		if !wants {
			continue
		}
		fmt.Fprintf(&sb, `<oneText name="%s">%s</oneText>`, esc(name), esc(val))
	}
	sb.WriteString("</newTextVector>")
	return sb.String(), nil
}

// EncodeSwitchVector builds a newSwitchVector mutation element for the
// requested element->bool writes, resolving the implicit complementary
// flips that OneOfMany/AtMostOne vectors require per spec section 4.1:
//   - turning one element On in OneOfMany/AtMostOne forces every other
//     element Off in the same message.
//   - turning one element Off in a two-element OneOfMany forces the other On.
//   - any other single-element Off against OneOfMany is ambiguous and rejected.
func EncodeSwitchVector(v *state.Vector, requested map[string]bool) (string, error) {
	if v.Kind != state.KindSwitch {
		return "", fmt.Errorf("%w: not a switch vector", ErrParse)
	}

	final := map[string]bool{}
	for _, name := range v.ElementNames() {
		el, _ := v.Switch(name)
		final[name] = el.Value == state.SwitchOn
	}

	if len(requested) == 1 && (v.Rule == state.RuleOneOfMany || v.Rule == state.RuleAtMostOne) {
		var onlyName string
		var onlyWant bool
		for k, w := range requested {
			onlyName, onlyWant = k, w
		}
		if onlyWant {
			for name := range final {
				final[name] = name == onlyName
			}
		} else {
			names := v.ElementNames()
			if v.Rule == state.RuleAtMostOne {
				final[onlyName] = false
			} else if v.Rule == state.RuleOneOfMany && len(names) == 2 {
				for _, name := range names {
					final[name] = name != onlyName
				}
			} else {
				return "", fmt.Errorf("%w: ambiguous single-element Off against %s vector %s", ErrSwitchAmbiguous, v.Rule, v.Name)
			}
		}
	} else {
		for name, want := range requested {
			final[name] = want
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `<newSwitchVector device="%s" name="%s">`, esc(v.Device), esc(v.Name))
	for _, name := range v.ElementNames() {
		word := "Off"
		if final[name] {
			word = "On"
		}
		fmt.Fprintf(&sb, `<oneSwitch name="%s">%s</oneSwitch>`, esc(name), word)
	}
	sb.WriteString("</newSwitchVector>")
	return sb.String(), nil
}

// EncodeEnableBlob builds an enableBLOB command, per spec section 4.2
// set_camera_recv.
func EncodeEnableBlob(device, mode string) string {
	return fmt.Sprintf(`<enableBLOB device="%s">%s</enableBLOB>`, esc(device), esc(mode))
}

// EncodeGetProperties builds the initial handshake element the connection
// worker sends on open, per spec section 4.2.
func EncodeGetProperties() string {
	return fmt.Sprintf(`<getProperties version="%s"/>`, ProtocolVersion)
}

func esc(s string) string {
	return html.EscapeString(s)
}

// blobToBase64 is exposed for tests and for any future client-side blob
// upload path; the current protocol treats blob vectors as read-only from
// the client, per spec section 4.1.
func blobToBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}
