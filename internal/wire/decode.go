package wire

import (
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/obsctl/obsctl/internal/state"
	"github.com/obsctl/obsctl/pkg/log"
)

// xmlAttrs is the minimal shape shared by every top-level vector element:
// enough to read its attributes generically before dispatching on tag name,
// per spec section 9's tagged-variant redesign note.
type xmlAttrs struct {
	Device   string `xml:"device,attr"`
	Name      string `xml:"name,attr"`
	Label     string `xml:"label,attr"`
	Group     string `xml:"group,attr"`
	State     string `xml:"state,attr"`
	Perm      string `xml:"perm,attr"`
	Rule      string `xml:"rule,attr"`
	Timeout   string `xml:"timeout,attr"`
	Timestamp string `xml:"timestamp,attr"`
	Message   string `xml:"message,attr"`
}

type xmlNumberElem struct {
	Name   string `xml:"name,attr"`
	Label  string `xml:"label,attr"`
	Format string `xml:"format,attr"`
	Min    string `xml:"min,attr"`
	Max    string `xml:"max,attr"`
	Step   string `xml:"step,attr"`
	Value  string `xml:",chardata"`
}

type xmlTextElem struct {
	Name  string `xml:"name,attr"`
	Label string `xml:"label,attr"`
	Value string `xml:",chardata"`
}

type xmlSwitchElem struct {
	Name  string `xml:"name,attr"`
	Label string `xml:"label,attr"`
	Value string `xml:",chardata"`
}

type xmlBlobElem struct {
	Name   string `xml:"name,attr"`
	Label  string `xml:"label,attr"`
	Format string `xml:"format,attr"`
	Size   int    `xml:"size,attr"`
	Value  string `xml:",chardata"`
}

type xmlDefNumberVector struct {
	xmlAttrs
	Numbers []xmlNumberElem `xml:"defNumber"`
}
type xmlDefTextVector struct {
	xmlAttrs
	Texts []xmlTextElem `xml:"defText"`
}
type xmlDefSwitchVector struct {
	xmlAttrs
	Switches []xmlSwitchElem `xml:"defSwitch"`
}
type xmlDefBlobVector struct {
	xmlAttrs
	Blobs []xmlBlobElem `xml:"defBLOB"`
}

type xmlSetNumberVector struct {
	xmlAttrs
	Numbers []xmlNumberElem `xml:"oneNumber"`
}
type xmlSetTextVector struct {
	xmlAttrs
	Texts []xmlTextElem `xml:"oneText"`
}
type xmlSetSwitchVector struct {
	xmlAttrs
	Switches []xmlSwitchElem `xml:"oneSwitch"`
}
type xmlSetBlobVector struct {
	xmlAttrs
	Blobs []xmlBlobElem `xml:"oneBLOB"`
}

type xmlDelProperty struct {
	Device string `xml:"device,attr"`
	Name   string `xml:"name,attr"`
}

type xmlMessage struct {
	Device    string `xml:"device,attr"`
	Timestamp string `xml:"timestamp,attr"`
	Message   string `xml:"message,attr"`
}

// Decode dispatches one complete top-level element (as produced by
// Chunker.Feed) on its lowercased tag name, per spec section 4.1 decoding.
func Decode(elem string) (Decoded, error) {
	name, err := peekTagName(elem)
	if err != nil {
		return Decoded{}, fmt.Errorf("%w: %v", ErrParse, err)
	}
	lname := strings.ToLower(name)

	switch {
	case lname == "defnumbervector":
		return decodeDef(elem, state.KindNumber)
	case lname == "deftextvector":
		return decodeDef(elem, state.KindText)
	case lname == "defswitchvector":
		return decodeDef(elem, state.KindSwitch)
	case lname == "defblobvector":
		return decodeDef(elem, state.KindBlob)
	case lname == "setnumbervector":
		return decodeSet(elem, state.KindNumber)
	case lname == "settextvector":
		return decodeSet(elem, state.KindText)
	case lname == "setswitchvector":
		return decodeSet(elem, state.KindSwitch)
	case lname == "setblobvector":
		return decodeSet(elem, state.KindBlob)
	case lname == "delproperty":
		var d xmlDelProperty
		if err := xml.Unmarshal([]byte(elem), &d); err != nil {
			return Decoded{}, fmt.Errorf("%w: delProperty: %v", ErrParse, err)
		}
		return Decoded{Kind: KindDel, DelDevice: d.Device, DelName: d.Name}, nil
	case lname == "message":
		var m xmlMessage
		if err := xml.Unmarshal([]byte(elem), &m); err != nil {
			return Decoded{}, fmt.Errorf("%w: message: %v", ErrParse, err)
		}
		return Decoded{Kind: KindMessage, MsgDevice: m.Device, MsgText: m.Message, MsgStamp: m.Timestamp}, nil
	case strings.HasPrefix(lname, "new"):
		return Decoded{Kind: KindIgnored}, nil
	default:
		log.Warnf("wire: unknown element tag %q, skipping", name)
		return Decoded{Kind: KindIgnored}, nil
	}
}

func peekTagName(elem string) (string, error) {
	s := strings.TrimLeft(elem, " \t\r\n")
	if len(s) == 0 || s[0] != '<' {
		return "", fmt.Errorf("not an element")
	}
	i := 1
	for i < len(s) {
		switch s[i] {
		case ' ', '\t', '\r', '\n', '/', '>':
			return s[1:i], nil
		}
		i++
	}
	return "", fmt.Errorf("unterminated tag")
}

func parseStamp(s string) (time.Time, error) {
	if s == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		// Tolerate the fractional-second, no-timezone variant INDI daemons commonly emit.
		t, err = time.Parse("2006-01-02T15:04:05.999999", s)
		if err != nil {
			return time.Time{}, err
		}
	}
	return t.UTC(), nil
}

func decodeDef(elem string, kind state.VectorKind) (Decoded, error) {
	v := state.NewVector("", "", kind)
	var attrs xmlAttrs

	switch kind {
	case state.KindNumber:
		var x xmlDefNumberVector
		if err := xml.Unmarshal([]byte(elem), &x); err != nil {
			return Decoded{}, fmt.Errorf("%w: defNumberVector: %v", ErrParse, err)
		}
		attrs = x.xmlAttrs
		for _, e := range x.Numbers {
			ne, err := parseNumberElem(e)
			if err != nil {
				return Decoded{}, err
			}
			v.SetNumber(ne)
		}
	case state.KindText:
		var x xmlDefTextVector
		if err := xml.Unmarshal([]byte(elem), &x); err != nil {
			return Decoded{}, fmt.Errorf("%w: defTextVector: %v", ErrParse, err)
		}
		attrs = x.xmlAttrs
		for _, e := range x.Texts {
			v.SetText(state.TextElement{Name: e.Name, Label: e.Label, Value: strings.TrimSpace(e.Value)})
		}
	case state.KindSwitch:
		var x xmlDefSwitchVector
		if err := xml.Unmarshal([]byte(elem), &x); err != nil {
			return Decoded{}, fmt.Errorf("%w: defSwitchVector: %v", ErrParse, err)
		}
		attrs = x.xmlAttrs
		v.Rule = state.SwitchRule(attrs.Rule)
		for _, e := range x.Switches {
			sv, err := parseSwitchValue(e.Value)
			if err != nil {
				return Decoded{}, err
			}
			v.SetSwitch(state.SwitchElement{Name: e.Name, Label: e.Label, Value: sv})
		}
	case state.KindBlob:
		var x xmlDefBlobVector
		if err := xml.Unmarshal([]byte(elem), &x); err != nil {
			return Decoded{}, fmt.Errorf("%w: defBLOBVector: %v", ErrParse, err)
		}
		attrs = x.xmlAttrs
		for _, e := range x.Blobs {
			v.SetBlob(state.BlobElement{Name: e.Name, Label: e.Label})
		}
	}

	if attrs.Device == "" || attrs.Name == "" || attrs.State == "" || attrs.Perm == "" {
		return Decoded{}, fmt.Errorf("%w: def vector missing required attribute (device/name/state/perm)", ErrParse)
	}
	v.Device = attrs.Device
	v.Name = attrs.Name
	v.Label = attrs.Label
	v.Group = attrs.Group
	v.State = state.VectorState(attrs.State)
	v.Perm = state.Perm(attrs.Perm)
	v.Message = attrs.Message
	if attrs.Timeout != "" {
		if n, err := strconv.Atoi(attrs.Timeout); err == nil {
			v.Timeout = time.Duration(n) * time.Second
		}
	}
	stamp, err := parseStamp(attrs.Timestamp)
	if err != nil {
		return Decoded{}, fmt.Errorf("%w: bad timestamp: %v", ErrParse, err)
	}
	v.Stamp = stamp

	if err := v.EnforceSwitchRule(); err != nil {
		return Decoded{}, fmt.Errorf("%w: %v", ErrParse, err)
	}

	return Decoded{Kind: KindDef, Vector: v}, nil
}

func decodeSet(elem string, kind state.VectorKind) (Decoded, error) {
	v := state.NewVector("", "", kind)
	var attrs xmlAttrs

	switch kind {
	case state.KindNumber:
		var x xmlSetNumberVector
		if err := xml.Unmarshal([]byte(elem), &x); err != nil {
			return Decoded{}, fmt.Errorf("%w: setNumberVector: %v", ErrParse, err)
		}
		attrs = x.xmlAttrs
		for _, e := range x.Numbers {
			val, err := strconv.ParseFloat(strings.TrimSpace(e.Value), 64)
			if err != nil {
				return Decoded{}, fmt.Errorf("%w: number value %q: %v", ErrParse, e.Value, err)
			}
			v.SetNumber(state.NumberElement{Name: e.Name, Value: val})
		}
	case state.KindText:
		var x xmlSetTextVector
		if err := xml.Unmarshal([]byte(elem), &x); err != nil {
			return Decoded{}, fmt.Errorf("%w: setTextVector: %v", ErrParse, err)
		}
		attrs = x.xmlAttrs
		for _, e := range x.Texts {
			v.SetText(state.TextElement{Name: e.Name, Value: strings.TrimSpace(e.Value)})
		}
	case state.KindSwitch:
		var x xmlSetSwitchVector
		if err := xml.Unmarshal([]byte(elem), &x); err != nil {
			return Decoded{}, fmt.Errorf("%w: setSwitchVector: %v", ErrParse, err)
		}
		attrs = x.xmlAttrs
		for _, e := range x.Switches {
			sv, err := parseSwitchValue(e.Value)
			if err != nil {
				return Decoded{}, err
			}
			v.SetSwitch(state.SwitchElement{Name: e.Name, Value: sv})
		}
	case state.KindBlob:
		var x xmlSetBlobVector
		if err := xml.Unmarshal([]byte(elem), &x); err != nil {
			return Decoded{}, fmt.Errorf("%w: setBLOBVector: %v", ErrParse, err)
		}
		attrs = x.xmlAttrs
		for _, e := range x.Blobs {
			raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(e.Value))
			if err != nil {
				return Decoded{}, fmt.Errorf("%w: blob base64: %v", ErrParse, err)
			}
			v.SetBlob(state.BlobElement{Name: e.Name, Format: e.Format, Size: e.Size, Bytes: raw})
		}
	}

	if attrs.Device == "" || attrs.Name == "" {
		return Decoded{}, fmt.Errorf("%w: set vector missing device/name", ErrParse)
	}
	v.Device = attrs.Device
	v.Name = attrs.Name
	v.Message = attrs.Message
	if attrs.State != "" {
		v.State = state.VectorState(attrs.State)
	}
	if attrs.Timeout != "" {
		if n, err := strconv.Atoi(attrs.Timeout); err == nil {
			v.Timeout = time.Duration(n) * time.Second
		}
	}
	stamp, err := parseStamp(attrs.Timestamp)
	if err != nil {
		return Decoded{}, fmt.Errorf("%w: bad timestamp: %v", ErrParse, err)
	}
	v.Stamp = stamp

	return Decoded{Kind: KindSet, Vector: v}, nil
}

func parseNumberElem(e xmlNumberElem) (state.NumberElement, error) {
	min, err := strconv.ParseFloat(e.Min, 64)
	if err != nil {
		return state.NumberElement{}, fmt.Errorf("%w: number min %q: %v", ErrParse, e.Min, err)
	}
	max, err := strconv.ParseFloat(e.Max, 64)
	if err != nil {
		return state.NumberElement{}, fmt.Errorf("%w: number max %q: %v", ErrParse, e.Max, err)
	}
	step, err := strconv.ParseFloat(e.Step, 64)
	if err != nil {
		return state.NumberElement{}, fmt.Errorf("%w: number step %q: %v", ErrParse, e.Step, err)
	}
	val, err := strconv.ParseFloat(strings.TrimSpace(e.Value), 64)
	if err != nil {
		return state.NumberElement{}, fmt.Errorf("%w: number value %q: %v", ErrParse, e.Value, err)
	}
	return state.NumberElement{
		Name: e.Name, Label: e.Label, Format: e.Format,
		Min: min, Max: max, Step: step, Value: val,
	}, nil
}

func parseSwitchValue(raw string) (state.SwitchValue, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "on":
		return state.SwitchOn, nil
	case "off":
		return state.SwitchOff, nil
	default:
		return "", fmt.Errorf("%w: invalid switch value %q", ErrParse, raw)
	}
}
