package wire

import "testing"

// S1 — chunk reassembly: feeding the codec a single element split across
// arbitrary byte boundaries must still yield exactly one decoded element.
func TestChunkerReassemblesSplitElement(t *testing.T) {
	full := `<defNumberVector device="d" name="v" state="Ok" perm="rw"><defNumber name="x" format="%g" min="0" max="10" step="1">5</defNumber></defNumberVector>`

	var c Chunker
	var got []string
	for i := 0; i < len(full); i += 7 {
		end := i + 7
		if end > len(full) {
			end = len(full)
		}
		elems, _ := c.Feed([]byte(full[i:end]))
		got = append(got, elems...)
	}

	if len(got) != 1 {
		t.Fatalf("expected exactly 1 element, got %d: %v", len(got), got)
	}

	dec, err := Decode(got[0])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dec.Kind != KindDef {
		t.Fatalf("expected KindDef, got %v", dec.Kind)
	}
	el, ok := dec.Vector.Number("x")
	if !ok {
		t.Fatalf("missing element x")
	}
	if el.Value != 5.0 {
		t.Fatalf("expected value 5.0, got %v", el.Value)
	}
}

func TestChunkerHandlesMultipleSelfClosedElements(t *testing.T) {
	var c Chunker
	elems, pending := c.Feed([]byte(`<a/>   <b/><c/>`))
	if pending {
		t.Fatalf("did not expect pending open")
	}
	if len(elems) != 3 {
		t.Fatalf("expected 3 elements, got %d: %v", len(elems), elems)
	}
}

func TestChunkerReportsPendingOpen(t *testing.T) {
	var c Chunker
	elems, pending := c.Feed([]byte(`<message device="x" message="hello"`))
	if len(elems) != 0 {
		t.Fatalf("expected no complete elements, got %v", elems)
	}
	if !pending {
		t.Fatalf("expected pending open to be reported")
	}
}

func TestChunkerDropsLeadingTextWithWarning(t *testing.T) {
	var c Chunker
	elems, _ := c.Feed([]byte(`garbage text<a/>`))
	if len(elems) != 1 || elems[0] != "<a/>" {
		t.Fatalf("unexpected result: %v", elems)
	}
}

// Monotonic chunking: every prefix of a stream should yield a prefix of the
// element sequence produced by the whole stream (spec section 8 invariant 1).
func TestChunkerMonotonicPrefix(t *testing.T) {
	full := `<a/><b/><c/><defTextVector device="d" name="n" state="Ok" perm="rw"><defText name="t" label="T">hi</defText></defTextVector>`

	var whole Chunker
	wholeElems, _ := whole.Feed([]byte(full))

	for cut := 1; cut < len(full); cut++ {
		var c Chunker
		prefixElems, _ := c.Feed([]byte(full[:cut]))
		for i, e := range prefixElems {
			if i >= len(wholeElems) || wholeElems[i] != e {
				t.Fatalf("cut=%d: prefix element %d (%q) is not a prefix of whole-stream elements %v", cut, i, e, wholeElems)
			}
		}
	}
}
