package conn

import (
	"testing"

	"github.com/obsctl/obsctl/internal/state"
	"github.com/obsctl/obsctl/internal/wire"
)

func TestWorkerApplyDefThenSetPreservesOrder(t *testing.T) {
	w := &worker{state: state.New()}

	def, err := wire.Decode(`<defTextVector device="mnt" name="T" state="Ok" perm="rw"><defText name="a" label="A">1</defText><defText name="b" label="B">2</defText></defTextVector>`)
	if err != nil {
		t.Fatalf("decode def: %v", err)
	}
	w.state.DefineVector(def.Vector)

	set, err := wire.Decode(`<setTextVector device="mnt" name="T"><oneText name="b">22</oneText></setTextVector>`)
	if err != nil {
		t.Fatalf("decode set: %v", err)
	}
	w.applySet(set.Vector)

	v := w.state.Vector("mnt", "T")
	names := v.ElementNames()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Fatalf("expected order [a b], got %v", names)
	}
	el, _ := v.Text("b")
	if el.Value != "22" {
		t.Fatalf("expected updated value 22, got %q", el.Value)
	}
	el, _ = v.Text("a")
	if el.Value != "1" {
		t.Fatalf("expected untouched value 1, got %q", el.Value)
	}
}

func TestWorkerApplySetIgnoresUnknownVector(t *testing.T) {
	w := &worker{state: state.New()}
	set, _ := wire.Decode(`<setTextVector device="mnt" name="ghost"><oneText name="a">x</oneText></setTextVector>`)
	w.applySet(set.Vector) // must not panic
	if w.state.Vector("mnt", "ghost") != nil {
		t.Fatalf("unknown vector should not materialize")
	}
}
