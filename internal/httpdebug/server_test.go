package httpdebug

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/obsctl/obsctl/internal/conn"
	"github.com/obsctl/obsctl/internal/state"
)

type fakeConn struct {
	snap *state.State
	err  error
}

func (f *fakeConn) State() (*state.State, error) { return f.snap, f.err }
func (f *fakeConn) SetValue(device, property string, values map[string]interface{}, opts conn.SetValueOpts) error {
	return nil
}

func TestHandleHealthzReportsConnectionState(t *testing.T) {
	c := &fakeConn{snap: state.New()}
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	handleHealthz(c)(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	c.err = errors.New("boom")
	rr = httptest.NewRecorder()
	handleHealthz(c)(rr, req)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestHandleDevicesListsDeviceNames(t *testing.T) {
	snap := state.New()
	v := state.NewVector("mount", "EQUATORIAL_EOD_COORD", state.KindNumber)
	snap.DefineVector(v)

	c := &fakeConn{snap: snap}
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/devices", nil)
	handleDevices(c)(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var names []string
	if err := json.Unmarshal(rr.Body.Bytes(), &names); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(names) != 1 || names[0] != "mount" {
		t.Fatalf("expected [mount], got %v", names)
	}
}
