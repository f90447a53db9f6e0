// Package config holds process-wide settings: the mount/camera/focuser/
// wheel device names, the daemon address, and the catalog URL. It is
// initialized exactly once at process start; re-initialization is a hard
// error, matching the contract in spec section 6.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/obsctl/obsctl/pkg/log"
)

// Keys holds the active process configuration. It is read-only after Init
// returns; callers must not mutate it.
var Keys Config

var initialized bool
var mu sync.Mutex

// Config is the process-wide configuration schema.
type Config struct {
	Mount   string `json:"mount"`
	Camera  string `json:"camera"`
	Focuser string `json:"focuser,omitempty"`
	Wheel   string `json:"wheel"`

	Host string `json:"host"`
	Port int    `json:"port"`

	CatalogURL      string `json:"catalogURL"`
	CatalogUsername string `json:"catalogUsername,omitempty"`
	CatalogPassword string `json:"catalogPassword,omitempty"`

	NatsAddress string `json:"natsAddress,omitempty"`

	DeadLetterDB string `json:"deadLetterDB,omitempty"`

	DebugListenAddress string `json:"debugListenAddress,omitempty"`

	SweepIntervalSeconds   float64 `json:"sweepIntervalSeconds,omitempty"`
	DeadLetterRetrySeconds int     `json:"deadLetterRetrySeconds,omitempty"`
}

// defaults mirrors the teacher's package-level Keys-with-defaults pattern:
// overridden field-by-field by whatever the config file supplies.
var defaults = Config{
	Host:                   "localhost",
	Port:                   7624,
	CatalogURL:             "http://127.0.0.1:8090",
	DeadLetterDB:           "./var/deadletter.db",
	DebugListenAddress:     "127.0.0.1:8091",
	SweepIntervalSeconds:   1.0,
	DeadLetterRetrySeconds: 60,
}

// Init loads and validates configuration from a JSON file at path,
// overlaying it onto the documented defaults. Calling Init a second time
// is a hard programmer error.
func Init(path string) error {
	mu.Lock()
	defer mu.Unlock()
	if initialized {
		log.Fatal("config: Init called twice")
	}

	Keys = defaults

	if path == "" {
		initialized = true
		return fmt.Errorf("config: no config file path given")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := validate(raw); err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&Keys); err != nil {
		return fmt.Errorf("config: decode %s: %w", path, err)
	}

	initialized = true
	return nil
}

// SweepInterval returns the scheduler's cooperative loop period, clamped to
// the spec's floor of 1 second.
func (c Config) SweepInterval() time.Duration {
	if c.SweepIntervalSeconds <= 0 {
		return time.Second
	}
	d := time.Duration(c.SweepIntervalSeconds * float64(time.Second))
	if d < time.Second {
		return time.Second
	}
	return d
}
