package models

import (
	"fmt"
	"strings"
)

// TransportMode is the closed set of candidate transport options. The integer
// values double as the model's mode-index feature, so the order is fixed.
type TransportMode int

const (
	ModeBus TransportMode = iota
	ModeMetro
	ModeRideShare
	ModeTaxi
)

var modeNames = [...]string{"Bus", "Metro", "RideShare", "Taxi"}

// AllModes returns every mode in canonical priority order.
func AllModes() []TransportMode {
	return []TransportMode{ModeBus, ModeMetro, ModeRideShare, ModeTaxi}
}

func (m TransportMode) Valid() bool {
	return m >= ModeBus && m <= ModeTaxi
}

func (m TransportMode) String() string {
	if !m.Valid() {
		return fmt.Sprintf("TransportMode(%d)", int(m))
	}
	return modeNames[m]
}

// ParseMode accepts the canonical names case-insensitively ("bus", "RideShare",
// "ride-share").
func ParseMode(s string) (TransportMode, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.ReplaceAll(key, "-", "")
	key = strings.ReplaceAll(key, "_", "")
	switch key {
	case "bus":
		return ModeBus, nil
	case "metro":
		return ModeMetro, nil
	case "rideshare":
		return ModeRideShare, nil
	case "taxi":
		return ModeTaxi, nil
	}
	return 0, fmt.Errorf("unknown transport mode %q", s)
}

func (m TransportMode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("invalid transport mode %d", int(m))
	}
	return []byte(modeNames[m]), nil
}

func (m *TransportMode) UnmarshalText(b []byte) error {
	parsed, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
