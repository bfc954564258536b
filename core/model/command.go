package model

import (
	"fmt"
	"strconv"
	"strings"
)

// StorageState is the operating mode requested from the storage element.
type StorageState int

const (
	StateIdling StorageState = iota
	StateDischarging
	StateCharging
)

func (s StorageState) String() string {
	switch s {
	case StateDischarging:
		return "DISCHARGING"
	case StateCharging:
		return "CHARGING"
	default:
		return "IDLING"
	}
}

// ParseStorageState converts the solver spelling back to a StorageState.
func ParseStorageState(s string) (StorageState, bool) {
	switch strings.ToUpper(s) {
	case "IDLING":
		return StateIdling, true
	case "DISCHARGING":
		return StateDischarging, true
	case "CHARGING":
		return StateCharging, true
	default:
		return StateIdling, false
	}
}

// Command is one topology or state mutation sent to the solver. Text renders
// it in the solver's native command grammar.
type Command interface {
	Text() string
}

// SetEnabled enables or disables a network element.
type SetEnabled struct {
	Element string
	Enabled bool
}

// NewSetEnabled validates the element name.
func NewSetEnabled(element string, enabled bool) (SetEnabled, error) {
	if err := ValidateElement(element); err != nil {
		return SetEnabled{}, err
	}
	return SetEnabled{Element: element, Enabled: enabled}, nil
}

func (c SetEnabled) Text() string {
	return fmt.Sprintf("edit %s enabled=%s", c.Element, yesNo(c.Enabled))
}

// SetStorageState sets a storage element's operating mode and power.
type SetStorageState struct {
	Element string
	State   StorageState
	KW      float64
}

// NewSetStorageState validates the element name and power setpoint.
func NewSetStorageState(element string, state StorageState, kw float64) (SetStorageState, error) {
	if err := ValidateElement(element); err != nil {
		return SetStorageState{}, err
	}
	if kw < 0 {
		return SetStorageState{}, fmt.Errorf("storage setpoint must be non-negative, got %g", kw)
	}
	return SetStorageState{Element: element, State: state, KW: kw}, nil
}

func (c SetStorageState) Text() string {
	return fmt.Sprintf("edit %s State=%s kW=%s", c.Element, c.State, strconv.FormatFloat(c.KW, 'f', -1, 64))
}

// SetProperty assigns a single property on an element.
type SetProperty struct {
	Element  string
	Property string
	Value    string
}

// NewSetProperty validates the element and property names.
func NewSetProperty(element, property, value string) (SetProperty, error) {
	if err := ValidateElement(element); err != nil {
		return SetProperty{}, err
	}
	if property == "" || strings.ContainsAny(property, " =") {
		return SetProperty{}, fmt.Errorf("invalid property name %q", property)
	}
	if value == "" || strings.ContainsAny(value, " ") {
		return SetProperty{}, fmt.Errorf("invalid value %q for %s", value, property)
	}
	return SetProperty{Element: element, Property: property, Value: value}, nil
}

func (c SetProperty) Text() string {
	return fmt.Sprintf("edit %s %s=%s", c.Element, c.Property, c.Value)
}

// Raw is forwarded verbatim, for topology edits no other variant models.
type Raw string

func (r Raw) Text() string { return string(r) }

// ValidateElement checks the "class.name" form used by the solver.
func ValidateElement(name string) error {
	class, inst, ok := strings.Cut(name, ".")
	if !ok || class == "" || inst == "" || strings.ContainsAny(name, " \t=") {
		return fmt.Errorf("invalid element name %q", name)
	}
	return nil
}

// ParseCommand turns a command string into the most specific variant it
// matches. Anything unrecognised becomes Raw.
func ParseCommand(s string) Command {
	s = strings.TrimSpace(s)
	fields := strings.Fields(s)
	if len(fields) < 3 || !strings.EqualFold(fields[0], "edit") || ValidateElement(fields[1]) != nil {
		return Raw(s)
	}
	element := fields[1]
	props := make(map[string]string, len(fields)-2)
	order := make([]string, 0, len(fields)-2)
	for _, f := range fields[2:] {
		k, v, ok := strings.Cut(f, "=")
		if !ok || k == "" || v == "" {
			return Raw(s)
		}
		key := strings.ToLower(k)
		props[key] = v
		order = append(order, key)
	}
	if len(props) != len(order) {
		return Raw(s)
	}
	switch {
	case len(props) == 1 && order[0] == "enabled":
		if en, ok := parseBool(props["enabled"]); ok {
			return SetEnabled{Element: element, Enabled: en}
		}
	case len(props) == 2 && props["state"] != "" && props["kw"] != "":
		st, ok := ParseStorageState(props["state"])
		kw, err := strconv.ParseFloat(props["kw"], 64)
		if ok && err == nil && kw >= 0 {
			return SetStorageState{Element: element, State: st, KW: kw}
		}
	case len(props) == 1:
		k, v, _ := strings.Cut(fields[2], "=")
		return SetProperty{Element: element, Property: k, Value: v}
	}
	return Raw(s)
}

func parseBool(v string) (bool, bool) {
	switch strings.ToLower(v) {
	case "yes", "true", "y", "t":
		return true, true
	case "no", "false", "n", "f":
		return false, true
	}
	return false, false
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
