package fhem

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/muurk/psufhem/internal/settings"
)

// TransitionPrefix marks a reading value of a device that is still switching,
// e.g. "set_on" right after "set <device> on".
const TransitionPrefix = "set_"

// StatusDocument is the reply to a jsonlist2 command. Only the path
// Results[0].Readings[name].Value is interpreted; the rest of the reply
// may take any shape.
type StatusDocument struct {
	Arg                  string
	TotalResultsReturned int

	root any
}

// ParseStatusDocument decodes a jsonlist2 reply. An empty or null body
// yields a nil document and no error. Only a body that is not JSON is a
// parse error.
func ParseStatusDocument(body []byte) (*StatusDocument, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	var root any
	if err := dec.Decode(&root); err != nil {
		return nil, NewParseError("failed to parse jsonlist2 reply", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, NewParseError("failed to parse jsonlist2 reply", fmt.Errorf("trailing data after JSON value"))
	}

	doc := &StatusDocument{root: root}
	if obj, ok := root.(map[string]any); ok {
		doc.Arg, _ = obj["Arg"].(string)
		if n, ok := obj["totalResultsReturned"].(json.Number); ok {
			if v, err := n.Int64(); err == nil {
				doc.TotalResultsReturned = int(v)
			}
		}
	}
	return doc, nil
}

// ResultCount returns the number of entries in Results, or 0 when Results
// is not a list.
func (d *StatusDocument) ResultCount() int {
	if d == nil {
		return 0
	}
	obj, _ := d.root.(map[string]any)
	results, _ := obj["Results"].([]any)
	return len(results)
}

// ReadingValue extracts Results[0].Readings[name].Value. Any missing or
// wrongly shaped step returns ErrMalformedStatusDocument. Numeric and
// boolean values are returned in their JSON text form.
func (d *StatusDocument) ReadingValue(name string) (string, error) {
	if d == nil {
		return "", newMalformedStatusError("no status document")
	}
	obj, ok := d.root.(map[string]any)
	if !ok {
		return "", newMalformedStatusError("status document is not an object")
	}
	results, ok := obj["Results"].([]any)
	if !ok || len(results) == 0 {
		return "", newMalformedStatusError("no Results in status document")
	}
	device, ok := results[0].(map[string]any)
	if !ok {
		return "", newMalformedStatusError("first result is not an object")
	}
	deviceName, _ := device["Name"].(string)
	readings, ok := device["Readings"].(map[string]any)
	if !ok {
		return "", newMalformedStatusError(fmt.Sprintf("device %q has no Readings", deviceName))
	}
	raw, ok := readings[name]
	if !ok {
		return "", newMalformedStatusError(fmt.Sprintf("reading %q not present", name))
	}
	reading, ok := raw.(map[string]any)
	if !ok {
		return "", newMalformedStatusError(fmt.Sprintf("reading %q is not an object", name))
	}

	switch v := reading["Value"].(type) {
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case bool:
		return strconv.FormatBool(v), nil
	case nil:
		return "", newMalformedStatusError(fmt.Sprintf("reading %q has no Value", name))
	default:
		return "", newMalformedStatusError(fmt.Sprintf("reading %q has a non-scalar Value", name))
	}
}

// PowerState is the interpretation of a reading value.
type PowerState int

const (
	StateUnknown PowerState = iota
	StateOff
	StateOn
	StateTransition
)

func (s PowerState) String() string {
	switch s {
	case StateOff:
		return "off"
	case StateOn:
		return "on"
	case StateTransition:
		return "transition"
	default:
		return "unknown"
	}
}

// Interpret maps a reading value onto a power state. The off value is
// checked first, so a configuration with equal on and off values reads off.
func Interpret(value string, cfg settings.Configuration) PowerState {
	switch {
	case value == cfg.OffValue:
		return StateOff
	case value == cfg.OnValue:
		return StateOn
	case strings.HasPrefix(value, TransitionPrefix):
		return StateTransition
	default:
		return StateUnknown
	}
}

// SetCommand formats a power command.
func SetCommand(device, value string) string {
	return fmt.Sprintf("set %s %s", device, value)
}

// ListCommand formats a status query.
func ListCommand(device string) string {
	return fmt.Sprintf("jsonlist2 %s", device)
}
