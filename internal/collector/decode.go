package collector

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedMessage is returned by Decode for datagrams that are neither a
// label event nor a sensor sample.
var ErrMalformedMessage = errors.New("malformed message")

// Message is one decoded datagram. Exactly one of Label and Sample is set.
type Message struct {
	Label  *LabelEvent
	Sample *Sample
}

// labelEventWire mirrors the label event JSON with optional fields.
type labelEventWire struct {
	Action      string       `json:"action"`
	Event       string       `json:"event"`
	TimestampMs *json.Number `json:"timestamp_ms"`
	Count       *json.Number `json:"count"`
}

// Decode parses a JSON datagram. Objects with type "label_event" become a
// LabelEvent; any object with a truthy "sensor" field becomes a Sample.
// Numeric fields of the object (and of a "sensor" object, flattened with "_")
// form the sample payload. A missing timestamp_ns leaves Timestamp zero.
func Decode(data []byte) (Message, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if obj == nil {
		return Message{}, fmt.Errorf("%w: not an object", ErrMalformedMessage)
	}

	if t, _ := obj["type"].(string); t == "label_event" {
		ev, err := decodeLabelEvent(data)
		if err != nil {
			return Message{}, err
		}
		return Message{Label: &ev}, nil
	}

	if truthy(obj["sensor"]) {
		smp, err := decodeSample(obj)
		if err != nil {
			return Message{}, err
		}
		return Message{Sample: &smp}, nil
	}

	return Message{}, fmt.Errorf("%w: neither label_event nor sensor sample", ErrMalformedMessage)
}

func decodeLabelEvent(data []byte) (LabelEvent, error) {
	var w labelEventWire
	if err := json.Unmarshal(data, &w); err != nil {
		return LabelEvent{}, fmt.Errorf("%w: label_event: %v", ErrMalformedMessage, err)
	}
	if w.Action == "" {
		return LabelEvent{}, fmt.Errorf("%w: label_event without action", ErrMalformedMessage)
	}

	kind := EventKind(w.Event)
	if kind != EventStart && kind != EventEnd {
		return LabelEvent{}, fmt.Errorf("%w: label_event with event %q", ErrMalformedMessage, w.Event)
	}
	if w.TimestampMs == nil {
		return LabelEvent{}, fmt.Errorf("%w: label_event without timestamp_ms", ErrMalformedMessage)
	}
	ts, err := numberToInt64(*w.TimestampMs)
	if err != nil {
		return LabelEvent{}, fmt.Errorf("%w: timestamp_ms: %v", ErrMalformedMessage, err)
	}

	ev := LabelEvent{Action: Action(w.Action), Event: kind, TimestampMs: ts}
	if w.Count != nil {
		n, err := numberToInt64(*w.Count)
		if err != nil {
			return LabelEvent{}, fmt.Errorf("%w: count: %v", ErrMalformedMessage, err)
		}
		ev.Count = int(n)
	}
	return ev, nil
}

func decodeSample(obj map[string]any) (Sample, error) {
	smp := Sample{Payload: make(map[string]float64)}

	if raw, ok := obj["timestamp_ns"]; ok && raw != nil {
		n, ok := raw.(json.Number)
		if !ok {
			return Sample{}, fmt.Errorf("%w: timestamp_ns is not a number", ErrMalformedMessage)
		}
		ts, err := numberToInt64(n)
		if err != nil {
			return Sample{}, fmt.Errorf("%w: timestamp_ns: %v", ErrMalformedMessage, err)
		}
		smp.Timestamp = ts
	}

	switch sensor := obj["sensor"].(type) {
	case string:
		smp.Sensor = sensor
	case map[string]any:
		if name, ok := sensor["name"].(string); ok {
			smp.Sensor = name
		}
		flatten("", sensor, smp.Payload)
	}

	for k, v := range obj {
		switch k {
		case "sensor", "timestamp_ns", "timestamp_ms", "type":
			continue
		}
		flattenValue(k, v, smp.Payload)
	}
	return smp, nil
}

func flatten(prefix string, obj map[string]any, out map[string]float64) {
	for k, v := range obj {
		key := k
		if prefix != "" {
			key = prefix + "_" + k
		}
		flattenValue(key, v, out)
	}
}

func flattenValue(key string, v any, out map[string]float64) {
	switch val := v.(type) {
	case json.Number:
		if f, err := val.Float64(); err == nil {
			out[key] = f
		}
	case map[string]any:
		flatten(key, val, out)
	}
}

func numberToInt64(n json.Number) (int64, error) {
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	f, err := n.Float64()
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}

// truthy reports whether a decoded JSON value is non-empty.
func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case json.Number:
		f, err := val.Float64()
		return err == nil && f != 0
	case map[string]any:
		return len(val) > 0
	case []any:
		return len(val) > 0
	}
	return true
}
