package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPayload is returned for drag payloads that fail validation
var ErrInvalidPayload = errors.New("invalid drag payload")

// Position places a reordered task relative to a reference task
type Position string

const (
	Above Position = "above"
	Below Position = "below"
)

// ParsePosition accepts "above"/"before" and "below"/"after"
func ParsePosition(s string) (Position, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "above", "before":
		return Above, nil
	case "below", "after":
		return Below, nil
	}
	return "", fmt.Errorf("invalid position %q (use above or below)", s)
}

// DragPayload describes an in-flight drag. It is a closed set: the only
// implementations are MovePayload and ReorderPayload.
type DragPayload interface {
	Kind() string
	Task() string
	From() Date
	dragPayload()
}

// MovePayload drags a task onto another day
type MovePayload struct {
	TaskID   string
	FromDate Date
}

func (MovePayload) Kind() string   { return "move" }
func (p MovePayload) Task() string { return p.TaskID }
func (p MovePayload) From() Date   { return p.FromDate }
func (MovePayload) dragPayload()   {}

// ReorderPayload drags a task within its own day
type ReorderPayload struct {
	TaskID   string
	FromDate Date
}

func (ReorderPayload) Kind() string   { return "reorder" }
func (p ReorderPayload) Task() string { return p.TaskID }
func (p ReorderPayload) From() Date   { return p.FromDate }
func (ReorderPayload) dragPayload()   {}

// wirePayload is the JSON shape carried by the drag transfer channel
type wirePayload struct {
	Kind     string `json:"kind"`
	TaskID   string `json:"taskId"`
	FromDate string `json:"fromDate"`
}

// ParseDragPayload decodes and validates a drag payload
func ParseDragPayload(data []byte) (DragPayload, error) {
	var w wirePayload
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if w.TaskID == "" {
		return nil, fmt.Errorf("%w: missing taskId", ErrInvalidPayload)
	}
	from, err := ParseDate(w.FromDate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	switch w.Kind {
	case "move":
		return MovePayload{TaskID: w.TaskID, FromDate: from}, nil
	case "reorder":
		return ReorderPayload{TaskID: w.TaskID, FromDate: from}, nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidPayload, w.Kind)
	}
}

// EncodeDragPayload renders p in the wire format ParseDragPayload reads
func EncodeDragPayload(p DragPayload) ([]byte, error) {
	return json.Marshal(wirePayload{
		Kind:     p.Kind(),
		TaskID:   p.Task(),
		FromDate: string(p.From()),
	})
}
