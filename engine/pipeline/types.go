package pipeline

import (
	"encoding/json"
	"io"

	"github.com/lustra-ai/lustra/engine/workflow"
)

// Handle is the opaque workflow identifier issued by the remote engine
// when an attempt is started. It lives for exactly one attempt.
type Handle string

func (h Handle) String() string {
	return string(h)
}

// RunState is the remote engine's view of a workflow run.
type RunState string

const (
	RunStateRunning   RunState = "running"
	RunStateCompleted RunState = "completed"
	RunStateFailed    RunState = "failed"
)

// Progress is the progress block of a status response.
type Progress struct {
	State          RunState `json:"state"`
	TotalNodes     int      `json:"total_nodes"`
	CompletedNodes int      `json:"completed_nodes"`
	Visited        []string `json:"visited"`
}

// Snapshot is one status poll. Visited is assumed append-only across
// polls for a given handle; the driver does not verify this.
type Snapshot struct {
	Progress Progress                     `json:"progress"`
	Results  map[string][]json.RawMessage `json:"results"`
	Error    string                       `json:"error,omitempty"`
}

// Point is a segmentation hint coordinate in source-image space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Overrides carries the per-workflow parameters sent in the start form.
// Zero-valued fields are omitted from the encoded payload.
type Overrides struct {
	Points      []Point `json:"points,omitempty"`
	PointLabels []int   `json:"point_labels,omitempty"`
	JewelryType string  `json:"jewelry_type,omitempty"`
	SkinTone    string  `json:"skin_tone,omitempty"`
	Mask        string  `json:"mask,omitempty"`
	Prompt      string  `json:"prompt,omitempty"`
}

// StartRequest submits one workflow attempt.
type StartRequest struct {
	Variant   workflow.Variant
	Filename  string
	File      io.Reader
	Overrides Overrides
}
