package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/lustra-ai/lustra/engine/blob"
	"github.com/lustra-ai/lustra/engine/workflow"
)

// Kind classifies a node output record.
type Kind string

const (
	KindImage Kind = "image"
	KindJSON  Kind = "json"
)

// ErrNoImageData marks an image-bearing record whose payload could not be
// resolved. Node-level only: other nodes keep resolving and the attempt
// still counts as successful.
var ErrNoImageData = errors.New("no image data found")

// DataURIPrefix marks embedded image data usable as-is.
const DataURIPrefix = "data:"

// rawBase64Threshold is the minimum length at which a bare string is
// assumed to be undecorated base64 image data.
const rawBase64Threshold = 256

// Field priority for image-bearing records. Mask-preferring nodes check
// mask fields first; this tie-break is deliberate for records carrying
// both an image and a mask.
var (
	imageFields = []string{"image", "images.0"}
	maskFields  = []string{"mask", "masks.0"}
)

// NodeOutput is one resolved node record.
type NodeOutput struct {
	Node        string
	Kind        Kind
	Raw         json.RawMessage
	Payload     string
	ContentType string
	Err         error
}

// Fetcher resolves an opaque remote-storage reference to base64 data and
// a content type. Implemented by the blob client.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) (data string, contentType string, err error)
}

// Extractor classifies raw node outputs and resolves displayable payloads.
type Extractor struct {
	fetcher Fetcher
}

func NewExtractor(fetcher Fetcher) *Extractor {
	return &Extractor{fetcher: fetcher}
}

func candidateFields(node string) []string {
	if workflow.MaskPreferred(node) {
		return slices.Concat(maskFields, imageFields)
	}
	return slices.Concat(imageFields, maskFields)
}

// imageValue returns the first string candidate within the record, or the
// record itself when it is a bare JSON string.
func imageValue(node string, raw json.RawMessage) (string, bool) {
	parsed := gjson.ParseBytes(raw)
	if parsed.Type == gjson.String {
		return parsed.String(), true
	}
	for _, field := range candidateFields(node) {
		if v := parsed.Get(field); v.Type == gjson.String && v.String() != "" {
			return v.String(), true
		}
	}
	return "", false
}

// Resolve classifies one record and, for image-bearing records, resolves
// the displayable payload. Resolution order (first match wins):
// embedded data URI, raw base64 (long string that is not a remote ref),
// remote reference via the fetcher, otherwise a node-level error.
func (e *Extractor) Resolve(ctx context.Context, node string, raw json.RawMessage) NodeOutput {
	out := NodeOutput{Node: node, Raw: raw}

	value, ok := imageValue(node, raw)
	if !ok {
		out.Kind = KindJSON
		out.Payload = string(raw)
		return out
	}

	out.Kind = KindImage
	switch {
	case strings.HasPrefix(value, DataURIPrefix):
		out.Payload = value
		out.ContentType = dataURIContentType(value)
	case len(value) >= rawBase64Threshold && !blob.IsRef(value):
		out.Payload = DataURIPrefix + "image/png;base64," + value
		out.ContentType = "image/png"
	case blob.IsRef(value):
		data, contentType, err := e.fetcher.Fetch(ctx, value)
		if err != nil {
			out.Err = fmt.Errorf("failed to fetch %s: %w", value, err)
			return out
		}
		if contentType == "" {
			contentType = "image/png"
		}
		out.Payload = fmt.Sprintf("%s%s;base64,%s", DataURIPrefix, contentType, data)
		out.ContentType = contentType
	default:
		out.Err = ErrNoImageData
	}
	return out
}

// ResolveAll resolves every record across all nodes concurrently. Each
// resolution writes into its own keyed slot, so completion order does not
// matter. Output is sorted by node name, preserving per-node record order.
func (e *Extractor) ResolveAll(ctx context.Context, results map[string][]json.RawMessage) []NodeOutput {
	type slot struct {
		node string
		raw  json.RawMessage
	}
	nodes := make([]string, 0, len(results))
	for node := range results {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)

	var slots []slot
	for _, node := range nodes {
		for _, raw := range results[node] {
			slots = append(slots, slot{node: node, raw: raw})
		}
	}

	outputs := make([]NodeOutput, len(slots))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, s := range slots {
		g.Go(func() error {
			outputs[i] = e.Resolve(ctx, s.node, s.raw)
			return nil
		})
	}
	// Node-level failures land in the slot's Err; the group never fails.
	_ = g.Wait()
	return outputs
}

func dataURIContentType(uri string) string {
	rest := strings.TrimPrefix(uri, DataURIPrefix)
	if i := strings.IndexAny(rest, ";,"); i >= 0 {
		return rest[:i]
	}
	return ""
}
