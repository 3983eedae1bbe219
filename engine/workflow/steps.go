package workflow

import "strings"

// Step is the user-facing progress entry for one pipeline node.
type Step struct {
	Progress int    `json:"progress"`
	Label    string `json:"label"`
}

// StepTable maps a pipeline node name to its progress entry. Tables are
// built at init and never mutated. A missing key is not an error; callers
// use Resolve for the fallback contract.
type StepTable map[string]Step

// Lookup is a pure map access. No side effects, no failure modes beyond
// "key absent".
func (t StepTable) Lookup(node string) (Step, bool) {
	step, ok := t[node]
	return step, ok
}

// DefaultProgress is reported for nodes missing from a step table.
const DefaultProgress = 50

// Humanize turns a raw node name into a displayable label by replacing
// underscores with spaces.
func Humanize(node string) string {
	return strings.ReplaceAll(node, "_", " ")
}

// Resolve looks up node in the variant's table, degrading to the fixed
// default progress and a humanized label for unknown node names.
func Resolve(v Variant, node string) Step {
	if step, ok := v.Table().Lookup(node); ok {
		return step
	}
	return Step{Progress: DefaultProgress, Label: Humanize(node)}
}

// maskingSteps covers the segmentation-only graph.
var maskingSteps = StepTable{
	"load_image":     {Progress: 10, Label: "Loading image"},
	"sam_preprocess": {Progress: 30, Label: "Preparing segmentation"},
	"sam_predictor":  {Progress: 60, Label: "Segmenting jewelry"},
	"mask_export":    {Progress: 90, Label: "Exporting mask"},
}

// fluxGenSteps covers the FLUX generative-fill graph.
var fluxGenSteps = StepTable{
	"load_image":       {Progress: 2, Label: "Loading image"},
	"resize_image":     {Progress: 5, Label: "Resizing image"},
	"sam_preprocess":   {Progress: 8, Label: "Preparing segmentation"},
	"sam_embedding":    {Progress: 12, Label: "Analyzing jewelry"},
	"sam_mask":         {Progress: 16, Label: "Generating mask"},
	"mask_blur":        {Progress: 20, Label: "Feathering mask"},
	"mask_invert":      {Progress: 24, Label: "Isolating background"},
	"prompt_encode":    {Progress: 28, Label: "Encoding prompt"},
	"clip_text_encode": {Progress: 32, Label: "Encoding style"},
	"flux_checkpoint":  {Progress: 36, Label: "Loading model"},
	"flux_fill":        {Progress: 40, Label: "Filling background"},
	"flux_sampler":     {Progress: 45, Label: "Sampling scene"},
	"vae_decode":       {Progress: 50, Label: "Decoding image"},
	"upscaler":         {Progress: 55, Label: "Upscaling"},
	"color_match":      {Progress: 65, Label: "Matching colors"},
	"detail_refiner":   {Progress: 75, Label: "Refining details"},
	"shadow_composite": {Progress: 85, Label: "Compositing shadows"},
	"finishing":        {Progress: 92, Label: "Applying finishing"},
	"save_image":       {Progress: 98, Label: "Saving output"},
}

// allJewelrySteps covers the combined on-model pipeline.
var allJewelrySteps = StepTable{
	"load_image":        {Progress: 3, Label: "Loading image"},
	"resize_image":      {Progress: 7, Label: "Resizing image"},
	"jewelry_classifier": {Progress: 12, Label: "Detecting jewelry type"},
	"sam_embedding":     {Progress: 18, Label: "Analyzing jewelry"},
	"sam_mask":          {Progress: 25, Label: "Generating mask"},
	"mask_blur":         {Progress: 30, Label: "Feathering mask"},
	"skin_tone_adapter": {Progress: 38, Label: "Adapting skin tone"},
	"model_pose":        {Progress: 45, Label: "Posing model"},
	"flux_fill":         {Progress: 55, Label: "Rendering scene"},
	"flux_sampler":      {Progress: 62, Label: "Sampling scene"},
	"vae_decode":        {Progress: 70, Label: "Decoding image"},
	"upscaler":          {Progress: 78, Label: "Upscaling"},
	"color_match":       {Progress: 85, Label: "Matching colors"},
	"shadow_composite":  {Progress: 92, Label: "Compositing shadows"},
	"save_image":        {Progress: 97, Label: "Saving output"},
}

// maskPreferredNodes marks nodes whose output record carries both an image
// and a mask where the mask is the one to display. The extractor checks
// mask fields first for these nodes.
var maskPreferredNodes = map[string]struct{}{
	"sam_predictor": {},
	"sam_mask":      {},
	"mask_blur":     {},
	"mask_invert":   {},
	"mask_export":   {},
}

// MaskPreferred reports whether the node's mask field takes priority over
// its image field during extraction.
func MaskPreferred(node string) bool {
	_, ok := maskPreferredNodes[node]
	return ok
}
