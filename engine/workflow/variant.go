package workflow

import "fmt"

// Variant identifies one of the remote pipeline graphs.
type Variant string

const (
	// VariantMasking runs segmentation only and returns a jewelry mask.
	VariantMasking Variant = "masking"
	// VariantFluxGen runs the full FLUX generative-fill pipeline.
	VariantFluxGen Variant = "flux-generation"
	// VariantAllJewelry runs the combined on-model jewelry pipeline.
	VariantAllJewelry Variant = "all-jewelry"
)

func (v Variant) String() string {
	return string(v)
}

// Table returns the step table for the variant. Unknown variants get an
// empty table so every node falls back to the default step.
func (v Variant) Table() StepTable {
	switch v {
	case VariantMasking:
		return maskingSteps
	case VariantFluxGen:
		return fluxGenSteps
	case VariantAllJewelry:
		return allJewelrySteps
	default:
		return nil
	}
}

// ParseVariant validates user-supplied variant names.
func ParseVariant(s string) (Variant, error) {
	switch Variant(s) {
	case VariantMasking, VariantFluxGen, VariantAllJewelry:
		return Variant(s), nil
	default:
		return "", fmt.Errorf("unknown workflow variant %q (expected %s, %s or %s)",
			s, VariantMasking, VariantFluxGen, VariantAllJewelry)
	}
}

// Variants lists all known variants, for CLI help and validation.
func Variants() []Variant {
	return []Variant{VariantMasking, VariantFluxGen, VariantAllJewelry}
}
