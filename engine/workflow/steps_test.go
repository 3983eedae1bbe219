package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepTable_Lookup(t *testing.T) {
	t.Run("Should return the exact configured step for every known node", func(t *testing.T) {
		for _, v := range Variants() {
			table := v.Table()
			require.NotEmpty(t, table, "variant %s has no step table", v)
			for node, want := range table {
				got, ok := table.Lookup(node)
				require.True(t, ok, "node %s missing from %s table", node, v)
				assert.Equal(t, want, got)
			}
		}
	})

	t.Run("Should report absence for unknown nodes", func(t *testing.T) {
		_, ok := VariantFluxGen.Table().Lookup("totally_unknown_node")
		assert.False(t, ok)
	})
}

func TestResolve(t *testing.T) {
	t.Run("Should pin the FLUX anchor nodes to their configured progress", func(t *testing.T) {
		assert.Equal(t, Step{Progress: 5, Label: "Resizing image"}, Resolve(VariantFluxGen, "resize_image"))
		assert.Equal(t, Step{Progress: 40, Label: "Filling background"}, Resolve(VariantFluxGen, "flux_fill"))
		assert.Equal(t, Step{Progress: 55, Label: "Upscaling"}, Resolve(VariantFluxGen, "upscaler"))
	})

	t.Run("Should fall back to default progress and humanized label for unknown nodes", func(t *testing.T) {
		got := Resolve(VariantFluxGen, "mystery_new_node")
		assert.Equal(t, DefaultProgress, got.Progress)
		assert.Equal(t, "mystery new node", got.Label)
	})

	t.Run("Should fall back for every node on unknown variants", func(t *testing.T) {
		got := Resolve(Variant("bogus"), "resize_image")
		assert.Equal(t, DefaultProgress, got.Progress)
		assert.Equal(t, "resize image", got.Label)
	})
}

func TestStepTables_Shape(t *testing.T) {
	t.Run("Should keep table sizes in line with the pipeline graphs", func(t *testing.T) {
		assert.Len(t, VariantMasking.Table(), 4)
		assert.Len(t, VariantFluxGen.Table(), 19)
		assert.Len(t, VariantAllJewelry.Table(), 15)
	})

	t.Run("Should keep every progress value in range", func(t *testing.T) {
		for _, v := range Variants() {
			for node, step := range v.Table() {
				assert.GreaterOrEqual(t, step.Progress, 0, "%s/%s", v, node)
				assert.LessOrEqual(t, step.Progress, 100, "%s/%s", v, node)
				assert.NotEmpty(t, step.Label, "%s/%s", v, node)
			}
		}
	})
}

func TestParseVariant(t *testing.T) {
	t.Run("Should accept all known variants", func(t *testing.T) {
		for _, v := range Variants() {
			got, err := ParseVariant(v.String())
			require.NoError(t, err)
			assert.Equal(t, v, got)
		}
	})

	t.Run("Should reject unknown variants", func(t *testing.T) {
		_, err := ParseVariant("background-removal")
		assert.Error(t, err)
	})
}

func TestMaskPreferred(t *testing.T) {
	t.Run("Should prefer masks for mask-producing nodes only", func(t *testing.T) {
		assert.True(t, MaskPreferred("sam_mask"))
		assert.True(t, MaskPreferred("mask_export"))
		assert.False(t, MaskPreferred("flux_fill"))
		assert.False(t, MaskPreferred("save_image"))
	})
}
