package generate

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"

	"github.com/lustra-ai/lustra/engine/auth"
	"github.com/lustra-ai/lustra/engine/blob"
	"github.com/lustra-ai/lustra/engine/core"
	"github.com/lustra-ai/lustra/engine/extract"
	"github.com/lustra-ai/lustra/engine/pipeline"
	"github.com/lustra-ai/lustra/engine/workflow"
	"github.com/lustra-ai/lustra/pkg/config"
	"github.com/lustra-ai/lustra/pkg/logger"
)

// Cmd creates the generate command.
func Cmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <image>",
		Short: "Run a photoshoot workflow for an image",
		Long:  "Start a remote workflow for the given jewelry image, stream progress until it finishes, and write the resolved outputs to disk.",
		Args:  cobra.ExactArgs(1),
		RunE:  runGenerate,
	}

	cmd.Flags().String("variant", workflow.VariantFluxGen.String(), "Workflow variant (masking, flux-generation, all-jewelry)")
	cmd.Flags().String("prompt", "", "Scene prompt for generative fill")
	cmd.Flags().String("jewelry-type", "", "Jewelry type hint (ring, necklace, earring, bracelet)")
	cmd.Flags().String("skin-tone", "", "Skin tone hint for on-model variants")
	cmd.Flags().String("mask", "", "Precomputed mask: a local image file or a blob reference")
	cmd.Flags().StringSlice("point", nil, "Segmentation hint point as x,y (repeatable)")
	cmd.Flags().IntSlice("point-label", nil, "Label per hint point: 1 foreground, 0 background")
	cmd.Flags().Duration("interval", 0, "Poll interval (defaults from config)")
	cmd.Flags().Duration("timeout", 0, "Poll timeout (defaults from config)")
	cmd.Flags().String("output", "", "Output directory (defaults from config)")

	return cmd
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := config.FromContext(ctx)
	log := logger.FromContext(ctx)

	variantName, _ := cmd.Flags().GetString("variant")
	variant, err := workflow.ParseVariant(variantName)
	if err != nil {
		return err
	}

	overrides, err := buildOverrides(cmd)
	if err != nil {
		return err
	}

	imagePath := args[0]
	mtype, err := mimetype.DetectFile(imagePath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", imagePath, err)
	}
	if !strings.HasPrefix(mtype.String(), "image/") {
		return fmt.Errorf("%s is %s, not an image", imagePath, mtype.String())
	}

	session := auth.NewSession(auth.NewClient(auth.ClientConfig{
		BaseURL: cfg.Auth.BaseURL,
		Timeout: cfg.Auth.Timeout,
	}))
	session.SetToken(string(cfg.Auth.Token))
	user, err := session.Validate(ctx)
	if err != nil {
		return fmt.Errorf("not signed in: %w", err)
	}
	log.Info("signed in", "email", user.Email, "credits", user.Credits)

	blobClient := blob.NewClient(blob.ClientConfig{
		Endpoint:   cfg.Blob.Endpoint,
		Container:  cfg.Blob.Container,
		AccountKey: string(cfg.Blob.AccountKey),
		SASExpiry:  cfg.Blob.SASExpiry,
	})
	if overrides.Mask != "" && !blob.IsRef(overrides.Mask) {
		ref, err := uploadMask(ctx, blobClient, overrides.Mask)
		if err != nil {
			return err
		}
		log.Info("mask uploaded", "ref", ref)
		overrides.Mask = ref
	}

	file, err := os.Open(imagePath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", imagePath, err)
	}
	defer file.Close()

	engine := pipeline.NewClient(pipeline.ClientConfig{
		BaseURL: cfg.Engine.BaseURL,
		Timeout: cfg.Engine.Timeout,
	})
	handle, err := engine.Start(ctx, pipeline.StartRequest{
		Variant:   variant,
		Filename:  filepath.Base(imagePath),
		File:      file,
		Overrides: overrides,
	})
	if err != nil {
		return err
	}
	log.Info("workflow started", "workflow_id", handle, "variant", variant)

	interval, _ := cmd.Flags().GetDuration("interval")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if interval <= 0 {
		interval = cfg.Engine.PollInterval
	}
	if timeout <= 0 {
		timeout = cfg.Engine.PollTimeout
	}

	driver := pipeline.NewDriver(engine, pipeline.Options{Interval: interval, Timeout: timeout})
	results, err := driver.PollUntilComplete(ctx, handle, variant, func(progress int, label string) {
		log.Info("progress", "percent", progress, "step", label)
	})
	if err != nil {
		return err
	}

	outputDir, _ := cmd.Flags().GetString("output")
	if outputDir == "" {
		outputDir = cfg.CLI.OutputDir
	}
	if err := writeOutputs(ctx, extract.NewExtractor(blobClient), results, handle, outputDir); err != nil {
		return err
	}

	// Tolerant refresh: a blip here must not sign the user out.
	if refreshed, err := session.Refresh(ctx); err == nil {
		log.Info("credits remaining", "credits", refreshed.Credits)
	}
	return nil
}

func buildOverrides(cmd *cobra.Command) (pipeline.Overrides, error) {
	prompt, _ := cmd.Flags().GetString("prompt")
	jewelryType, _ := cmd.Flags().GetString("jewelry-type")
	skinTone, _ := cmd.Flags().GetString("skin-tone")
	mask, _ := cmd.Flags().GetString("mask")
	rawPoints, _ := cmd.Flags().GetStringSlice("point")
	labels, _ := cmd.Flags().GetIntSlice("point-label")

	points, err := parsePoints(rawPoints)
	if err != nil {
		return pipeline.Overrides{}, err
	}
	if len(labels) > 0 && len(labels) != len(points) {
		return pipeline.Overrides{}, fmt.Errorf("got %d point labels for %d points", len(labels), len(points))
	}

	return pipeline.Overrides{
		Points:      points,
		PointLabels: labels,
		JewelryType: jewelryType,
		SkinTone:    skinTone,
		Mask:        mask,
		Prompt:      prompt,
	}, nil
}

// uploadMask pushes a local mask file to the blob store and returns its ref.
func uploadMask(ctx context.Context, client *blob.Client, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open mask %s: %w", path, err)
	}
	defer f.Close()
	name := fmt.Sprintf("masks/%s%s", core.NewID(), filepath.Ext(path))
	return client.Upload(ctx, name, f)
}

func parsePoints(raw []string) ([]pipeline.Point, error) {
	points := make([]pipeline.Point, 0, len(raw))
	for _, entry := range raw {
		xs, ys, ok := strings.Cut(entry, ",")
		if !ok {
			return nil, fmt.Errorf("invalid point %q (expected x,y)", entry)
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid point %q: %w", entry, err)
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid point %q: %w", entry, err)
		}
		points = append(points, pipeline.Point{X: x, Y: y})
	}
	return points, nil
}

// writeOutputs resolves every node output and writes it under dir.
// Node-level resolution errors are logged, not fatal.
func writeOutputs(
	ctx context.Context,
	extractor *extract.Extractor,
	results map[string][]json.RawMessage,
	handle pipeline.Handle,
	dir string,
) error {
	log := logger.FromContext(ctx)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	outputs := extractor.ResolveAll(ctx, results)
	indices := make(map[string]int, len(results))
	written := 0
	for _, out := range outputs {
		idx := indices[out.Node]
		indices[out.Node]++

		if out.Err != nil {
			log.Warn("skipping unresolvable output", "node", out.Node, "error", out.Err)
			continue
		}

		var data []byte
		var ext string
		switch out.Kind {
		case extract.KindImage:
			decoded, err := decodeDataURI(out.Payload)
			if err != nil {
				log.Warn("skipping undecodable output", "node", out.Node, "error", err)
				continue
			}
			data = decoded
			ext = extFromContentType(out.ContentType)
		case extract.KindJSON:
			data = []byte(out.Payload)
			ext = ".json"
		}

		name := fmt.Sprintf("%s-%s-%02d%s", handle, out.Node, idx, ext)
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		log.Info("wrote output", "path", path, "kind", out.Kind)
		written++
	}
	log.Info("generation complete", "outputs", written, "nodes", len(results))
	return nil
}

func decodeDataURI(uri string) ([]byte, error) {
	_, payload, ok := strings.Cut(uri, ",")
	if !ok {
		return nil, fmt.Errorf("malformed data URI")
	}
	return base64.StdEncoding.DecodeString(payload)
}

func extFromContentType(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
