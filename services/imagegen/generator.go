// Package imagegen turns text prompts into images through an image provider.
package imagegen

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/upb/llm-tenant-gateway/services/providers"
	"github.com/upb/llm-tenant-gateway/utils"
)

const (
	DefaultSize    = "1024x1024"
	DefaultStyle   = "natural"
	DefaultQuality = "standard"
	DefaultModel   = "dall-e-3"
)

// ErrNoImage is returned when the provider answers without image data
var ErrNoImage = errors.New("provider returned no image data")

// Options selects image parameters. Empty fields fall back to the
// generator's defaults.
type Options struct {
	Size    string `json:"size,omitempty" validate:"omitempty,oneof=1024x1024 1792x1024 1024x1792"`
	Style   string `json:"style,omitempty" validate:"omitempty,oneof=vivid natural"`
	Quality string `json:"quality,omitempty" validate:"omitempty,oneof=standard hd"`
	Model   string `json:"model,omitempty"`
}

// Result describes one generated image
type Result struct {
	URL           string `json:"url"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
	Model         string `json:"model"`
}

// Generator requests images with a fixed set of defaults
type Generator struct {
	provider providers.ImageProvider
	defaults Options
}

// New validates defaults and fills unset fields with the package defaults
func New(provider providers.ImageProvider, defaults Options) (*Generator, error) {
	if err := utils.ValidateStruct(defaults); err != nil {
		return nil, fmt.Errorf("invalid image defaults: %w", err)
	}
	defaults = merge(defaults, Options{
		Size:    DefaultSize,
		Style:   DefaultStyle,
		Quality: DefaultQuality,
		Model:   DefaultModel,
	})
	return &Generator{provider: provider, defaults: defaults}, nil
}

// Generate requests a single image for prompt
func (g *Generator) Generate(ctx context.Context, prompt string, opts Options) (*Result, error) {
	if err := utils.ValidateStruct(opts); err != nil {
		return nil, err
	}
	opts = merge(opts, g.defaults)

	resp, err := g.provider.GenerateImage(ctx, &providers.ImageRequest{
		Model:   opts.Model,
		Prompt:  prompt,
		Size:    opts.Size,
		Style:   opts.Style,
		Quality: opts.Quality,
		N:       1,
	})
	if err != nil {
		return nil, fmt.Errorf("image generation failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("image generation failed: %w", ErrNoImage)
	}

	return &Result{
		URL:           resp.Data[0].URL,
		RevisedPrompt: resp.Data[0].RevisedPrompt,
		Model:         opts.Model,
	}, nil
}

// GenerateBatch generates one image per prompt concurrently. Results keep
// the order of prompts; the first failure cancels the rest.
func (g *Generator) GenerateBatch(ctx context.Context, prompts []string, opts Options) ([]*Result, error) {
	results := make([]*Result, len(prompts))

	eg, ctx := errgroup.WithContext(ctx)
	for i, prompt := range prompts {
		eg.Go(func() error {
			r, err := g.Generate(ctx, prompt, opts)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("batch image generation failed: %w", err)
	}
	return results, nil
}

func merge(opts, fallback Options) Options {
	if opts.Size == "" {
		opts.Size = fallback.Size
	}
	if opts.Style == "" {
		opts.Style = fallback.Style
	}
	if opts.Quality == "" {
		opts.Quality = fallback.Quality
	}
	if opts.Model == "" {
		opts.Model = fallback.Model
	}
	return opts
}
