package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dunamismax/logocrunch/internal/domain"
	"github.com/dunamismax/logocrunch/internal/trace"
)

// Validate rejects values the pipeline cannot run with.
func (c *Config) Validate() error {
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validatePalette(); err != nil {
		return err
	}
	if err := c.validateTrace(); err != nil {
		return err
	}
	if c.Worker.Concurrency < 1 || c.Worker.MaxActiveJobs < 1 {
		return errors.New("worker.concurrency and worker.max_active_jobs must be >= 1")
	}
	if c.API.RateLimit < 0 || c.API.RateLimitWindowSeconds < 1 {
		return errors.New("api.rate_limit must be >= 0 and api.rate_limit_window_seconds >= 1")
	}
	if c.Webhook.TimeoutSeconds < 1 {
		return errors.New("webhook.timeout_seconds must be >= 1")
	}
	if hook := strings.TrimSpace(c.Webhook.URL); hook != "" &&
		!strings.HasPrefix(hook, "http://") && !strings.HasPrefix(hook, "https://") {
		return fmt.Errorf("webhook.url must be an http(s) URL: %s", c.Webhook.URL)
	}
	return nil
}

func (c *Config) validatePipeline() error {
	p := c.Pipeline
	switch {
	case p.Concurrency < 1:
		return errors.New("pipeline.concurrency must be >= 1")
	case p.Tolerance < 0 || p.Tolerance > 255:
		return errors.New("pipeline.tolerance must be between 0 and 255")
	case p.MinConfidence < 0 || p.MinConfidence > 1:
		return errors.New("pipeline.min_confidence must be between 0 and 1")
	case p.WhiteThreshold < 0 || p.WhiteThreshold > 255:
		return errors.New("pipeline.white_threshold must be between 0 and 255")
	case p.CanvasSize < 1:
		return errors.New("pipeline.canvas_size must be >= 1")
	case p.ShrinkFactor <= 0 || p.ShrinkFactor > 1:
		return errors.New("pipeline.shrink_factor must be in (0, 1]")
	case p.MaxVectorKiB < 1:
		return errors.New("pipeline.max_vector_kib must be >= 1")
	}
	switch p.SourceType {
	case domain.SourceTypeLocalFile, domain.SourceTypeObjectStore:
	default:
		return fmt.Errorf("pipeline.source_type must be %s or %s", domain.SourceTypeLocalFile, domain.SourceTypeObjectStore)
	}
	return nil
}

func (c *Config) validatePalette() error {
	p := c.Palette
	switch {
	case p.BaseClusters < 1:
		return errors.New("palette.base_clusters must be >= 1")
	case p.MaxClusters < p.BaseClusters:
		return errors.New("palette.max_clusters must be >= palette.base_clusters")
	case p.PixelsPerCluster < 1:
		return errors.New("palette.pixels_per_cluster must be >= 1")
	case p.MaxIterations < 1:
		return errors.New("palette.max_iterations must be >= 1")
	case p.Delta < 0:
		return errors.New("palette.delta must be >= 0")
	}
	return nil
}

func (c *Config) validateTrace() error {
	t := c.Trace
	if _, err := trace.ParseMode(t.Mode); err != nil {
		return fmt.Errorf("trace.mode: %w", err)
	}
	switch {
	case t.FilterSpeckle < 0:
		return errors.New("trace.filter_speckle must be >= 0")
	case t.ColorPrecision < 1 || t.ColorPrecision > 8:
		return errors.New("trace.color_precision must be between 1 and 8")
	case t.PathPrecision < 0 || t.PathPrecision > 8:
		return errors.New("trace.path_precision must be between 0 and 8")
	case t.MaxIterations < 0:
		return errors.New("trace.max_iterations must be >= 0")
	}
	return nil
}
