package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"liteconvert/internal/convert"
)

const (
	defaultJpgQuality  = 90
	defaultDPI         = 200
	defaultConcurrency = 3
	defaultPattern     = "{name}_{mode}"
)

// Config is the persisted settings store. It supplies the per-batch Options
// defaults; the pipeline itself never touches this file.
type Config struct {
	OutputDir       string  `yaml:"output_dir"`
	NamingPattern   string  `yaml:"naming_pattern"`
	OverwritePolicy string  `yaml:"overwrite_policy"`
	ExifOrientation *bool   `yaml:"exif_orientation"`
	JpgQuality      int     `yaml:"jpg_quality"`
	DPI             int     `yaml:"dpi"`
	PageSize        string  `yaml:"page_size"`
	Fit             string  `yaml:"fit"`
	MarginsMM       float64 `yaml:"margins_mm"`
	PageRange       string  `yaml:"page_range"`
	MaxConcurrency  int     `yaml:"max_concurrency"`
}

// Default returns the stock settings.
func Default() Config {
	exif := true
	return Config{
		NamingPattern:   defaultPattern,
		OverwritePolicy: string(convert.PolicyAutoRename),
		ExifOrientation: &exif,
		JpgQuality:      defaultJpgQuality,
		DPI:             defaultDPI,
		PageSize:        string(convert.PageFit),
		Fit:             string(convert.FitContain),
		MaxConcurrency:  defaultConcurrency,
	}
}

// Load reads YAML config from the provided path. If the file does not exist
// or is empty, defaults are returned with no error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, errors.New("empty config path")
	}
	fileData, err := os.ReadFile(path) //nolint:gosec // config path is controlled by the user
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if len(fileData) == 0 {
		return cfg, nil
	}
	if err := yaml.Unmarshal(fileData, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}

	if cfg.JpgQuality < 1 || cfg.JpgQuality > 100 {
		return cfg, fmt.Errorf("invalid jpg_quality: %d (must be 1-100)", cfg.JpgQuality)
	}
	if cfg.DPI < 1 {
		return cfg, fmt.Errorf("invalid dpi: %d (must be >= 1)", cfg.DPI)
	}
	if cfg.MaxConcurrency < 1 {
		return cfg, fmt.Errorf("invalid max_concurrency: %d (must be >= 1)", cfg.MaxConcurrency)
	}
	if cfg.MarginsMM < 0 {
		return cfg, fmt.Errorf("invalid margins_mm: %v (must be >= 0)", cfg.MarginsMM)
	}
	if _, err := parsePolicy(cfg.OverwritePolicy); err != nil {
		return cfg, err
	}
	if _, err := parsePageSize(cfg.PageSize); err != nil {
		return cfg, err
	}
	if _, err := parseFit(cfg.Fit); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Options materializes the per-batch Options value from the settings.
func (c Config) Options() convert.Options {
	policy, _ := parsePolicy(c.OverwritePolicy)
	pageSize, _ := parsePageSize(c.PageSize)
	fit, _ := parseFit(c.Fit)

	exif := true
	if c.ExifOrientation != nil {
		exif = *c.ExifOrientation
	}
	m := c.MarginsMM
	return convert.Options{
		ExifOrientation: exif,
		JpgQuality:      c.JpgQuality,
		DPI:             c.DPI,
		PageSize:        pageSize,
		Fit:             fit,
		Margins:         convert.Margins{Top: m, Right: m, Bottom: m, Left: m},
		NamingPattern:   c.NamingPattern,
		OverwritePolicy: policy,
		MaxConcurrency:  c.MaxConcurrency,
		PageRange:       c.PageRange,
		OutputDir:       c.OutputDir,
	}.Normalize()
}

func parsePolicy(s string) (convert.OverwritePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto-rename", "autorename":
		return convert.PolicyAutoRename, nil
	case "skip":
		return convert.PolicySkip, nil
	case "overwrite":
		return convert.PolicyOverwrite, nil
	}
	return "", fmt.Errorf("invalid overwrite_policy: %q", s)
}

func parsePageSize(s string) (convert.PageSize, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fit", "auto":
		return convert.PageFit, nil
	case "a4":
		return convert.PageA4, nil
	case "letter":
		return convert.PageLetter, nil
	}
	return "", fmt.Errorf("invalid page_size: %q", s)
}

func parseFit(s string) (convert.FitMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "contain", "fit":
		return convert.FitContain, nil
	case "cover", "fill":
		return convert.FitCover, nil
	case "stretch":
		return convert.FitStretch, nil
	}
	return "", fmt.Errorf("invalid fit: %q", s)
}
