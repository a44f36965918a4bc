package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tdebruin/celltrack/pkg/validation"
)

// Config holds the full configuration of a tracking run.
type Config struct {
	// Method selects the solver backend, FlowBased or Magnusson.
	Method string `yaml:"method"`

	Weights     WeightsConfig     `yaml:"weights"`
	Compiler    CompilerConfig    `yaml:"compiler"`
	Postprocess PostprocessConfig `yaml:"postprocess"`
	Checker     CheckerConfig     `yaml:"checker"`
	Resolution  ResolutionConfig  `yaml:"resolution"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// WeightsConfig holds the per-feature solver weights.
type WeightsConfig struct {
	Link          float64 `yaml:"link"`
	Detection     float64 `yaml:"detection"`
	Division      float64 `yaml:"division"`
	Appearance    float64 `yaml:"appearance"`
	Disappearance float64 `yaml:"disappearance"`
}

// CompilerConfig holds the pruning cutoffs used while building the
// solver problem from candidate links.
type CompilerConfig struct {
	IgnorePenalty           float64 `yaml:"ignore_penalty"`
	DivisionPenaltyCutOff   float64 `yaml:"division_penalty_cutoff"`
	PenaltyDifferenceCutOff float64 `yaml:"penalty_difference_cutoff"`
	PenaltyAbsCutOff        float64 `yaml:"penalty_abs_cutoff"`
}

// PostprocessConfig holds the knobs of the lineage repair passes.
type PostprocessConfig struct {
	MinTrackLength          int     `yaml:"min_track_length"`
	MaxZ                    float64 `yaml:"max_z"`
	MarginXY                float64 `yaml:"margin_xy"`
	OversegmentationPenalty float64 `yaml:"oversegmentation_penalty"`
	MissPenalty             float64 `yaml:"miss_penalty"`
	LooseEndWindow          int     `yaml:"loose_end_window"`
	GapMaxDistanceUm        float64 `yaml:"gap_max_distance_um"`
	SameFrameMaxDistanceUm  float64 `yaml:"same_frame_max_distance_um"`
	PinpointPenaltyDiff     float64 `yaml:"pinpoint_penalty_diff"`
}

// CheckerConfig holds the thresholds of the consistency checker.
type CheckerConfig struct {
	MinProbability           float64  `yaml:"min_probability"`
	MinMarginalProbability   float64  `yaml:"min_marginal_probability"`
	MinTimeBetweenDivisionsH float64  `yaml:"min_time_between_divisions_h"`
	MaxDistanceMovedUmPerMin float64  `yaml:"max_distance_moved_um_per_min"`
	ExcludedErrors           []string `yaml:"excluded_errors"`
}

// ResolutionConfig holds the physical resolution of the experiment.
type ResolutionConfig struct {
	PixelSizeXUm       float64 `yaml:"pixel_size_x_um"`
	PixelSizeYUm       float64 `yaml:"pixel_size_y_um"`
	PixelSizeZUm       float64 `yaml:"pixel_size_z_um"`
	TimePointIntervalM float64 `yaml:"time_point_interval_m"`
}

// LoggingConfig holds the logger settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the configuration used when no file is provided.
func DefaultConfig() *Config {
	return &Config{
		Method: "FlowBased",
		Weights: WeightsConfig{
			Link:          1,
			Detection:     1,
			Division:      1,
			Appearance:    1,
			Disappearance: 1,
		},
		Compiler: CompilerConfig{
			IgnorePenalty:           2.0,
			DivisionPenaltyCutOff:   2.0,
			PenaltyDifferenceCutOff: 3.0,
			PenaltyAbsCutOff:        3.0,
		},
		Postprocess: PostprocessConfig{
			MinTrackLength:          6,
			MaxZ:                    25,
			MarginXY:                0,
			OversegmentationPenalty: 2.0,
			MissPenalty:             2.0,
			LooseEndWindow:          4,
			GapMaxDistanceUm:        10,
			SameFrameMaxDistanceUm:  7,
			PinpointPenaltyDiff:     1.0,
		},
		Checker: CheckerConfig{
			MinProbability:           0.1,
			MinMarginalProbability:   0.25,
			MinTimeBetweenDivisionsH: 10,
			MaxDistanceMovedUmPerMin: 2.0,
		},
		Resolution: ResolutionConfig{
			PixelSizeXUm:       0.32,
			PixelSizeYUm:       0.32,
			PixelSizeZUm:       2.0,
			TimePointIntervalM: 12,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML config file, fills in defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults applies default values to zero-valued fields.
func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig()

	c.Method = validation.DefaultOr(c.Method, defaults.Method)
	c.Logging.Level = validation.DefaultOr(c.Logging.Level, defaults.Logging.Level)

	c.Compiler.IgnorePenalty = validation.DefaultOrFloat(c.Compiler.IgnorePenalty, defaults.Compiler.IgnorePenalty)
	c.Compiler.DivisionPenaltyCutOff = validation.DefaultOrFloat(c.Compiler.DivisionPenaltyCutOff, defaults.Compiler.DivisionPenaltyCutOff)
	c.Compiler.PenaltyDifferenceCutOff = validation.DefaultOrFloat(c.Compiler.PenaltyDifferenceCutOff, defaults.Compiler.PenaltyDifferenceCutOff)
	c.Compiler.PenaltyAbsCutOff = validation.DefaultOrFloat(c.Compiler.PenaltyAbsCutOff, defaults.Compiler.PenaltyAbsCutOff)

	c.Postprocess.MinTrackLength = validation.DefaultOrInt(c.Postprocess.MinTrackLength, defaults.Postprocess.MinTrackLength)
	c.Postprocess.MaxZ = validation.DefaultOrFloat(c.Postprocess.MaxZ, defaults.Postprocess.MaxZ)
	c.Postprocess.OversegmentationPenalty = validation.DefaultOrFloat(c.Postprocess.OversegmentationPenalty, defaults.Postprocess.OversegmentationPenalty)
	c.Postprocess.MissPenalty = validation.DefaultOrFloat(c.Postprocess.MissPenalty, defaults.Postprocess.MissPenalty)
	c.Postprocess.LooseEndWindow = validation.DefaultOrInt(c.Postprocess.LooseEndWindow, defaults.Postprocess.LooseEndWindow)
	c.Postprocess.GapMaxDistanceUm = validation.DefaultOrFloat(c.Postprocess.GapMaxDistanceUm, defaults.Postprocess.GapMaxDistanceUm)
	c.Postprocess.SameFrameMaxDistanceUm = validation.DefaultOrFloat(c.Postprocess.SameFrameMaxDistanceUm, defaults.Postprocess.SameFrameMaxDistanceUm)
	c.Postprocess.PinpointPenaltyDiff = validation.DefaultOrFloat(c.Postprocess.PinpointPenaltyDiff, defaults.Postprocess.PinpointPenaltyDiff)

	c.Checker.MinProbability = validation.DefaultOrFloat(c.Checker.MinProbability, defaults.Checker.MinProbability)
	c.Checker.MinMarginalProbability = validation.DefaultOrFloat(c.Checker.MinMarginalProbability, defaults.Checker.MinMarginalProbability)
	c.Checker.MinTimeBetweenDivisionsH = validation.DefaultOrFloat(c.Checker.MinTimeBetweenDivisionsH, defaults.Checker.MinTimeBetweenDivisionsH)
	c.Checker.MaxDistanceMovedUmPerMin = validation.DefaultOrFloat(c.Checker.MaxDistanceMovedUmPerMin, defaults.Checker.MaxDistanceMovedUmPerMin)

	c.Resolution.PixelSizeXUm = validation.DefaultOrFloat(c.Resolution.PixelSizeXUm, defaults.Resolution.PixelSizeXUm)
	c.Resolution.PixelSizeYUm = validation.DefaultOrFloat(c.Resolution.PixelSizeYUm, defaults.Resolution.PixelSizeYUm)
	c.Resolution.PixelSizeZUm = validation.DefaultOrFloat(c.Resolution.PixelSizeZUm, defaults.Resolution.PixelSizeZUm)
	c.Resolution.TimePointIntervalM = validation.DefaultOrFloat(c.Resolution.TimePointIntervalM, defaults.Resolution.TimePointIntervalM)
}

// Validate validates the full configuration.
func (c *Config) Validate() error {
	v := validation.NewConfigValidator("Config")

	v.OneOf("Method", c.Method, []string{"FlowBased", "Magnusson"}).
		OneOf("Logging.Level", c.Logging.Level, []string{"debug", "info", "warn", "error"}).
		NonNegativeFloat("Weights.Link", c.Weights.Link).
		NonNegativeFloat("Weights.Detection", c.Weights.Detection).
		NonNegativeFloat("Weights.Division", c.Weights.Division).
		NonNegativeFloat("Weights.Appearance", c.Weights.Appearance).
		NonNegativeFloat("Weights.Disappearance", c.Weights.Disappearance).
		PositiveFloat("Compiler.IgnorePenalty", c.Compiler.IgnorePenalty).
		PositiveFloat("Compiler.DivisionPenaltyCutOff", c.Compiler.DivisionPenaltyCutOff).
		PositiveFloat("Compiler.PenaltyDifferenceCutOff", c.Compiler.PenaltyDifferenceCutOff).
		PositiveFloat("Compiler.PenaltyAbsCutOff", c.Compiler.PenaltyAbsCutOff).
		Positive("Postprocess.MinTrackLength", c.Postprocess.MinTrackLength).
		PositiveFloat("Postprocess.MaxZ", c.Postprocess.MaxZ).
		NonNegativeFloat("Postprocess.MarginXY", c.Postprocess.MarginXY).
		Positive("Postprocess.LooseEndWindow", c.Postprocess.LooseEndWindow).
		PositiveFloat("Postprocess.GapMaxDistanceUm", c.Postprocess.GapMaxDistanceUm).
		PositiveFloat("Postprocess.SameFrameMaxDistanceUm", c.Postprocess.SameFrameMaxDistanceUm).
		Probability("Checker.MinProbability", c.Checker.MinProbability).
		Probability("Checker.MinMarginalProbability", c.Checker.MinMarginalProbability).
		PositiveFloat("Checker.MaxDistanceMovedUmPerMin", c.Checker.MaxDistanceMovedUmPerMin)

	for _, code := range c.Checker.ExcludedErrors {
		v.Custom("Checker.ExcludedErrors", func() error {
			return validation.ValidateErrorCode(code)
		})
	}

	v.Custom("Resolution", func() error {
		return validation.ValidateResolutionRequest(&validation.ResolutionRequest{
			PixelSizeXUm:       c.Resolution.PixelSizeXUm,
			PixelSizeYUm:       c.Resolution.PixelSizeYUm,
			PixelSizeZUm:       c.Resolution.PixelSizeZUm,
			TimePointIntervalM: c.Resolution.TimePointIntervalM,
		})
	})

	return v.Validate()
}
