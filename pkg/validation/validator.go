package validation

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	// Validation constants
	MaxWeights       = 5
	MinWeights       = 4
	MaxExcludedCodes = 32

	// Error codes are upper snake case, e.g. TRACK_END
	errorCodePattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)
)

func init() {
	validate = validator.New()
}

// ResolutionRequest describes the physical resolution of an imaging experiment.
type ResolutionRequest struct {
	PixelSizeXUm       float64 `yaml:"pixel_size_x_um" validate:"required,gt=0"`
	PixelSizeYUm       float64 `yaml:"pixel_size_y_um" validate:"required,gt=0"`
	PixelSizeZUm       float64 `yaml:"pixel_size_z_um" validate:"required,gt=0"`
	TimePointIntervalM float64 `yaml:"time_point_interval_m" validate:"required,gt=0"`
}

// WeightsRequest describes the per-feature solver weights.
type WeightsRequest struct {
	Link          float64 `yaml:"link" validate:"gte=0"`
	Detection     float64 `yaml:"detection" validate:"gte=0"`
	Division      float64 `yaml:"division" validate:"gte=0"`
	Appearance    float64 `yaml:"appearance" validate:"gte=0"`
	Disappearance float64 `yaml:"disappearance" validate:"gte=0"`
}

// ValidateResolutionRequest validates an imaging resolution.
func ValidateResolutionRequest(req *ResolutionRequest) error {
	if req == nil {
		return errors.New("resolution request cannot be nil")
	}
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// ValidateWeightsRequest validates a set of solver weights.
func ValidateWeightsRequest(req *WeightsRequest) error {
	if req == nil {
		return errors.New("weights request cannot be nil")
	}
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// ValidateErrorCode validates an error code name used to suppress warnings.
func ValidateErrorCode(code string) error {
	if code == "" {
		return errors.New("error code cannot be empty")
	}
	if !errorCodePattern.MatchString(code) {
		return fmt.Errorf("error code '%s' is invalid (must be upper snake case)", code)
	}
	return nil
}

// ValidateWeightVector validates the length of a raw weight vector.
func ValidateWeightVector(vector []float64) error {
	if len(vector) < MinWeights || len(vector) > MaxWeights {
		return fmt.Errorf("weight vector must have %d or %d entries, got %d", MinWeights, MaxWeights, len(vector))
	}
	return nil
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		field := e.Field()
		tag := e.Tag()
		param := e.Param()

		switch tag {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "gt":
			return fmt.Errorf("%s: must be greater than %s", field, param)
		case "gte":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "lte":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, tag)
		}
	}

	return err
}
