package grid

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Settings are the study-wide network parameters. They are fixed once the
// grid is constructed; every solve of the study reads the same bases and
// slack assignment.
type Settings struct {
	// VNom is the nominal voltage base, in the import's voltage unit.
	VNom float64 `yaml:"v_nom" validate:"required,gt=0"`
	// SNom is the nominal power base, in the import's power unit.
	SNom float64 `yaml:"s_nom" validate:"required,gt=0"`
	// SlackBus names the bus that serves as the voltage reference.
	SlackBus string `yaml:"slack" validate:"required"`
	// ImportIsPerUnit marks setpoints and limits as already per-unit, so
	// classification divides by (1, 1) instead of (VNom, SNom).
	ImportIsPerUnit bool `yaml:"is_import_pu"`
	// ResistanceIsPerUnit marks line admittances as already per-unit, so
	// normalization is a no-op.
	ResistanceIsPerUnit bool `yaml:"is_resistance_pu"`
}

var validate = validator.New()

// Validate checks the settings for completeness.
func (s Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	return nil
}

// YNom returns the admittance base SNom / VNom².
func (s Settings) YNom() float64 {
	return s.SNom / (s.VNom * s.VNom)
}

// Divisors returns the voltage and power denominators classification
// uses to bring setpoints and limits to per-unit: (1, 1) when the import
// is already per-unit, (VNom, SNom) otherwise.
func (s Settings) Divisors() (vNom, sNom float64) {
	if s.ImportIsPerUnit {
		return 1, 1
	}
	return s.VNom, s.SNom
}
