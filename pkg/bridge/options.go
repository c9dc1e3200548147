package bridge

import (
	"github.com/matzehuels/npym/pkg/errors"
	"github.com/matzehuels/npym/pkg/resolve"
	"github.com/matzehuels/npym/pkg/wheel"
)

// DefaultEmitWorkers bounds concurrent wheel emissions.
const DefaultEmitWorkers = 4

// Options configures one bridge run.
type Options struct {
	// Dest is the directory wheels are committed to. Required by Bridge.
	Dest string

	// IncludeOptional resolves optionalDependencies too.
	IncludeOptional bool

	// Workers bounds concurrent metadata fetches (default resolve.DefaultWorkers).
	Workers int

	// EmitWorkers bounds concurrent emissions (default DefaultEmitWorkers).
	EmitWorkers int

	Wheel wheel.Options
}

// ValidateAndSetDefaults checks required fields and applies defaults.
func (o *Options) ValidateAndSetDefaults() error {
	if o.Dest == "" {
		return errors.New(errors.ErrCodeInvalidInput, "destination directory is required")
	}
	if err := o.setDefaults(); err != nil {
		return err
	}
	return nil
}

func (o *Options) setDefaults() error {
	if o.Workers < 0 || o.EmitWorkers < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "worker counts must be positive")
	}
	if o.Workers == 0 {
		o.Workers = resolve.DefaultWorkers
	}
	if o.EmitWorkers == 0 {
		o.EmitWorkers = DefaultEmitWorkers
	}
	pin, err := wheel.ParsePinMode(string(o.Wheel.Pin))
	if err != nil {
		return err
	}
	o.Wheel.Pin = pin
	o.Wheel = o.Wheel.WithDefaults()
	return nil
}
