//go:build headless

package wavy

// DefaultDriver returns a ManualDriver since no device backend is compiled in.
func DefaultDriver() Driver {
	return NewManualDriver()
}

var _ Driver = unavailableDriver{}

type unavailableDriver struct{}

func (unavailableDriver) Devices() ([]DeviceInfo, error) { return nil, ErrDriverUnavailable }
func (unavailableDriver) Open(DriverConfig, RenderFunc) error { return ErrDriverUnavailable }
func (unavailableDriver) Close() error { return nil }

func NewMalgoDriver() Driver {
	return unavailableDriver{}
}

func NewOtoDriver() Driver {
	return unavailableDriver{}
}
