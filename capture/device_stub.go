package capture

// DefaultDevice returns the platform capture device. No backend is bundled
// with this build; embedders supply a Device for their runtime.
func DefaultDevice() (Device, error) {
	return nil, ErrUnsupported
}
