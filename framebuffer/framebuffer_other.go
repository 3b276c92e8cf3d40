//go:build !linux

package framebuffer

func openHardware(name string, _ *options) (Device, error) {
	return nil, openError(name, ErrNotSupported, nil)
}
