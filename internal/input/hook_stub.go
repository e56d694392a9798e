//go:build !windows && !darwin

package input

// NativeHook represents a stub input hook
type NativeHook struct{}

// NewHook creates a new stub hook
func NewHook() *NativeHook {
	return &NativeHook{}
}

// Start begins delivering input (stub)
func (h *NativeHook) Start(handler Handler) error {
	return ErrUnsupportedPlatform
}

// Stop stops delivering input (stub)
func (h *NativeHook) Stop() error {
	return nil
}
