//go:build !windows && !darwin

package input

// Stub implementation for platforms without pointer control

// NativePointer represents a stub pointer
type NativePointer struct{}

// NewPointer creates a new stub pointer
func NewPointer() *NativePointer {
	return &NativePointer{}
}

// MoveTo sets the cursor position (stub)
func (p *NativePointer) MoveTo(x, y int) error {
	return ErrUnsupportedPlatform
}

// Press presses a button (stub)
func (p *NativePointer) Press(b Button) error {
	return ErrUnsupportedPlatform
}

// Release releases a button (stub)
func (p *NativePointer) Release(b Button) error {
	return ErrUnsupportedPlatform
}
