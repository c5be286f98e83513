//go:build !cgo

package nativeasr

// Handle is a stand-in used when the binary is built without cgo. Open,
// Batch and Stream report ErrNativeUnavailable; Close is a no-op returning
// nil and ModelPath returns "".
type Handle struct{}

// Open always fails without cgo: there is no native engine to load.
func Open(opts Options) (*Handle, error) {
	return nil, ErrNativeUnavailable
}

func (h *Handle) ModelPath() string { return "" }

func (h *Handle) Batch(samples []float32) (string, error) {
	return "", ErrNativeUnavailable
}

func (h *Handle) Stream(samples []float32, cb StreamCallback) error {
	return ErrNativeUnavailable
}

func (h *Handle) Close() error { return nil }
