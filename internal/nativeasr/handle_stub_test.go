//go:build !cgo

package nativeasr

import "testing"

func TestOpenWithoutCgoReportsUnavailable(t *testing.T) {
	h, err := Open(Options{ModelPath: "whatever.bin"})
	if err != ErrNativeUnavailable {
		t.Fatalf("Open() error = %v, want ErrNativeUnavailable", err)
	}
	if h != nil {
		t.Fatalf("Open() handle = %v, want nil", h)
	}
}

func TestStubHandleOperationsFail(t *testing.T) {
	h := &Handle{}
	if _, err := h.Batch([]float32{0, 1}); err != ErrNativeUnavailable {
		t.Errorf("Batch() error = %v, want ErrNativeUnavailable", err)
	}
	if err := h.Stream([]float32{0, 1}, func(string) bool { return true }); err != ErrNativeUnavailable {
		t.Errorf("Stream() error = %v, want ErrNativeUnavailable", err)
	}
	if err := h.Close(); err != nil {
		t.Errorf("Close() error = %v, want nil", err)
	}
}
