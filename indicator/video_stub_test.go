//go:build !screen

package indicator

import (
	"errors"
	"testing"
)

func TestNew_VideoWithoutScreenSupport(t *testing.T) {
	_, err := New(Config{Video: true})
	if !errors.Is(err, ErrScreenNotCompiled) {
		t.Errorf("err = %v, want ErrScreenNotCompiled", err)
	}
}
