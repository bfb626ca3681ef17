//go:build linux

package gpio

import (
	"testing"

	"github.com/warthog618/go-gpiocdev"
)

func TestBiasOption(t *testing.T) {
	tests := []struct {
		pull Pull
		want gpiocdev.LineBias
	}{
		{PullUp, gpiocdev.WithPullUp},
		{PullDown, gpiocdev.WithPullDown},
		{PullNone, gpiocdev.WithBiasDisabled},
	}
	for _, tt := range tests {
		if got := biasOption(tt.pull); got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.pull, got, tt.want)
		}
	}
}

func TestChipClosedRejectsRequests(t *testing.T) {
	var c Chip
	if _, err := c.Line(DefaultPinDHT); err == nil {
		t.Error("expected error from a chip that was never opened")
	}
	if err := c.Close(); err != nil {
		t.Errorf("close of unopened chip: %v", err)
	}
}
