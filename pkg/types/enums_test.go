package types

import "testing"

func TestDirection(t *testing.T) {
	tests := []struct {
		d    Direction
		want string
	}{
		{DirUnknown, "unknown"},
		{DirInbound, "inbound"},
		{DirOutbound, "outbound"},
		{Direction(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.d.String(); got != tt.want {
				t.Errorf("Direction(%d).String() = %q, want %q", tt.d, got, tt.want)
			}
		})
	}
}

func TestCloseReason(t *testing.T) {
	seen := make(map[string]CloseReason)
	for r := CloseBanned; r <= CloseShutdown; r++ {
		name := r.String()
		if name == "unknown" {
			t.Errorf("CloseReason(%d) has no name", r)
		}
		if prev, ok := seen[name]; ok {
			t.Errorf("CloseReason(%d) and CloseReason(%d) share name %q", prev, r, name)
		}
		seen[name] = r
	}
	if got := CloseReason(99).String(); got != "unknown" {
		t.Errorf("CloseReason(99).String() = %q", got)
	}
}
