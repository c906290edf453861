package checkpoint

import "testing"

func TestStateIsZero(t *testing.T) {
	tests := []struct {
		name  string
		state State
		want  bool
	}{
		{"zero value", State{}, true},
		{"empty timestamp with transferred count", State{Transferred: 42}, true},
		{"populated", State{Timestamp: "2026-01-01T00:00:00Z"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsZero(); got != tt.want {
				t.Errorf("IsZero() = %v, want %v", got, tt.want)
			}
		})
	}
}
