package styles

import "testing"

func TestStatusColor(t *testing.T) {
	tests := []struct {
		status   string
		expected string // Expected color hex value
	}{
		{"pending", "#9CA3AF"},
		{"thinking", "#60A5FA"},
		{"retrying", "#F59E0B"},
		{"agreed", "#10B981"},
		{"disagreed", "#FB923C"},
		{"failed", "#F87171"},
		{"unknown", "#9CA3AF"}, // Should fall back to MutedColor
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			got := StatusColor(tt.status)
			if string(got) != tt.expected {
				t.Errorf("StatusColor(%q) = %q, want %q", tt.status, got, tt.expected)
			}
		})
	}
}

func TestStatusIcon(t *testing.T) {
	tests := []struct {
		status   string
		expected string
	}{
		{"pending", "○"},
		{"thinking", "●"},
		{"retrying", "↻"},
		{"agreed", "✓"},
		{"disagreed", "≠"},
		{"failed", "✗"},
		{"unknown", "●"}, // Should fall back to default
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			got := StatusIcon(tt.status)
			if got != tt.expected {
				t.Errorf("StatusIcon(%q) = %q, want %q", tt.status, got, tt.expected)
			}
		})
	}
}
