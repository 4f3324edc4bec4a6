package util

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		n        int
		expected string
	}{
		{
			name:     "short string unchanged",
			input:    "alice",
			n:        10,
			expected: "alice",
		},
		{
			name:     "exact length unchanged",
			input:    "alice",
			n:        5,
			expected: "alice",
		},
		{
			name:     "long string truncated",
			input:    "alice in wonderland",
			n:        8,
			expected: "alice i…",
		},
		{
			name:     "counts runes not bytes",
			input:    "张三丰先生",
			n:        3,
			expected: "张三…",
		},
		{
			name:     "one rune leaves only the ellipsis",
			input:    "alice",
			n:        1,
			expected: "…",
		},
		{
			name:     "zero yields empty",
			input:    "alice",
			n:        0,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.input, tt.n); got != tt.expected {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.input, tt.n, got, tt.expected)
			}
		})
	}
}

func TestFitWidth(t *testing.T) {
	t.Run("unknown width leaves text alone", func(t *testing.T) {
		s := "a fairly long line of progress output"
		if got := FitWidth(s, 0); got != s {
			t.Errorf("FitWidth(s, 0) = %q, want unchanged", got)
		}
	})

	t.Run("plain text fits", func(t *testing.T) {
		got := FitWidth("round 3: all agents agree", 10)
		if w := lipgloss.Width(got); w > 10 {
			t.Errorf("width = %d, want <= 10 (%q)", w, got)
		}
	})

	t.Run("styled text keeps its width budget", func(t *testing.T) {
		styled := lipgloss.NewStyle().Bold(true).Render("converged after four rounds")
		got := FitWidth(styled, 12)
		if w := lipgloss.Width(got); w > 12 {
			t.Errorf("width = %d, want <= 12", w)
		}
	})

	t.Run("wide runes count double", func(t *testing.T) {
		got := FitWidth("命理推演进行中", 6)
		if w := lipgloss.Width(got); w > 6 {
			t.Errorf("width = %d, want <= 6 (%q)", w, got)
		}
	})
}

func TestFirstLine(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"single", "single"},
		{"\n\n  drafts agree on the day master  \nsecond line", "drafts agree on the day master"},
		{"   \n\t\n", ""},
	}

	for _, tt := range tests {
		if got := FirstLine(tt.input); got != tt.expected {
			t.Errorf("FirstLine(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
