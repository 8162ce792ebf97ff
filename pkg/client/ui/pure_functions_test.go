package ui

import (
	"strings"
	"testing"

	"github.com/roomchat/roomchat/pkg/api"
)

// Test pure functions (no dependencies on Model state)

func TestSanitizeContent(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected string
	}{
		{
			name:     "plain text",
			content:  "hello world",
			expected: "hello world",
		},
		{
			name:     "escape characters stripped",
			content:  "danger\x1b[31mred\x1b[0m",
			expected: "danger[31mred[0m",
		},
		{
			name:     "newline and tab kept",
			content:  "a\nb\tc",
			expected: "a\nb\tc",
		},
		{
			name:     "bell and delete stripped",
			content:  "ding\a done\x7f",
			expected: "ding done",
		},
		{
			name:     "empty",
			content:  "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := sanitizeContent(tt.content)
			if result != tt.expected {
				t.Errorf("sanitizeContent(%q) = %q, want %q", tt.content, result, tt.expected)
			}
		})
	}
}

func TestFormatMessageTimestamp(t *testing.T) {
	m := api.Message{
		ID:        1,
		Nickname:  "alice",
		Email:     "alice@example.com",
		Content:   "hello",
		Timestamp: "2026-08-30 09:41:07",
	}

	line := formatMessage(m, 0, "")
	if !strings.Contains(line, "[09:41]") {
		t.Errorf("formatted line %q should contain the HH:MM stamp", line)
	}
	if !strings.Contains(line, "alice") {
		t.Errorf("formatted line %q should contain the nickname", line)
	}
	if !strings.Contains(line, "hello") {
		t.Errorf("formatted line %q should contain the content", line)
	}
}

func TestFormatMessageBadTimestampFallsBack(t *testing.T) {
	m := api.Message{
		ID:        1,
		Nickname:  "bob",
		Content:   "hi",
		Timestamp: "not a timestamp",
	}

	line := formatMessage(m, 0, "")
	if !strings.Contains(line, "not a timestamp") {
		t.Errorf("formatted line %q should fall back to the raw timestamp", line)
	}
}
