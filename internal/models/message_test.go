// ABOUTME: Tests for unified message model helpers
// ABOUTME: Verifies record ID construction and batch index translation
package models

import "testing"

func TestMessageID(t *testing.T) {
	tests := []struct {
		name       string
		accountID  string
		externalID string
		want       string
	}{
		{"simple", "collector1", "42", "collector1:42"},
		{"main account", "main", "100500", "main:100500"},
		{"empty external", "collector2", "", "collector2:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MessageID(tt.accountID, tt.externalID); got != tt.want {
				t.Errorf("MessageID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBatchAbsoluteIndex(t *testing.T) {
	b := Batch{StartOffset: 200}

	tests := []struct {
		relative int
		want     int
	}{
		{0, 200},
		{1, 201},
		{29, 229},
	}

	for _, tt := range tests {
		if got := b.AbsoluteIndex(tt.relative); got != tt.want {
			t.Errorf("AbsoluteIndex(%d) = %d, want %d", tt.relative, got, tt.want)
		}
	}
}
