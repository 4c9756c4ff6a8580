// ABOUTME: Tests for version command
// ABOUTME: Verifies version info display and SetVersion functionality

package commands

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewVersionCmd(t *testing.T) {
	cmd := NewVersionCmd()

	if cmd.Use != "version" {
		t.Errorf("Use = %q, want %q", cmd.Use, "version")
	}

	if cmd.Short == "" {
		t.Error("Short description should not be empty")
	}
}

func TestVersionCmd_Output(t *testing.T) {
	// Save original values
	originalVersion := versionInfo.Version
	originalCommit := versionInfo.Commit
	originalDate := versionInfo.Date
	defer func() {
		versionInfo.Version = originalVersion
		versionInfo.Commit = originalCommit
		versionInfo.Date = originalDate
	}()

	SetVersion("1.2.3", "abc123", "2026-01-31")

	cmd := NewVersionCmd()
	var output bytes.Buffer
	cmd.SetOut(&output)
	cmd.SetErr(&output)

	err := cmd.Execute()
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	outputStr := output.String()

	expectedParts := []string{
		"chatdigest 1.2.3",
		"Commit: abc123",
		"Built:  2026-01-31",
	}

	for _, expected := range expectedParts {
		if !strings.Contains(outputStr, expected) {
			t.Errorf("Output should contain %q, got:\n%s", expected, outputStr)
		}
	}
}

func TestSetVersion(t *testing.T) {
	originalVersion := versionInfo.Version
	originalCommit := versionInfo.Commit
	originalDate := versionInfo.Date
	defer func() {
		versionInfo.Version = originalVersion
		versionInfo.Commit = originalCommit
		versionInfo.Date = originalDate
	}()

	testCases := []struct {
		version string
		commit  string
		date    string
	}{
		{"1.0.0", "deadbeef", "2026-01-01"},
		{"dev", "none", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.version, func(t *testing.T) {
			SetVersion(tc.version, tc.commit, tc.date)

			if versionInfo.Version != tc.version {
				t.Errorf("Version = %q, want %q", versionInfo.Version, tc.version)
			}
			if versionInfo.Commit != tc.commit {
				t.Errorf("Commit = %q, want %q", versionInfo.Commit, tc.commit)
			}
			if versionInfo.Date != tc.date {
				t.Errorf("Date = %q, want %q", versionInfo.Date, tc.date)
			}
		})
	}
}
