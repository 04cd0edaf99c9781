package storage

import (
	"strings"
	"testing"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple", "report.pdf", "report.pdf"},
		{"uppercase", "Invoice.PDF", "invoice.pdf"},
		{"spaces and symbols", "my file (final) v2!.png", "my-file-final-v2-.png"},
		{"unix traversal", "../../etc/passwd", "passwd"},
		{"windows traversal", "..\\..\\windows\\system32\\cmd.exe", "cmd.exe"},
		{"dot only", "..", "file"},
		{"empty", "", "file"},
		{"symbols only", "@#$%", "file"},
		{"collapsed runs", "a---___b.txt", "a-___b.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFileName(tt.input); got != tt.want {
				t.Errorf("SanitizeFileName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeFileNameNeverEmpty(t *testing.T) {
	inputs := []string{"", ".", "..", "/", "\\", "///", "!!!", ". . ."}
	for _, input := range inputs {
		got := SanitizeFileName(input)
		if got == "" {
			t.Errorf("SanitizeFileName(%q) returned empty", input)
		}
		if strings.Contains(got, "/") || strings.Contains(got, "..") {
			t.Errorf("SanitizeFileName(%q) = %q still contains path parts", input, got)
		}
	}
}
