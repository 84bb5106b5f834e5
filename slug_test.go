package main

import (
	"strings"
	"testing"
)

func TestToKebabCase(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple title", "My Amazing Note", "my-amazing-note"},
		{"punctuation collapsed", "Coffee & Tea Reviews!!", "coffee-tea-reviews"},
		{"mixed separators", "one_two.three/four", "one-two-three-four"},
		{"accented characters folded", "Café Déjà Vu", "cafe-deja-vu"},
		{"empty string", "", "untitled"},
		{"whitespace only", "   ", "untitled"},
		{"symbols only", "!!!???", "untitled"},
		{"emoji only", "🎉🎉🎉", "untitled"},
		{"already kebab", "already-kebab-case", "already-kebab-case"},
		{"leading and trailing separators", "--hello world--", "hello-world"},
		{"numbers preserved", "Top 10 Tips for 2024", "top-10-tips-for-2024"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := toKebabCase(tt.input, 50)
			if result != tt.expected {
				t.Errorf("toKebabCase(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestToKebabCaseIdempotent(t *testing.T) {
	inputs := []string{
		"My Amazing Note!",
		"Café Déjà Vu",
		"",
		"a very long title that will certainly exceed the maximum length limit",
		"🎉 party notes 🎉",
	}

	for _, input := range inputs {
		once := toKebabCase(input, 50)
		twice := toKebabCase(once, 50)
		if once != twice {
			t.Errorf("toKebabCase not idempotent for %q: %q != %q", input, once, twice)
		}
	}
}

func TestToKebabCaseTruncation(t *testing.T) {
	long := "this is a very long note title that goes on and on and never seems to stop"

	result := toKebabCase(long, 30)
	if len(result) > 30 {
		t.Errorf("result length %d exceeds max 30: %q", len(result), result)
	}
	if strings.HasSuffix(result, "-") {
		t.Errorf("truncated result ends with hyphen: %q", result)
	}
	// Truncation should land on a word boundary when a hyphen falls in the
	// last third of the window.
	if strings.Contains(result, "--") {
		t.Errorf("truncated result contains double hyphen: %q", result)
	}

	// A single long word cannot break on a hyphen; hard cut applies.
	word := strings.Repeat("a", 100)
	result = toKebabCase(word, 30)
	if len(result) != 30 {
		t.Errorf("expected hard cut to 30 chars, got %d", len(result))
	}
}

func TestGenerateImageFilename(t *testing.T) {
	tests := []struct {
		name      string
		noteName  string
		index     int
		extension string
		expected  string
	}{
		{"basic", "My Note", 0, "jpg", "my-note-000.jpg"},
		{"second image", "My Note", 1, "jpg", "my-note-001.jpg"},
		{"png extension", "Recipes", 12, "png", "recipes-012.png"},
		{"empty note name", "", 0, "jpg", "untitled-000.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := generateImageFilename(tt.noteName, tt.index, tt.extension, 50)
			if result != tt.expected {
				t.Errorf("generateImageFilename = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestGenerateImageFilenameReservesRoom(t *testing.T) {
	long := strings.Repeat("word ", 30)
	result := generateImageFilename(long, 5, "jpg", 50)

	if len(result) > 50 {
		t.Errorf("filename length %d exceeds max 50: %q", len(result), result)
	}
	if !strings.HasSuffix(result, "-005.jpg") {
		t.Errorf("expected index and extension suffix, got %q", result)
	}
}

func TestGenerateMarkdownFilename(t *testing.T) {
	result := generateMarkdownFilename("My First Post!", "mdx", 50)
	if result != "my-first-post.mdx" {
		t.Errorf("generateMarkdownFilename = %q, want %q", result, "my-first-post.mdx")
	}

	result = generateMarkdownFilename("", "md", 50)
	if result != "untitled.md" {
		t.Errorf("generateMarkdownFilename = %q, want %q", result, "untitled.md")
	}
}

func TestValidateFilename(t *testing.T) {
	tests := []struct {
		filename string
		valid    bool
	}{
		{"my-note.jpg", true},
		{"my-note-000.jpg", true},
		{"untitled", true},
		{"My-Note.jpg", false},
		{"my--note.jpg", false},
		{"-leading.jpg", false},
		{"trailing-.jpg", false},
		{"under_score.jpg", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			if got := validateFilename(tt.filename); got != tt.valid {
				t.Errorf("validateFilename(%q) = %v, want %v", tt.filename, got, tt.valid)
			}
		})
	}
}
