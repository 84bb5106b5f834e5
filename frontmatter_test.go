package main

import (
	"reflect"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

func newTestGenerator(t *testing.T) *FrontmatterGenerator {
	t.Helper()
	return NewFrontmatterGenerator(testSettings(t), DisabledClassifier{})
}

func TestGenerateRuleBased(t *testing.T) {
	g := newTestGenerator(t)

	note := &Note{
		Name:         "Weekend Trip Planning",
		CreationDate: "2024-03-15",
		Folder:       "Travel",
	}
	content := "# Weekend Trip Planning\n\nBooked the flight and the hotel for our trip to the coast."

	fm := g.Generate(content, note)

	if fm.Title != "Weekend Trip Planning" {
		t.Errorf("Title = %q", fm.Title)
	}
	if fm.Slug != "weekend-trip-planning" {
		t.Errorf("Slug = %q", fm.Slug)
	}
	if fm.Date != "2024-03-15" {
		t.Errorf("Date = %q", fm.Date)
	}
	if fm.Category != "Travel" {
		t.Errorf("Category = %q", fm.Category)
	}
	if fm.Author != "Test Author" {
		t.Errorf("Author = %q", fm.Author)
	}
	if fm.Featured {
		t.Error("Featured should default to false")
	}
	if fm.ReadingTime != "1 min read" {
		t.Errorf("ReadingTime = %q", fm.ReadingTime)
	}
	found := false
	for _, tag := range fm.Tags {
		if tag == "travel" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected travel tag, got %v", fm.Tags)
	}
}

func TestGenerateUntitledNote(t *testing.T) {
	g := newTestGenerator(t)

	fm := g.Generate("some content without much to say here", &Note{Name: "  ", Folder: "Notes"})
	if fm.Title != "Untitled" {
		t.Errorf("Title = %q, want Untitled", fm.Title)
	}
	if fm.Slug != "untitled" {
		t.Errorf("Slug = %q, want untitled", fm.Slug)
	}
}

func TestCategoryForFolder(t *testing.T) {
	tests := []struct {
		folder   string
		expected string
	}{
		{"Work", "Business"},
		{"Work Projects", "Business"},
		{"Recipes", "Food"},
		{"Travel", "Travel"},
		{"Tech Notes", "Technology"},
		{"Random Stuff", "Personal"},
		{"", "Personal"},
	}

	for _, tt := range tests {
		t.Run(tt.folder, func(t *testing.T) {
			if got := categoryForFolder(tt.folder); got != tt.expected {
				t.Errorf("categoryForFolder(%q) = %q, want %q", tt.folder, got, tt.expected)
			}
		})
	}
}

func TestExtractBasicTags(t *testing.T) {
	t.Run("hashtags first", func(t *testing.T) {
		tags := extractBasicTags("notes with #golang and #testing hashtags", "title")
		if tags[0] != "golang" || tags[1] != "testing" {
			t.Errorf("tags = %v", tags)
		}
	})

	t.Run("keyword tags", func(t *testing.T) {
		tags := extractBasicTags("this recipe needs one ingredient", "Dinner")
		if !reflect.DeepEqual(tags, []string{"recipes", "cooking"}) {
			t.Errorf("tags = %v", tags)
		}
	})

	t.Run("fallback tag", func(t *testing.T) {
		tags := extractBasicTags("nothing notable here", "Plain")
		if !reflect.DeepEqual(tags, []string{"notes"}) {
			t.Errorf("tags = %v", tags)
		}
	})

	t.Run("deduplicated", func(t *testing.T) {
		tags := extractBasicTags("#travel travel flight hotel", "Trip")
		count := 0
		for _, tag := range tags {
			if tag == "travel" {
				count++
			}
		}
		if count != 1 {
			t.Errorf("travel appears %d times in %v", count, tags)
		}
	})
}

func TestGenerateExcerpt(t *testing.T) {
	t.Run("first meaningful sentence", func(t *testing.T) {
		content := "Hi. This is the first sentence with enough length to matter. More follows."
		excerpt := generateExcerpt(content, "Title")
		if excerpt != "This is the first sentence with enough length to matter." {
			t.Errorf("excerpt = %q", excerpt)
		}
	})

	t.Run("markdown stripped", func(t *testing.T) {
		content := "# Heading\n\n**Bold** text with a [link](https://example.com) inside the opening sentence."
		excerpt := generateExcerpt(content, "Title")
		if strings.ContainsAny(excerpt, "#*[]()") {
			t.Errorf("markdown left in excerpt: %q", excerpt)
		}
	})

	t.Run("length capped", func(t *testing.T) {
		content := strings.Repeat("word ", 100) + "."
		excerpt := generateExcerpt(content, "Title")
		if len(excerpt) > 160 {
			t.Errorf("excerpt length %d exceeds 160", len(excerpt))
		}
		if !strings.HasSuffix(excerpt, "...") {
			t.Errorf("long excerpt should end with ellipsis: %q", excerpt)
		}
	})

	t.Run("short content fallback", func(t *testing.T) {
		excerpt := generateExcerpt("hi", "My Note")
		if excerpt != "Notes about my note" {
			t.Errorf("excerpt = %q", excerpt)
		}
	})

	t.Run("multibyte content truncated on rune boundaries", func(t *testing.T) {
		excerpt := generateExcerpt(strings.Repeat("日本語のメモです。", 40), "Title")
		if !utf8.ValidString(excerpt) {
			t.Errorf("excerpt is not valid UTF-8: %q", excerpt)
		}
		if utf8.RuneCountInString(excerpt) > 160 {
			t.Errorf("excerpt exceeds 160 characters: %d", utf8.RuneCountInString(excerpt))
		}
	})

	t.Run("long sentence with accents kept valid", func(t *testing.T) {
		content := strings.Repeat("é", 200) + " and then the sentence keeps going for a while."
		excerpt := generateExcerpt(content, "Title")
		if !utf8.ValidString(excerpt) {
			t.Errorf("excerpt is not valid UTF-8: %q", excerpt)
		}
		if utf8.RuneCountInString(excerpt) > 160 {
			t.Errorf("excerpt exceeds 160 characters: %d", utf8.RuneCountInString(excerpt))
		}
		if !strings.HasSuffix(excerpt, "...") {
			t.Errorf("truncated excerpt should end with ellipsis: %q", excerpt)
		}
	})
}

func TestValidateCaps(t *testing.T) {
	g := newTestGenerator(t)

	fm := &Frontmatter{
		Title:   "Test",
		Slug:    "Has Spaces And CAPS!",
		Tags:    []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"},
		Excerpt: strings.Repeat("x", 300),
	}
	g.validate(fm, &Note{Name: "Test"})

	if len(fm.Tags) != 10 {
		t.Errorf("tags not capped: %d", len(fm.Tags))
	}
	if len(fm.Excerpt) != 200 {
		t.Errorf("excerpt not capped to 200: %d", len(fm.Excerpt))
	}
	if !strings.HasSuffix(fm.Excerpt, "...") {
		t.Error("capped excerpt should end with ellipsis")
	}
	if fm.Slug != "hasspacesandcaps" {
		t.Errorf("slug not sanitized: %q", fm.Slug)
	}
}

func TestValidateCapsMultibyteExcerpt(t *testing.T) {
	g := newTestGenerator(t)

	fm := &Frontmatter{
		Title:   "Accents",
		Slug:    "accents",
		Tags:    []string{"notes"},
		Excerpt: strings.Repeat("é", 250),
	}
	g.validate(fm, &Note{Name: "Accents"})

	if !utf8.ValidString(fm.Excerpt) {
		t.Errorf("capped excerpt is not valid UTF-8: %q", fm.Excerpt)
	}
	if utf8.RuneCountInString(fm.Excerpt) != 200 {
		t.Errorf("excerpt not capped to 200 characters: %d", utf8.RuneCountInString(fm.Excerpt))
	}
	if !strings.HasSuffix(fm.Excerpt, "...") {
		t.Error("capped excerpt should end with ellipsis")
	}
}

func TestReadingTimeLabel(t *testing.T) {
	tests := []struct {
		words    int
		expected string
	}{
		{0, "1 min read"},
		{50, "1 min read"},
		{200, "1 min read"},
		{201, "2 min read"},
		{1000, "5 min read"},
	}

	for _, tt := range tests {
		content := strings.TrimSpace(strings.Repeat("word ", tt.words))
		if got := readingTimeLabel(content); got != tt.expected {
			t.Errorf("readingTimeLabel(%d words) = %q, want %q", tt.words, got, tt.expected)
		}
	}
}

func TestFormatNoteDate(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"2024-03-15", "2024-03-15"},
		{"2024-3-5", "2024-03-05"},
		{"2024-03-15T10:30:00Z", "2024-03-15"},
	}

	for _, tt := range tests {
		if got := formatNoteDate(tt.input); got != tt.expected {
			t.Errorf("formatNoteDate(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}

	// Unparseable input falls back to today.
	if got := formatNoteDate("not a date"); got != time.Now().Format("2006-01-02") {
		t.Errorf("fallback date = %q", got)
	}
}

func TestSerializeFrontmatter(t *testing.T) {
	fm := &Frontmatter{
		Title:       "My Note: A Subtitle",
		Slug:        "my-note-a-subtitle",
		Excerpt:     "Short summary.",
		Date:        "2024-03-15",
		Category:    "Personal",
		Tags:        []string{"notes", "ideas"},
		ReadingTime: "2 min read",
		Featured:    false,
		Author:      "Test Author",
	}

	expected := `---
title: "My Note: A Subtitle"
slug: my-note-a-subtitle
excerpt: Short summary.
date: '2024-03-15'
category: Personal
tags:
  - notes
  - ideas
readingTime: 2 min read
featured: false
author: Test Author
---
`
	if got := serializeFrontmatter(fm); got != expected {
		t.Errorf("serializeFrontmatter mismatch:\ngot:\n%s\nwant:\n%s", got, expected)
	}
}

func TestSerializeFrontmatterLongExcerpt(t *testing.T) {
	fm := &Frontmatter{
		Title:       "Test",
		Slug:        "test",
		Excerpt:     strings.Repeat("long excerpt text ", 5),
		Date:        "2024-03-15",
		Category:    "Personal",
		Tags:        []string{"notes"},
		ReadingTime: "1 min read",
		Author:      "Test Author",
	}

	out := serializeFrontmatter(fm)
	if !strings.Contains(out, "excerpt: >-\n  "+fm.Excerpt+"\n") {
		t.Errorf("long excerpt should use folded block:\n%s", out)
	}
}

func TestSerializeFrontmatterRoundTrip(t *testing.T) {
	fm := &Frontmatter{
		Title:       "Notes: On Writing & Reading",
		Slug:        "notes-on-writing-reading",
		Excerpt:     "A collection of observations about the writing process gathered over several years of work.",
		Date:        "2024-03-15",
		Category:    "Ideas",
		Tags:        []string{"writing", "books"},
		ReadingTime: "3 min read",
		Featured:    true,
		Author:      "Test Author",
	}

	out := serializeFrontmatter(fm)
	block := strings.TrimSuffix(strings.TrimPrefix(out, "---\n"), "---\n")

	var parsed struct {
		Title       string   `yaml:"title"`
		Slug        string   `yaml:"slug"`
		Excerpt     string   `yaml:"excerpt"`
		Date        string   `yaml:"date"`
		Category    string   `yaml:"category"`
		Tags        []string `yaml:"tags"`
		ReadingTime string   `yaml:"readingTime"`
		Featured    bool     `yaml:"featured"`
		Author      string   `yaml:"author"`
	}
	if err := yaml.Unmarshal([]byte(block), &parsed); err != nil {
		t.Fatalf("serialized frontmatter is not valid YAML: %v\n%s", err, out)
	}

	if parsed.Title != fm.Title {
		t.Errorf("Title round-trip: %q != %q", parsed.Title, fm.Title)
	}
	if parsed.Excerpt != fm.Excerpt {
		t.Errorf("Excerpt round-trip: %q != %q", parsed.Excerpt, fm.Excerpt)
	}
	if parsed.Date != fm.Date {
		t.Errorf("Date round-trip: %q != %q", parsed.Date, fm.Date)
	}
	if !reflect.DeepEqual(parsed.Tags, fm.Tags) {
		t.Errorf("Tags round-trip: %v != %v", parsed.Tags, fm.Tags)
	}
	if !parsed.Featured {
		t.Error("Featured round-trip lost")
	}
}

func TestYamlScalar(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"plain text", "plain text"},
		{"has: colon", `"has: colon"`},
		{"true", `"true"`},
		{"no", `"no"`},
		{"42", `"42"`},
		{"3.14", `"3.14"`},
		{"v1.2.3", "v1.2.3"},
		{"", "''"},
		{"ends with #tag", `"ends with #tag"`},
		{`quo"ted`, `"quo\"ted"`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := yamlScalar(tt.input); got != tt.expected {
				t.Errorf("yamlScalar(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
