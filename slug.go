package main

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const untitledSlug = "untitled"

var (
	separatorRun = regexp.MustCompile("[_\\s./\\\\:;,&+()\\[\\]{}!@#$%^*=|\"'`~<>?]+")
	nonKebab     = regexp.MustCompile(`[^a-z0-9-]+`)
	hyphenRun    = regexp.MustCompile(`-{2,}`)
	kebabPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

	// NFKD decomposition followed by removal of combining marks turns
	// accented characters into their base ASCII forms.
	asciiFolder = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// toKebabCase converts free text into a kebab-case slug safe for filenames
// and URLs. It is total and idempotent: it never fails, and normalizing an
// already-normalized string returns it unchanged.
//
//	"My Amazing Note!"      -> "my-amazing-note"
//	"Coffee & Tea Reviews"  -> "coffee-tea-reviews"
func toKebabCase(text string, maxLength int) string {
	if strings.TrimSpace(text) == "" {
		return untitledSlug
	}

	if folded, _, err := transform.String(asciiFolder, text); err == nil {
		text = folded
	}
	text = strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, text)

	text = strings.ToLower(text)
	text = separatorRun.ReplaceAllString(text, "-")
	text = nonKebab.ReplaceAllString(text, "")
	text = hyphenRun.ReplaceAllString(text, "-")
	text = strings.Trim(text, "-")

	if text == "" {
		text = untitledSlug
	}

	if len(text) > maxLength {
		truncated := text[:maxLength]
		// Prefer cutting at a hyphen in the last third of the window so
		// truncation lands on a word boundary.
		if idx := strings.LastIndex(truncated, "-"); idx > maxLength*2/3 {
			truncated = truncated[:idx]
		}
		text = strings.TrimRight(truncated, "-")
	}

	return text
}

// generateImageFilename derives a kebab-case image filename, reserving room
// for the zero-padded index and the extension before truncating the base.
func generateImageFilename(noteName string, index int, extension string, maxLength int) string {
	indexPart := fmt.Sprintf("-%03d", index)
	extensionPart := "." + extension

	available := maxLength - len(indexPart) - len(extensionPart)
	if available < 5 {
		available = 5
	}

	return toKebabCase(noteName, available) + indexPart + extensionPart
}

// generateMarkdownFilename derives the document filename for a note title.
func generateMarkdownFilename(title, extension string, maxLength int) string {
	return toKebabCase(title, maxLength) + "." + extension
}

// validateFilename reports whether a filename (with or without extension)
// follows kebab-case conventions.
func validateFilename(filename string) bool {
	name := filename
	if idx := strings.LastIndex(filename, "."); idx >= 0 {
		name = filename[:idx]
	}
	return kebabPattern.MatchString(name)
}
