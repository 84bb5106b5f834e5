// Command reorganize moves flat exports from earlier versions into the
// per-category directory layout current exports produce. Files are placed by
// the category in their frontmatter; collisions get a numeric suffix.
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: reorganize <notes-directory>")
	}

	notesDir := os.Args[1]
	if err := reorganize(notesDir); err != nil {
		log.Fatal(err)
	}
}

func reorganize(notesDir string) error {
	entries, err := os.ReadDir(notesDir)
	if err != nil {
		return fmt.Errorf("reading notes directory: %w", err)
	}

	moved := 0
	for _, entry := range entries {
		if entry.IsDir() || !isNoteFile(entry.Name()) {
			continue
		}

		path := filepath.Join(notesDir, entry.Name())
		if err := placeFile(notesDir, path); err != nil {
			log.Printf("Error moving %s: %v", entry.Name(), err)
			continue
		}
		moved++
	}

	fmt.Printf("Moved %d files into category directories\n", moved)
	return nil
}

func isNoteFile(name string) bool {
	return strings.HasSuffix(name, ".md") || strings.HasSuffix(name, ".mdx")
}

var categoryPattern = regexp.MustCompile(`(?m)^category:\s*["']?([^"'\n]+?)["']?\s*$`)

func placeFile(notesDir, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}

	category := "uncategorized"
	if m := categoryPattern.FindSubmatch(content); m != nil {
		if slug := slugify(string(m[1])); slug != "" {
			category = slug
		}
	}

	categoryDir := filepath.Join(notesDir, category)
	if err := os.MkdirAll(categoryDir, 0755); err != nil {
		return fmt.Errorf("creating category directory: %w", err)
	}

	fileName := filepath.Base(path)
	target := filepath.Join(categoryDir, fileName)

	ext := filepath.Ext(fileName)
	stem := strings.TrimSuffix(fileName, ext)
	for counter := 1; exists(target); counter++ {
		target = filepath.Join(categoryDir, fmt.Sprintf("%s-%d%s", stem, counter, ext))
	}

	log.Printf("Moving %s -> %s", fileName, filepath.Join(category, filepath.Base(target)))
	return os.Rename(path, target)
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(text string) string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(text), "-")
	return strings.Trim(slug, "-")
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
