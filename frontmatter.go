package main

import (
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// FrontmatterGenerator synthesizes frontmatter for converted notes. A
// classifier may refine the metadata; the rule-based path is always the
// safety net.
type FrontmatterGenerator struct {
	cfg        *Settings
	classifier Classifier
	author     string
}

func NewFrontmatterGenerator(cfg *Settings, classifier Classifier) *FrontmatterGenerator {
	return &FrontmatterGenerator{
		cfg:        cfg,
		classifier: classifier,
		author:     cfg.Author,
	}
}

// Generate builds frontmatter for a note. Classifier failures fall back to
// the rule-based path silently, so this never fails.
func (g *FrontmatterGenerator) Generate(content string, note *Note) *Frontmatter {
	title := strings.TrimSpace(note.Name)
	if title == "" {
		title = "Untitled"
	}

	fm := &Frontmatter{
		Title:  title,
		Date:   formatNoteDate(note.CreationDate),
		Author: g.author,
	}

	applied := false
	if g.classifier != nil {
		meta, err := g.classifier.Classify(content, title, note.Folder)
		if err != nil {
			if err != ErrClassifierDisabled {
				log.Printf("classifier failed for note %q, using rule-based metadata: %v", title, err)
			}
		} else if meta != nil {
			fm.Slug = meta.Slug
			fm.Category = meta.Category
			fm.Tags = meta.Tags
			fm.Excerpt = meta.Excerpt
			applied = true
		}
	}
	if !applied {
		g.applyRuleBased(fm, content, note)
	}

	g.validate(fm, note)
	fm.ReadingTime = readingTimeLabel(content)
	return fm
}

// folderToCategory maps common Apple Notes folder names to site categories.
// Ordered so the mapping is deterministic.
var folderToCategory = []struct {
	folder   string
	category string
}{
	{"work", "Business"},
	{"business", "Business"},
	{"projects", "Business"},
	{"recipes", "Food"},
	{"cooking", "Food"},
	{"food", "Food"},
	{"travel", "Travel"},
	{"trips", "Travel"},
	{"health", "Health"},
	{"fitness", "Health"},
	{"tech", "Technology"},
	{"technology", "Technology"},
	{"programming", "Technology"},
	{"ideas", "Ideas"},
	{"journal", "Personal"},
	{"personal", "Personal"},
}

func (g *FrontmatterGenerator) applyRuleBased(fm *Frontmatter, content string, note *Note) {
	fm.Slug = toKebabCase(fm.Title, g.cfg.MaxFilenameLength)
	fm.Category = categoryForFolder(note.Folder)
	fm.Tags = extractBasicTags(content, fm.Title)
	fm.Excerpt = generateExcerpt(content, fm.Title)
}

func categoryForFolder(folder string) string {
	lower := strings.ToLower(folder)
	for _, m := range folderToCategory {
		if strings.Contains(lower, m.folder) {
			return m.category
		}
	}
	return "Personal"
}

// keywordTags maps content keywords to tags, checked in order.
var keywordTags = []struct {
	keyword string
	tag     string
}{
	{"recipe", "recipes"},
	{"ingredient", "cooking"},
	{"travel", "travel"},
	{"flight", "travel"},
	{"hotel", "travel"},
	{"meeting", "work"},
	{"project", "projects"},
	{"workout", "fitness"},
	{"code", "programming"},
	{"programming", "programming"},
	{"book", "books"},
	{"movie", "movies"},
	{"music", "music"},
}

var hashtagPattern = regexp.MustCompile(`#([a-zA-Z][a-zA-Z0-9_-]*)`)

// extractBasicTags pulls tags from hashtags first, then content keywords.
func extractBasicTags(content, title string) []string {
	var tags []string
	seen := make(map[string]bool)
	add := func(tag string) {
		tag = strings.ToLower(tag)
		if tag != "" && !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}

	for i, m := range hashtagPattern.FindAllStringSubmatch(content, -1) {
		if i >= 5 {
			break
		}
		add(m[1])
	}

	haystack := strings.ToLower(content + " " + title)
	for _, kt := range keywordTags {
		if strings.Contains(haystack, kt.keyword) {
			add(kt.tag)
		}
	}

	if len(tags) > 8 {
		tags = tags[:8]
	}
	if len(tags) == 0 {
		tags = []string{"notes"}
	}
	return tags
}

var (
	markdownHeading = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	markdownImage   = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	markdownLink    = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	markdownMarker  = regexp.MustCompile("[*_`>]")
	sentenceEnd     = regexp.MustCompile(`[.!?]+`)
)

// generateExcerpt takes the first meaningful sentence of the content,
// capped at 160 characters.
func generateExcerpt(content, title string) string {
	text := markdownHeading.ReplaceAllString(content, "")
	text = markdownImage.ReplaceAllString(text, "")
	text = markdownLink.ReplaceAllString(text, "$1")
	text = markdownMarker.ReplaceAllString(text, "")
	text = strings.Join(strings.Fields(text), " ")

	excerpt := ""
	for _, sentence := range sentenceEnd.Split(text, -1) {
		sentence = strings.TrimSpace(sentence)
		if len(sentence) > 20 {
			excerpt = sentence + "."
			break
		}
	}
	if excerpt == "" && text != "" {
		excerpt = strings.TrimSpace(truncateRunes(text, 100))
	}
	if utf8.RuneCountInString(excerpt) > 160 {
		excerpt = truncateRunes(excerpt, 157) + "..."
	}
	if len(excerpt) < 20 {
		excerpt = fmt.Sprintf("Notes about %s", strings.ToLower(title))
	}
	return excerpt
}

// validate backfills missing fields and enforces frontmatter limits
// regardless of which path produced the metadata.
func (g *FrontmatterGenerator) validate(fm *Frontmatter, note *Note) {
	if strings.TrimSpace(fm.Slug) == "" {
		fm.Slug = toKebabCase(fm.Title, g.cfg.MaxFilenameLength)
	}
	fm.Slug = sanitizeSlug(fm.Slug)
	if fm.Slug == "" {
		fm.Slug = untitledSlug
	}

	if strings.TrimSpace(fm.Category) == "" {
		fm.Category = "Personal"
	}
	if len(fm.Tags) == 0 {
		fm.Tags = []string{"notes"}
	}
	if len(fm.Tags) > 10 {
		fm.Tags = fm.Tags[:10]
	}
	// Classifier output may carry embedded newlines; a raw newline inside
	// the excerpt block breaks the frontmatter parse.
	fm.Excerpt = strings.Join(strings.Fields(fm.Excerpt), " ")
	if fm.Excerpt == "" {
		fm.Excerpt = fmt.Sprintf("Notes from %s", strings.ToLower(fm.Title))
	}
	if utf8.RuneCountInString(fm.Excerpt) > 200 {
		fm.Excerpt = truncateRunes(fm.Excerpt, 197) + "..."
	}
	if strings.TrimSpace(fm.Author) == "" {
		fm.Author = g.author
	}
}

// truncateRunes shortens a string to at most max characters, never splitting
// a multibyte rune the way a byte slice would.
func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9-]+`)

func sanitizeSlug(slug string) string {
	slug = strings.ToLower(strings.TrimSpace(slug))
	slug = slugInvalid.ReplaceAllString(slug, "")
	return strings.Trim(slug, "-")
}

// readingTimeLabel estimates reading time at 200 words per minute, rounding
// up, with a one minute floor.
func readingTimeLabel(content string) string {
	words := len(strings.Fields(content))
	minutes := (words + 199) / 200
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("%d min read", minutes)
}

// noteDateLayouts covers the date shapes the AppleScript bridge emits.
var noteDateLayouts = []string{
	"2006-01-02",
	"2006-1-2",
	time.RFC3339,
}

// formatNoteDate normalizes a note date to YYYY-MM-DD, falling back to
// today when the input cannot be parsed.
func formatNoteDate(raw string) string {
	raw = strings.TrimSpace(raw)
	for _, layout := range noteDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return time.Now().Format("2006-01-02")
}

// serializeFrontmatter renders frontmatter in the exact field order and
// quoting style the site's content pipeline expects: slug bare, date
// single-quoted, long excerpts as folded blocks, tags one per line.
func serializeFrontmatter(fm *Frontmatter) string {
	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "title: %s\n", yamlScalar(fm.Title))
	fmt.Fprintf(&b, "slug: %s\n", fm.Slug)
	if len(fm.Excerpt) > 60 {
		fmt.Fprintf(&b, "excerpt: >-\n  %s\n", fm.Excerpt)
	} else {
		fmt.Fprintf(&b, "excerpt: %s\n", yamlScalar(fm.Excerpt))
	}
	fmt.Fprintf(&b, "date: '%s'\n", fm.Date)
	fmt.Fprintf(&b, "category: %s\n", yamlScalar(fm.Category))
	if len(fm.Tags) == 0 {
		b.WriteString("tags: []\n")
	} else {
		b.WriteString("tags:\n")
		for _, tag := range fm.Tags {
			fmt.Fprintf(&b, "  - %s\n", yamlScalar(tag))
		}
	}
	fmt.Fprintf(&b, "readingTime: %s\n", yamlScalar(fm.ReadingTime))
	fmt.Fprintf(&b, "featured: %t\n", fm.Featured)
	fmt.Fprintf(&b, "author: %s\n", yamlScalar(fm.Author))
	b.WriteString("---\n")
	return b.String()
}

// yamlReserved are plain scalars YAML would interpret as something other
// than a string.
var yamlReserved = map[string]bool{
	"true": true, "false": true, "yes": true, "no": true,
	"null": true, "~": true, "on": true, "off": true,
}

// yamlScalar quotes a value only when leaving it bare would change its
// meaning to a YAML parser.
func yamlScalar(value string) string {
	if value == "" {
		return `''`
	}
	needsQuote := strings.ContainsAny(value, ":{}[]!>|*&%@`#?") ||
		strings.Contains(value, `"`) ||
		strings.Contains(value, "'") ||
		value != strings.TrimSpace(value) ||
		yamlReserved[strings.ToLower(value)]
	if !needsQuote {
		if _, err := strconv.ParseFloat(value, 64); err == nil {
			needsQuote = true
		}
	}
	if !needsQuote {
		return value
	}
	return `"` + strings.ReplaceAll(strings.ReplaceAll(value, `\`, `\\`), `"`, `\"`) + `"`
}
