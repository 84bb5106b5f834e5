package main

import (
	"fmt"
	"html"
	"log"
	"path/filepath"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MDXConverter converts note HTML into an MDX document body plus a
// synthesized frontmatter record.
type MDXConverter struct {
	cfg         *Settings
	converter   *md.Converter
	frontmatter *FrontmatterGenerator
	sanitizer   *bluemonday.Policy
	titleCaser  cases.Caser
}

// NewMDXConverter creates a converter wired to the given frontmatter
// generator.
func NewMDXConverter(cfg *Settings, frontmatter *FrontmatterGenerator) *MDXConverter {
	converter := md.NewConverter("", true, &md.Options{
		HeadingStyle:     "atx",
		BulletListMarker: "-",
		StrongDelimiter:  "**",
	})
	converter.Remove("script", "style")

	return &MDXConverter{
		cfg:         cfg,
		converter:   converter,
		frontmatter: frontmatter,
		sanitizer:   bluemonday.StrictPolicy(),
		titleCaser:  cases.Title(language.English),
	}
}

// Convert turns processed note HTML into a complete document. It never
// fails: if conversion breaks down the result degrades to stripped plain
// text under a minimal frontmatter, tagged with OutcomeDegraded.
func (c *MDXConverter) Convert(htmlContent string, note *Note, imagePaths []string) *ConvertedDocument {
	outcome := OutcomeOK
	reason := ""

	body, err := c.htmlToMarkdown(htmlContent)
	if err != nil {
		log.Printf("HTML conversion failed for note %q, using plain text: %v", note.Name, err)
		body = c.plainTextFallback(htmlContent)
		outcome = OutcomeDegraded
		reason = err.Error()
	}

	body = c.postProcess(body)
	frontmatter := c.frontmatter.Generate(body, note)
	body = enforceLeadingHeading(body, frontmatter.Title)
	body = c.insertOrphanImages(body, imagePaths)

	return &ConvertedDocument{
		Body:        body,
		Frontmatter: frontmatter,
		Outcome:     outcome,
		Reason:      reason,
	}
}

func (c *MDXConverter) htmlToMarkdown(htmlContent string) (string, error) {
	if strings.TrimSpace(htmlContent) == "" {
		return "", nil
	}

	processed := c.preprocessHTML(htmlContent)
	markdown, err := c.converter.ConvertString(processed)
	if err != nil {
		return "", fmt.Errorf("converting HTML to markdown: %w", err)
	}
	return strings.TrimSpace(markdown), nil
}

// preprocessHTML cleans Apple Notes idioms out of the HTML before
// conversion. The pass order matters: alt injection first so images survive
// conversion, element cleanup before styling so empty wrappers are gone.
func (c *MDXConverter) preprocessHTML(htmlContent string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return htmlContent
	}

	c.injectAltText(doc)
	normalizeLineBreaks(doc)
	removeEmptyElements(doc)
	stripAppleStyling(doc)

	out, err := doc.Find("body").Html()
	if err != nil {
		return htmlContent
	}
	return out
}

// injectAltText gives every image an alt attribute so the markdown
// converter produces usable image syntax.
func (c *MDXConverter) injectAltText(doc *goquery.Document) {
	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		if alt, ok := img.Attr("alt"); ok && alt != "" {
			return
		}
		src, _ := img.Attr("src")
		if strings.Contains(src, c.cfg.Images.PathPrefix) {
			stem := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
			img.SetAttr("alt", c.titleCaser.String(strings.ReplaceAll(stem, "-", " ")))
		} else {
			img.SetAttr("alt", "Image")
		}
	})
}

var (
	checkedGlyphs   = regexp.MustCompile(`[☑✓✗■]\s*`)
	uncheckedGlyphs = regexp.MustCompile(`[☐□]\s*`)
)

// convertChecklistGlyphs rewrites Apple Notes checkbox glyphs into Markdown
// task-list syntax. This runs on the markdown, not the HTML: markdown
// conversion would escape literal "- [x]" text.
func convertChecklistGlyphs(markdown string) string {
	markdown = checkedGlyphs.ReplaceAllString(markdown, "- [x] ")
	markdown = uncheckedGlyphs.ReplaceAllString(markdown, "- [ ] ")
	return markdown
}

// normalizeLineBreaks replaces <br> elements and whitespace-only divs, which
// Apple Notes uses as line breaks, with actual newlines.
func normalizeLineBreaks(doc *goquery.Document) {
	doc.Find("br").Each(func(_ int, br *goquery.Selection) {
		br.ReplaceWithHtml("\n")
	})
	doc.Find("div").Each(func(_ int, div *goquery.Selection) {
		if strings.TrimSpace(div.Text()) == "" && div.Find("img").Length() == 0 {
			div.ReplaceWithHtml("\n")
		}
	})
}

// removeEmptyElements deletes elements with no text and no image. Void
// elements are kept.
func removeEmptyElements(doc *goquery.Document) {
	doc.Find("body *").Each(func(_ int, el *goquery.Selection) {
		if el.Is("br, hr, img") {
			return
		}
		if strings.TrimSpace(el.Text()) == "" && el.Find("img").Length() == 0 {
			el.Remove()
		}
	})
}

// stripAppleStyling drops inline style attributes and Apple-prefixed class
// names, neither of which translate to Markdown.
func stripAppleStyling(doc *goquery.Document) {
	doc.Find("body *").Each(func(_ int, el *goquery.Selection) {
		el.RemoveAttr("style")

		class, ok := el.Attr("class")
		if !ok {
			return
		}
		var kept []string
		for _, name := range strings.Fields(class) {
			if !strings.HasPrefix(name, "Apple-") {
				kept = append(kept, name)
			}
		}
		if len(kept) == 0 {
			el.RemoveAttr("class")
		} else {
			el.SetAttr("class", strings.Join(kept, " "))
		}
	})
}

var (
	blankLineRun    = regexp.MustCompile(`\n{3,}`)
	overBoldRun     = regexp.MustCompile(`\*{3,}([^*\n]+?)\*{3,}`)
	boldHeadingLine = regexp.MustCompile(`(?m)^\*\*(#{1,6}[^*\n]*?)\*\*[ \t]*$`)
	headingBoldText = regexp.MustCompile(`(?m)^(#{1,6}[ \t]+)\*\*([^*\n]+?)\*\*[ \t]*$`)
	htmlComment     = regexp.MustCompile(`(?s)<!--(.*?)-->`)
	bracketedURL    = regexp.MustCompile(`\[(https?://[^\]\s]+)\]`)
)

// postProcess repairs artifacts the markdown converter introduces. Every
// transformation here is idempotent so re-running the pass is harmless.
func (c *MDXConverter) postProcess(markdown string) string {
	if markdown == "" {
		return ""
	}

	markdown = html.UnescapeString(markdown)
	markdown = convertChecklistGlyphs(markdown)
	markdown = blankLineRun.ReplaceAllString(markdown, "\n\n")
	markdown = overBoldRun.ReplaceAllString(markdown, "**$1**")
	markdown = boldHeadingLine.ReplaceAllString(markdown, "$1")
	markdown = headingBoldText.ReplaceAllString(markdown, "$1$2")
	markdown = linkifyBracketedURLs(markdown)
	markdown = c.normalizeResidualImages(markdown)
	markdown = htmlComment.ReplaceAllString(markdown, "{/*$1*/}")

	return strings.TrimRight(markdown, "\n") + "\n"
}

// linkifyBracketedURLs turns [https://example.com] into an explicit link.
// Brackets already followed by a link target are left alone.
func linkifyBracketedURLs(markdown string) string {
	matches := bracketedURL.FindAllStringSubmatchIndex(markdown, -1)
	if matches == nil {
		return markdown
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		end := m[1]
		if end < len(markdown) && markdown[end] == '(' {
			continue
		}
		url := markdown[m[2]:m[3]]
		b.WriteString(markdown[last:m[0]])
		fmt.Fprintf(&b, "[%s](%s)", url, url)
		last = end
	}
	b.WriteString(markdown[last:])
	return b.String()
}

var imgAltAttr = regexp.MustCompile(`alt=["']?([^"'>]*)["']?`)

// normalizeResidualImages converts any HTML <img> tags that survived
// conversion and reference the output image prefix into Markdown syntax.
func (c *MDXConverter) normalizeResidualImages(markdown string) string {
	pattern := regexp.MustCompile(
		`<img[^>]*src=["']?(` + regexp.QuoteMeta(c.cfg.Images.PathPrefix) + `[^"'>\s]+)["']?[^>]*/?>`)

	return pattern.ReplaceAllStringFunc(markdown, func(tag string) string {
		src := pattern.FindStringSubmatch(tag)[1]
		alt := "Image"
		if m := imgAltAttr.FindStringSubmatch(tag); m != nil && m[1] != "" {
			alt = m[1]
		}
		return fmt.Sprintf("![%s](%s)", alt, src)
	})
}

// enforceLeadingHeading guarantees the first non-blank line of every
// document is a heading. A first line that repeats the title is promoted;
// anything else gets a new title heading prepended.
func enforceLeadingHeading(body, title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Untitled"
	}

	lines := strings.Split(body, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "#") {
			return body
		}
		if strings.EqualFold(trimmed, title) {
			lines[i] = "# " + trimmed
			return strings.Join(lines, "\n")
		}
		break
	}

	if strings.TrimSpace(body) == "" {
		return "# " + title + "\n"
	}
	return "# " + title + "\n\n" + body
}

var (
	markdownImageRef = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	imageIndexSuffix = regexp.MustCompile(`-\d{3}$`)
)

// insertOrphanImages makes sure extracted images are never silently dropped:
// if none of them made it into the body as image syntax, a marked section of
// references is inserted right after the leading heading.
func (c *MDXConverter) insertOrphanImages(body string, imagePaths []string) string {
	if len(imagePaths) == 0 || markdownImageRef.MatchString(body) {
		return body
	}

	lines := strings.Split(body, "\n")
	insertAt := 0
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			insertAt = i + 1
			break
		}
	}

	section := []string{"", "{/* Images from Apple Notes */}"}
	for _, path := range imagePaths {
		filename := filepath.Base(path)
		stem := imageIndexSuffix.ReplaceAllString(strings.TrimSuffix(filename, filepath.Ext(filename)), "")
		alt := c.titleCaser.String(strings.ReplaceAll(stem, "-", " "))
		section = append(section, fmt.Sprintf("![%s](%s%s)", alt, c.cfg.Images.PathPrefix, filename))
	}
	section = append(section, "")

	lines = append(lines[:insertAt], append(section, lines[insertAt:]...)...)
	return strings.Join(lines, "\n")
}

var whitespaceRun = regexp.MustCompile(`[ \t]+`)

// plainTextFallback strips all markup for the degraded path.
func (c *MDXConverter) plainTextFallback(htmlContent string) string {
	text := c.sanitizer.Sanitize(htmlContent)
	text = html.UnescapeString(text)
	text = whitespaceRun.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
