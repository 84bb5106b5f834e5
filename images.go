package main

import (
	"encoding/base64"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// imageSource retrieves raw image bytes for one kind of src reference.
// Sources are tried in registration order, most specific first.
type imageSource interface {
	CanHandle(src string) bool
	Fetch(src string) ([]byte, error)
}

// dataURISource decodes inline base64 data URIs.
type dataURISource struct{}

var dataURIPattern = regexp.MustCompile(`^data:image/([^;]+);base64,(.+)$`)

func (s *dataURISource) CanHandle(src string) bool {
	return strings.HasPrefix(src, "data:image/")
}

func (s *dataURISource) Fetch(src string) ([]byte, error) {
	matches := dataURIPattern.FindStringSubmatch(src)
	if matches == nil {
		return nil, fmt.Errorf("invalid data URL format")
	}

	data, err := base64.StdEncoding.DecodeString(matches[2])
	if err != nil {
		return nil, fmt.Errorf("decoding base64 image: %w", err)
	}
	return data, nil
}

// remoteSource downloads http(s) images with a bounded timeout and a hard
// byte cap. Oversized responses are rejected, not truncated.
type remoteSource struct {
	client   *http.Client
	maxBytes int64
}

func (s *remoteSource) CanHandle(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

func (s *remoteSource) Fetch(src string) ([]byte, error) {
	resp, err := s.client.Get(src)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", src, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, src)
	}
	if resp.ContentLength > s.maxBytes {
		return nil, fmt.Errorf("image exceeds %d byte limit: %s", s.maxBytes, src)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading image body: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("image exceeds %d byte limit: %s", s.maxBytes, src)
	}
	return data, nil
}

// internalSchemes are Apple Notes references that cannot be resolved outside
// the application. They are left untouched in the HTML.
var internalSchemes = []string{"cid:", "x-apple-data-detectors://"}

func isInternalReference(src string) bool {
	for _, scheme := range internalSchemes {
		if strings.HasPrefix(src, scheme) {
			return true
		}
	}
	return false
}

// ImageProcessor extracts embedded and remote images from note HTML, writes
// them to the shared attachments directory in the configured target format,
// and rewrites the HTML references to the new paths.
type ImageProcessor struct {
	attachmentsDir string
	cfg            *Settings
	stats          *ExportStats
	sources        []imageSource
	titleCaser     cases.Caser
}

// NewImageProcessor creates an image processor writing into attachmentsDir.
func NewImageProcessor(attachmentsDir string, cfg *Settings, stats *ExportStats) *ImageProcessor {
	client := &http.Client{
		Timeout: time.Duration(cfg.Images.DownloadTimeoutSeconds) * time.Second,
	}

	return &ImageProcessor{
		attachmentsDir: attachmentsDir,
		cfg:            cfg,
		stats:          stats,
		sources: []imageSource{
			&dataURISource{},
			&remoteSource{client: client, maxBytes: cfg.Images.MaxDownloadBytes},
		},
		titleCaser: cases.Title(language.English),
	}
}

// ProcessHTMLImages processes all images in a note's HTML. It never fails:
// on any internal error the original HTML is returned unmodified. Per-image
// failures are independent; the note proceeds with whatever succeeded.
func (p *ImageProcessor) ProcessHTMLImages(htmlContent, noteName string) (string, []string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		log.Printf("Error parsing HTML for note %q: %v", noteName, err)
		return htmlContent, nil
	}

	var extracted []string
	doc.Find("img").Each(func(idx int, img *goquery.Selection) {
		src, _ := img.Attr("src")
		if src == "" {
			return
		}

		if isInternalReference(src) {
			log.Printf("Cannot extract internal image reference: %s", src)
			return
		}

		source := p.findSource(src)
		if source == nil {
			return
		}

		data, err := source.Fetch(src)
		if err != nil {
			log.Printf("Image %d in note %q: %v", idx, noteName, err)
			p.stats.ImagesFailed.Add(1)
			return
		}

		filename, err := p.saveImage(data, noteName, idx)
		if err != nil {
			log.Printf("Image %d in note %q: %v", idx, noteName, err)
			p.stats.ImagesFailed.Add(1)
			return
		}

		img.SetAttr("src", p.cfg.Images.PathPrefix+filename)
		if alt, ok := img.Attr("alt"); !ok || alt == "" {
			img.SetAttr("alt", p.altFromFilename(filename))
		}
		extracted = append(extracted, filepath.Join(p.attachmentsDir, filename))
		p.stats.ImagesExtracted.Add(1)
	})

	out, err := doc.Find("body").Html()
	if err != nil {
		log.Printf("Error serializing HTML for note %q: %v", noteName, err)
		return htmlContent, extracted
	}
	return out, extracted
}

func (p *ImageProcessor) findSource(src string) imageSource {
	for _, source := range p.sources {
		if source.CanHandle(src) {
			return source
		}
	}
	return nil
}

// saveImage converts an image buffer to the target format and writes it to
// the attachments directory under a collision-free filename. On codec
// failure the raw bytes are written as-is; HEIC is the exception since a raw
// HEIC file is unviewable, so those buffers are dropped with an error.
func (p *ImageProcessor) saveImage(data []byte, noteName string, index int) (string, error) {
	detected := detectImageFormat(data)

	encoded, extension, err := convertImage(data, p.cfg.Images.Format, p.cfg.Images.Quality)
	if err != nil {
		if detected == FormatHEIC {
			return "", fmt.Errorf("HEIC image cannot be converted and cannot be written raw: %w", err)
		}
		debugLog("Falling back to raw write for %s image: %v", detected, err)
		encoded = data
		extension = detected.Extension()
	}

	filename := generateImageFilename(noteName, index, extension, p.cfg.MaxFilenameLength)
	filename = p.resolveCollision(filename)

	path := filepath.Join(p.attachmentsDir, filename)
	if err := os.WriteFile(path, encoded, 0644); err != nil {
		return "", fmt.Errorf("writing image file: %w", err)
	}

	p.stats.ImageBytes.Add(int64(len(encoded)))
	return filename, nil
}

// resolveCollision returns a filename unique within the attachments
// directory. The directory is a collision domain shared by every note in the
// run, so an incrementing counter is inserted before the extension; after
// 999 attempts a timestamp-seeded name guarantees termination.
func (p *ImageProcessor) resolveCollision(filename string) string {
	if !fileExists(filepath.Join(p.attachmentsDir, filename)) {
		return filename
	}

	extension := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, extension)

	for counter := 1; counter <= 999; counter++ {
		candidate := fmt.Sprintf("%s-%d%s", stem, counter, extension)
		if !fileExists(filepath.Join(p.attachmentsDir, candidate)) {
			return candidate
		}
	}
	return fmt.Sprintf("%s-%d%s", stem, time.Now().UnixNano(), extension)
}

// altFromFilename synthesizes alt text for an image that has none:
// "my-note-000.jpg" becomes "My Note 000".
func (p *ImageProcessor) altFromFilename(filename string) string {
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	return p.titleCaser.String(strings.ReplaceAll(stem, "-", " "))
}

// fileExists checks if a file already exists
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
