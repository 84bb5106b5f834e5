package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ExportResult summarizes an export run.
type ExportResult struct {
	Success    bool
	Message    string
	OutputPath string
	Stats      StatsSnapshot
}

// Exporter orchestrates a full export run: fetch, convert, place, report.
// Notes are processed sequentially; per-note failures are recorded and the
// run continues.
type Exporter struct {
	cfg       *Settings
	bridge    NotesBridge
	images    *ImageProcessor
	converter *MDXConverter
	stats     *ExportStats

	exportPath     string
	notesDir       string
	attachmentsDir string
	startTime      time.Time

	errors   []ErrorRecord
	warnings []WarningRecord
}

// NewExporter wires an exporter for one run. Each run gets a timestamped
// directory so repeated exports never collide.
func NewExporter(cfg *Settings, bridge NotesBridge, classifier Classifier) *Exporter {
	timestamp := time.Now().Format("2006-01-02_150405")
	exportPath := filepath.Join(cfg.ExportPath, "Notes_Export_"+timestamp)
	attachmentsDir := filepath.Join(exportPath, "attachments")

	stats := NewExportStats()
	frontmatter := NewFrontmatterGenerator(cfg, classifier)

	return &Exporter{
		cfg:            cfg,
		bridge:         bridge,
		images:         NewImageProcessor(attachmentsDir, cfg, stats),
		converter:      NewMDXConverter(cfg, frontmatter),
		stats:          stats,
		exportPath:     exportPath,
		notesDir:       filepath.Join(exportPath, "notes"),
		attachmentsDir: attachmentsDir,
	}
}

// Export runs the full pipeline. Cancelling ctx stops between notes and
// still flushes the run log and summary.
func (e *Exporter) Export(ctx context.Context) *ExportResult {
	e.startTime = time.Now()

	status := e.bridge.TestConnection(ctx)
	if !status.Success {
		return &ExportResult{Message: status.Message}
	}
	log.Printf("✓ %s", status.Message)

	if err := e.setupDirectories(); err != nil {
		return &ExportResult{Message: fmt.Sprintf("creating export directories: %v", err)}
	}

	notes, err := e.bridge.FetchNotes(ctx, e.cfg.FolderFilter)
	if err != nil {
		return &ExportResult{Message: fmt.Sprintf("fetching notes: %v", err)}
	}

	log.Printf("→ Exporting %d notes to %s", len(notes), e.exportPath)

	for i := range notes {
		if ctx.Err() != nil {
			log.Printf("✗ Export interrupted after %d notes", i)
			e.flushReports()
			return &ExportResult{
				Message:    "export interrupted",
				OutputPath: e.exportPath,
				Stats:      e.stats.Snapshot(),
			}
		}
		e.processNote(&notes[i])
	}

	e.flushReports()
	e.printErrors()

	snapshot := e.stats.Snapshot()
	log.Printf("✓ Export complete: %d notes, %d images, %d errors",
		snapshot.NotesProcessed, snapshot.ImagesExtracted, snapshot.Errors)

	return &ExportResult{
		Success:    true,
		Message:    "export complete",
		OutputPath: e.exportPath,
		Stats:      snapshot,
	}
}

func (e *Exporter) setupDirectories() error {
	for _, dir := range []string{e.exportPath, e.notesDir, e.attachmentsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

func (e *Exporter) processNote(note *Note) {
	display := strings.TrimSpace(note.Name)
	if display == "" {
		display = "Untitled"
	}

	if !e.cfg.IncludeEmptyNotes && isEmptyBody(note.Body) {
		debugLog("Skipping empty note: %s", display)
		e.stats.NotesSkipped.Add(1)
		return
	}

	htmlContent, imagePaths := e.images.ProcessHTMLImages(note.Body, display)
	doc := e.converter.Convert(htmlContent, note, imagePaths)
	if doc.Outcome == OutcomeDegraded {
		e.recordWarning(display, []string{fmt.Sprintf("converted as plain text: %s", doc.Reason)})
	}
	if problems := validateDocument(doc); len(problems) > 0 {
		e.recordWarning(display, problems)
	}

	path, err := e.saveDocument(doc)
	if err != nil {
		doc.Outcome = OutcomeFailed
		doc.Reason = err.Error()
		log.Printf("✗ Failed to save %q: %v", display, err)
		e.recordError(note, display, doc.Outcome, err)
		return
	}

	if info, err := os.Stat(path); err == nil {
		e.stats.TotalBytes.Add(info.Size())
	}
	e.stats.NotesProcessed.Add(1)
	debugLog("Exported %q → %s (%d images)", display, path, len(imagePaths))
}

var emptyBodyMarkers = []string{"<div><br></div>", "<div></div>", "<br>"}

func isEmptyBody(body string) bool {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return true
	}
	for _, marker := range emptyBodyMarkers {
		trimmed = strings.ReplaceAll(trimmed, marker, "")
	}
	return strings.TrimSpace(trimmed) == ""
}

// validateDocument reports structural problems worth flagging without
// failing the note.
func validateDocument(doc *ConvertedDocument) []string {
	var problems []string
	if !strings.HasPrefix(strings.TrimSpace(doc.Body), "#") {
		problems = append(problems, "document does not start with a heading")
	}
	if strings.Contains(doc.Body, "<div") || strings.Contains(doc.Body, "<span") {
		problems = append(problems, "residual HTML markup in body")
	}
	if len(strings.Fields(doc.Body)) < 3 {
		problems = append(problems, "document body is nearly empty")
	}
	return problems
}

// saveDocument places a document under notes/{categorySlug}/ with a
// collision-suffixed filename. Category placement happens exactly once,
// here, so files never move after being written.
func (e *Exporter) saveDocument(doc *ConvertedDocument) (string, error) {
	categorySlug := toKebabCase(doc.Frontmatter.Category, e.cfg.MaxFilenameLength)
	if categorySlug == "" || categorySlug == untitledSlug {
		categorySlug = "uncategorized"
	}

	categoryDir := filepath.Join(e.notesDir, categorySlug)
	if err := os.MkdirAll(categoryDir, 0755); err != nil {
		return "", fmt.Errorf("creating category directory: %w", err)
	}

	filename := generateMarkdownFilename(doc.Frontmatter.Title, e.cfg.OutputFormat, e.cfg.MaxFilenameLength)
	path := filepath.Join(categoryDir, filename)

	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)
	for counter := 1; fileExists(path); counter++ {
		path = filepath.Join(categoryDir, fmt.Sprintf("%s-%d%s", stem, counter, ext))
	}

	content := serializeFrontmatter(doc.Frontmatter) + "\n" + doc.Body
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("writing document: %w", err)
	}
	return path, nil
}

func (e *Exporter) recordError(note *Note, display string, outcome Outcome, err error) {
	e.stats.Errors.Add(1)
	e.errors = append(e.errors, ErrorRecord{
		NoteID:    note.ShortID,
		NoteName:  display,
		Outcome:   outcome.String(),
		Error:     err.Error(),
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

func (e *Exporter) recordWarning(display string, problems []string) {
	e.stats.Warnings.Add(1)
	e.warnings = append(e.warnings, WarningRecord{
		NoteName:  display,
		Problems:  problems,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// flushReports writes the machine-readable run log and the human summary.
// Both are best-effort: a report failure never fails the export.
func (e *Exporter) flushReports() {
	if err := e.writeRunLog(); err != nil {
		log.Printf("✗ Failed to write run log: %v", err)
	}
	if err := e.writeSummary(); err != nil {
		log.Printf("✗ Failed to write summary: %v", err)
	}
}

func (e *Exporter) writeRunLog() error {
	duration := time.Since(e.startTime)
	snapshot := e.stats.Snapshot()

	runLog := map[string]any{
		"export_metadata": map[string]any{
			"started_at":    e.startTime.Format(time.RFC3339),
			"finished_at":   time.Now().Format(time.RFC3339),
			"export_path":   e.exportPath,
			"output_format": e.cfg.OutputFormat,
			"folder_filter": e.cfg.FolderFilter,
		},
		"summary":  snapshot,
		"errors":   e.errors,
		"warnings": e.warnings,
		"performance": map[string]any{
			"duration_seconds": duration.Seconds(),
			"notes_per_second": ratePerSecond(snapshot.NotesProcessed, duration),
		},
	}

	data, err := json.MarshalIndent(runLog, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(e.exportPath, "export_log.json"), data, 0644)
}

func ratePerSecond(count int64, d time.Duration) float64 {
	if d.Seconds() <= 0 {
		return 0
	}
	return float64(count) / d.Seconds()
}

func (e *Exporter) writeSummary() error {
	snapshot := e.stats.Snapshot()

	var b strings.Builder
	b.WriteString("Apple Notes Export Summary\n")
	b.WriteString("==========================\n\n")
	fmt.Fprintf(&b, "Export path:      %s\n", e.exportPath)
	fmt.Fprintf(&b, "Duration:         %s\n\n", time.Since(e.startTime).Round(time.Second))
	fmt.Fprintf(&b, "Notes exported:   %d\n", snapshot.NotesProcessed)
	fmt.Fprintf(&b, "Notes skipped:    %d\n", snapshot.NotesSkipped)
	fmt.Fprintf(&b, "Images extracted: %d\n", snapshot.ImagesExtracted)
	fmt.Fprintf(&b, "Images failed:    %d\n", snapshot.ImagesFailed)
	fmt.Fprintf(&b, "Errors:           %d\n", snapshot.Errors)
	fmt.Fprintf(&b, "Warnings:         %d\n", snapshot.Warnings)
	fmt.Fprintf(&b, "Total size:       %.1f MB\n", float64(snapshot.TotalBytes+snapshot.ImageBytes)/(1<<20))

	return os.WriteFile(filepath.Join(e.exportPath, "export_summary.txt"), []byte(b.String()), 0644)
}

func (e *Exporter) printErrors() {
	if len(e.errors) == 0 {
		return
	}
	log.Printf("✗ %d notes failed:", len(e.errors))
	for i, rec := range e.errors {
		if i >= 5 {
			log.Printf("  ... and %d more (see export_log.json)", len(e.errors)-5)
			break
		}
		log.Printf("  %s: %s", rec.NoteName, rec.Error)
	}
}
