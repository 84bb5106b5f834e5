package main

import (
	"context"
	"fmt"
	"html"
	"log"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// NotesBridge reads notes out of the local Apple Notes database.
type NotesBridge interface {
	FetchNotes(ctx context.Context, folderFilter string) ([]Note, error)
	FetchFolders(ctx context.Context) ([]string, error)
	TestConnection(ctx context.Context) ConnectionStatus
}

const (
	recordDelimiter = "<<<RECORD>>>"
	fieldDelimiter  = "|||"
	maxNotes        = 9999
)

// AppleScriptBridge fetches notes through osascript in parallel batches.
// Notes.app gets slow on large ranges, so batches are kept small and run
// on a bounded worker pool.
type AppleScriptBridge struct {
	batchSize  int
	maxWorkers int
	timeout    time.Duration

	// runScript is replaceable in tests.
	runScript func(ctx context.Context, script string) (string, error)
}

func NewAppleScriptBridge(cfg *Settings) *AppleScriptBridge {
	b := &AppleScriptBridge{
		batchSize:  cfg.Bridge.BatchSize,
		maxWorkers: cfg.Bridge.MaxWorkers,
		timeout:    5 * time.Minute,
	}
	if b.batchSize <= 0 {
		b.batchSize = 50
	}
	if b.maxWorkers <= 0 {
		b.maxWorkers = 4
	}
	b.runScript = b.runOsascript
	return b
}

func (b *AppleScriptBridge) runOsascript(ctx context.Context, script string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "osascript", "-e", script)
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && len(exitErr.Stderr) > 0 {
			return "", fmt.Errorf("osascript: %s", strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("osascript: %w", err)
	}
	return string(out), nil
}

const countScript = `tell application "Notes" to return count of notes`

func noteBatchScript(start, end int) string {
	return fmt.Sprintf(`tell application "Notes"
	set output to ""
	repeat with i from %d to %d
		try
			set theNote to note i
			if password protected of theNote then
				set output to output & "LOCKED" & "<<<RECORD>>>"
			else
				set theName to name of theNote
				set theBody to body of theNote
				set theCreation to creation date of theNote
				set theMod to modification date of theNote
				set theFolder to name of container of theNote
				set theID to id of theNote
				set output to output & theName & "|||" & theBody & "|||" & (theCreation as «class isot» as string) & "|||" & (theMod as «class isot» as string) & "|||" & theFolder & "|||" & theID & "<<<RECORD>>>"
			end if
		on error errMsg
			set output to output & "ERROR: " & errMsg & "<<<RECORD>>>"
		end try
	end repeat
	return output
end tell`, start, end)
}

const foldersScript = `tell application "Notes" to return name of every folder`

// FetchNotes retrieves and filters every accessible note. Locked notes,
// archive folders, notes tagged #private, and duplicate IDs are skipped.
// Individual batch failures are logged and tolerated.
func (b *AppleScriptBridge) FetchNotes(ctx context.Context, folderFilter string) ([]Note, error) {
	countOut, err := b.runScript(ctx, countScript)
	if err != nil {
		return nil, fmt.Errorf("counting notes: %w", err)
	}
	total, err := strconv.Atoi(strings.TrimSpace(countOut))
	if err != nil {
		return nil, fmt.Errorf("unexpected note count %q", strings.TrimSpace(countOut))
	}
	if total > maxNotes {
		total = maxNotes
	}
	if total == 0 {
		return nil, nil
	}

	log.Printf("→ Fetching %d notes in batches of %d", total, b.batchSize)

	numBatches := (total + b.batchSize - 1) / b.batchSize
	outputs := make([]string, numBatches)

	var mu sync.Mutex
	failed := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.maxWorkers)
	for i := 0; i < numBatches; i++ {
		start := i*b.batchSize + 1
		end := start + b.batchSize - 1
		if end > total {
			end = total
		}
		g.Go(func() error {
			out, err := b.runScript(gctx, noteBatchScript(start, end))
			if err != nil {
				log.Printf("✗ Batch %d-%d failed: %v", start, end, err)
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}
			outputs[(start-1)/b.batchSize] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if failed == numBatches {
		return nil, fmt.Errorf("all %d note batches failed", numBatches)
	}

	var notes []Note
	seen := make(map[string]bool)
	for _, out := range outputs {
		notes = append(notes, parseNoteRecords(out, folderFilter, seen)...)
	}
	log.Printf("✓ Fetched %d exportable notes", len(notes))
	return notes, nil
}

func parseNoteRecords(output, folderFilter string, seen map[string]bool) []Note {
	var notes []Note
	for _, record := range strings.Split(output, recordDelimiter) {
		record = strings.TrimSpace(record)
		if record == "" || record == "LOCKED" || strings.HasPrefix(record, "ERROR:") {
			continue
		}

		parts := strings.SplitN(record, fieldDelimiter, 6)
		if len(parts) < 6 {
			continue
		}

		note := Note{
			Name:             strings.TrimSpace(parts[0]),
			Body:             parts[1],
			CreationDate:     strings.TrimSpace(parts[2]),
			ModificationDate: strings.TrimSpace(parts[3]),
			Folder:           strings.TrimSpace(parts[4]),
			ID:               strings.TrimSpace(parts[5]),
		}
		note.ShortID = shortNoteID(note.ID)

		if note.ID != "" {
			if seen[note.ID] {
				continue
			}
			seen[note.ID] = true
		}
		if folderFilter != "" && !strings.EqualFold(note.Folder, folderFilter) {
			continue
		}
		if isArchiveFolder(note.Folder) {
			continue
		}
		if extractHashtags(note.Body)["private"] {
			continue
		}
		notes = append(notes, note)
	}
	return notes
}

func shortNoteID(id string) string {
	if idx := strings.LastIndexByte(id, '/'); idx >= 0 {
		return id[idx+1:]
	}
	return id
}

// archiveFolderNames marks folders excluded from export.
var archiveFolderNames = []string{
	"archive", "archived", "archives", "old", "deleted", "trash", "backup",
}

func isArchiveFolder(folder string) bool {
	lower := strings.ToLower(folder)
	for _, name := range archiveFolderNames {
		if strings.Contains(lower, name) {
			return true
		}
	}
	return false
}

var htmlTagPattern = regexp.MustCompile(`<[^>]+>`)

// extractHashtags returns the lowercase hashtags present in a note body,
// with markup stripped so tags inside HTML are still found.
func extractHashtags(body string) map[string]bool {
	text := html.UnescapeString(body)
	text = htmlTagPattern.ReplaceAllString(text, " ")

	tags := make(map[string]bool)
	for _, m := range hashtagPattern.FindAllStringSubmatch(text, -1) {
		tags[strings.ToLower(m[1])] = true
	}
	return tags
}

func (b *AppleScriptBridge) FetchFolders(ctx context.Context) ([]string, error) {
	out, err := b.runScript(ctx, foldersScript)
	if err != nil {
		return nil, fmt.Errorf("listing folders: %w", err)
	}
	var folders []string
	for _, name := range strings.Split(strings.TrimSpace(out), ", ") {
		if name = strings.TrimSpace(name); name != "" {
			folders = append(folders, name)
		}
	}
	return folders, nil
}

// TestConnection verifies Notes.app is reachable before a run commits to
// creating the export directory tree.
func (b *AppleScriptBridge) TestConnection(ctx context.Context) ConnectionStatus {
	folders, err := b.FetchFolders(ctx)
	if err != nil {
		return ConnectionStatus{Message: fmt.Sprintf("cannot reach Notes.app: %v", err)}
	}

	countOut, err := b.runScript(ctx, countScript)
	if err != nil {
		return ConnectionStatus{Message: fmt.Sprintf("cannot count notes: %v", err)}
	}
	count, err := strconv.Atoi(strings.TrimSpace(countOut))
	if err != nil {
		return ConnectionStatus{Message: fmt.Sprintf("unexpected note count %q", strings.TrimSpace(countOut))}
	}

	return ConnectionStatus{
		Success:     true,
		FolderCount: len(folders),
		NoteCount:   count,
		Message:     fmt.Sprintf("connected: %d folders, %d notes", len(folders), count),
	}
}
