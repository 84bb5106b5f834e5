package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	outputDir    string
	folderFilter string
	apiKey       string
	settingsPath string
	verboseMode  bool
)

var debugEnabled bool

// SetDebugMode enables verbose logging globally
func SetDebugMode(enabled bool) {
	debugEnabled = enabled
}

// debugLog logs only when verbose mode is on
func debugLog(format string, args ...any) {
	if debugEnabled {
		log.Printf("[debug] "+format, args...)
	}
}

var rootCmd = &cobra.Command{
	Use:   "notes-exporter",
	Short: "Export Apple Notes to MDX with frontmatter",
	Long: `Exports Apple Notes to MDX or Markdown files with blog-ready frontmatter.
Images are extracted to an attachments directory, notes are placed into
category folders, and each run writes a JSON log plus a text summary.`,
	Run: func(cmd *cobra.Command, args []string) {
		if verboseMode {
			SetDebugMode(true)
		}

		if err := ensureConfigExists(); err != nil {
			log.Fatalf("Failed to initialize config: %v", err)
		}

		cfg, err := loadSettings(settingsPath)
		if err != nil {
			log.Fatalf("Failed to load settings: %v", err)
		}
		if outputDir != "" {
			cfg.ExportPath = outputDir
		}
		if folderFilter != "" {
			cfg.FolderFilter = folderFilter
		}

		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}

		var classifier Classifier = DisabledClassifier{}
		if cfg.Classifier.Enabled && apiKey != "" {
			classifier = NewAnthropicClassifier(apiKey, cfg)
			log.Printf("→ Classifier enabled (%s)", cfg.Classifier.Model)
		} else {
			log.Printf("→ Classifier disabled, using rule-based metadata")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		exporter := NewExporter(cfg, NewAppleScriptBridge(cfg), classifier)
		result := exporter.Export(ctx)
		if !result.Success {
			log.Printf("✗ Export failed: %s", result.Message)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.Flags().StringVar(&outputDir, "output", "", "Export destination directory (overrides settings)")
	rootCmd.Flags().StringVar(&folderFilter, "folder", "", "Export only this Notes folder")
	rootCmd.Flags().StringVar(&apiKey, "api-key", "", "Anthropic API key for metadata classification")
	rootCmd.Flags().StringVar(&settingsPath, "settings", "", "Path to settings file")
	rootCmd.Flags().BoolVarP(&verboseMode, "verbose", "v", false, "Enable verbose logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
