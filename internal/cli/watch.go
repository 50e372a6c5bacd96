package cli

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/tacogips/remotetheme/internal/site"
	"github.com/tacogips/remotetheme/internal/theme"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run theme processing when site or local theme files change",
	Long: `Resolve the configured theme once, then watch the site source and, for
local themes, the theme directory. Every change re-reads site data and merges
theme data again. A remote theme is downloaded only once.

Press Ctrl+C to stop; downloaded themes and copied files are removed on exit.

Examples:
  remotetheme watch
  remotetheme watch --source ./site --debounce 1s`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

// Watch command flags
var watchDebounce time.Duration

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 300*time.Millisecond, "Delay before re-running after a change")
}

// skippedDirs are never watched.
var skippedDirs = map[string]bool{
	"_site":        true,
	"node_modules": true,
	"vendor":       true,
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	s, err := loadSite(cmd.Flags().Changed(FlagSource))
	if err != nil {
		return err
	}

	p := newPipeline()
	if err := p.Run(ctx, s); err != nil {
		printErrorMsg(fmt.Sprintf("Theme processing failed: %v", err))
		return err
	}
	printRunSummary(s)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	roots := watchRoots(s)
	for _, root := range roots {
		dirs, err := watchDirs(root)
		if err != nil {
			return fmt.Errorf("failed to scan %s: %w", root, err)
		}
		for _, dir := range dirs {
			if err := watcher.Add(dir); err != nil {
				slog.Debug("could not watch directory", "path", dir, "error", err)
			}
		}
	}
	printInfo(fmt.Sprintf("Watching %s for changes. Press Ctrl+C to stop.", strings.Join(roots, ", ")))

	trigger := make(chan struct{}, 1)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			printInfo("Stopping watcher")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevantEvent(event) {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !skipDir(info.Name()) {
					if err := watcher.Add(event.Name); err != nil {
						slog.Debug("could not watch new directory", "path", event.Name, "error", err)
					}
				}
			}
			slog.Debug("file changed", "path", event.Name, "op", event.Op.String())

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				select {
				case trigger <- struct{}{}:
				default:
				}
			})

		case <-trigger:
			if err := p.Run(ctx, s); err != nil {
				printErrorMsg(fmt.Sprintf("Regeneration failed: %v", err))
				continue
			}
			printRunSummary(s)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("file watcher error", "error", err)
		}
	}
}

func printRunSummary(s *site.Site) {
	name := "(none)"
	if s.Theme != nil {
		name = s.Theme.Name()
	}
	printSuccess(fmt.Sprintf("Processed site %s with theme %s: %d data keys, %d files included",
		s.Source, name, len(s.Data), len(s.StaticFiles)))
}

// watchRoots returns the site source and, for local themes, the theme root.
// Remote theme directories are managed by this process and are not watched.
func watchRoots(s *site.Site) []string {
	roots := []string{s.Source}
	if lt, ok := s.Theme.(*theme.Local); ok && lt.Root() != s.Source {
		roots = append(roots, lt.Root())
	}
	return roots
}

// watchDirs lists root and its subdirectories, leaving out hidden and
// generated directories.
func watchDirs(root string) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && skipDir(d.Name()) {
			return filepath.SkipDir
		}
		dirs = append(dirs, p)
		return nil
	})
	return dirs, err
}

func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || skippedDirs[name]
}

func relevantEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	base := filepath.Base(event.Name)
	// Editor swap and backup files.
	return !strings.HasPrefix(base, ".") && !strings.HasSuffix(base, "~")
}
