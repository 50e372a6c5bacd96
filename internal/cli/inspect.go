package cli

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/tacogips/remotetheme/internal/site"
	"github.com/tacogips/remotetheme/internal/theme"
)

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Resolve the configured theme and show where it lives",
	Long: `Resolve the configured theme, download it if it is remote, and print
its root directory, the load paths wired into the site, the files copied into
the site and the theme file tree.

Examples:
  remotetheme inspect
  remotetheme inspect --source ./site --max-files 20
  remotetheme inspect --cache-dir ~/.cache/remotetheme`,
	Args: cobra.NoArgs,
	RunE: runInspect,
}

// Inspect command flags
var inspectMaxFiles int

func init() {
	inspectCmd.Flags().IntVar(&inspectMaxFiles, "max-files", 50, "Maximum number of theme files to list (0 for all)")
}

// themeFile is one entry of the theme file listing.
type themeFile struct {
	Path string
	Size int64
}

func runInspect(cmd *cobra.Command, args []string) error {
	s, err := loadSite(cmd.Flags().Changed(FlagSource))
	if err != nil {
		return err
	}

	printProgress("Resolving theme...")
	if err := newPipeline().Run(cmd.Context(), s); err != nil {
		printErrorMsg(fmt.Sprintf("Theme processing failed: %v", err))
		return err
	}

	if s.Theme == nil {
		printWarning("No theme configured (set remote_theme or local_theme in the site configuration)")
		return nil
	}

	printSuccess(fmt.Sprintf("Theme %s ready", s.Theme.Name()))
	printThemeSummary(s)

	files, total, err := listThemeFiles(s.Theme.Root(), inspectMaxFiles)
	if err != nil {
		return fmt.Errorf("failed to list theme files: %w", err)
	}

	printHeader(fmt.Sprintf("Theme files (%d)", total))
	for _, f := range files {
		printInfo(fmt.Sprintf("  %-50s %s", f.Path, units.HumanSize(float64(f.Size))))
	}
	if total > len(files) {
		printInfo(fmt.Sprintf("  ... and %d more", total-len(files)))
	}
	return nil
}

func printThemeSummary(s *site.Site) {
	printHeader("Theme")
	switch h := s.Theme.(type) {
	case *theme.Remote:
		printKeyValue("Kind", "remote")
		printKeyValue("Repository", h.Reference().String())
	case *theme.Local:
		printKeyValue("Kind", "local")
	}
	printKeyValue("Name", s.Theme.Name())
	printKeyValue("Root", s.Theme.Root())
	printKeyValue("Site source", s.Source)

	printHeader("Load paths")
	printKeyValue("Includes", joinOrNone(s.IncludesLoadPaths))
	printKeyValue("Layouts", joinOrNone(s.LayoutsLoadPaths))
	printKeyValue("Sass", joinOrNone(s.SassLoadPaths))

	printHeader("Site")
	printKeyValue("Static files", joinOrNone(s.StaticFiles))
	printKeyValue("Data keys", joinOrNone(sortedKeys(s.Data)))
	printSeparator()
}

// listThemeFiles returns up to limit regular files under root, sorted by
// path, and the total number of files. A limit <= 0 lists everything.
func listThemeFiles(root string, limit int) ([]themeFile, int, error) {
	var files []themeFile
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		files = append(files, themeFile{Path: filepath.ToSlash(rel), Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	total := len(files)
	if limit > 0 && total > limit {
		files = files[:limit]
	}
	return files, total, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}
