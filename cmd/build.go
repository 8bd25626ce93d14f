package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"

	"github.com/Bitlatte/pageserve/internal/config"
	"github.com/Bitlatte/pageserve/internal/resources"
)

// buildCmd represents the build command
var buildCmd = &cobra.Command{
	Use:   "build <resources-dir>",
	Short: "Renders every page to static HTML files",
	Long: `The build command renders every markdown page in <resources-dir>/pages
through the site template, writes <out>/<name>.html for each of them and
<out>/index.html for the home page, and copies <resources-dir>/public to
<out>/public.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := runBuild(args[0], appConfig)
		return err
	},
}

func init() {
	buildCmd.Flags().String("out", config.DefaultOutDir, "output directory")
	rootCmd.AddCommand(buildCmd)
}

// runBuild renders the site at root into cfg.OutDir and returns the names of
// the pages it wrote.
func runBuild(root string, cfg config.Config) ([]string, error) {
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	a, err := newApp(root, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load resources: %w", err)
	}

	outDir := cfg.OutDir
	if err := os.MkdirAll(outDir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create output directory '%s': %w", outDir, err)
	}

	sources, err := fs.Glob(a.dir.Pages(), "*.md")
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}

	var written []string
	for _, src := range sources {
		name := strings.TrimSuffix(src, ".md")
		doc, found := a.renderer.BuildPage(name)
		if !found {
			logger.Warn("skipping page", "page", name)
			continue
		}

		outputPath := filepath.Join(outDir, name+".html")
		if err := writeFile(outputPath, strings.NewReader(doc)); err != nil {
			return written, fmt.Errorf("failed to write page '%s': %w", outputPath, err)
		}
		logger.Info("generated page", "page", name, "path", outputPath)
		written = append(written, name)

		if name == cfg.HomePage {
			indexPath := filepath.Join(outDir, "index.html")
			if err := writeFile(indexPath, strings.NewReader(doc)); err != nil {
				return written, fmt.Errorf("failed to write homepage '%s': %w", indexPath, err)
			}
		}
	}

	publicOut := filepath.Join(outDir, resources.PublicDir)
	if err := copyDirContents(a.dir.Public(), publicOut); err != nil {
		return written, fmt.Errorf("failed to copy static assets: %w", err)
	}

	logger.Info("build completed", "pages", len(written), "out", outDir)
	return written, nil
}

// copyDirContents recursively copies src into the directory dst.
func copyDirContents(src fs.FS, dst string) error {
	return fs.WalkDir(src, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		dstPath := filepath.Join(dst, filepath.FromSlash(p))

		if d.IsDir() {
			if err := os.MkdirAll(dstPath, os.ModePerm); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dstPath, err)
			}
			return nil
		}

		data, err := fs.ReadFile(src, p)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path.Join(resources.PublicDir, p), err)
		}
		if err := writeFile(dstPath, bytes.NewReader(data)); err != nil {
			return fmt.Errorf("failed to copy %s to %s: %w", p, dstPath, err)
		}
		return nil
	})
}

// writeFile replaces filename with the contents of r. Readers never see a
// partially written file.
func writeFile(filename string, r io.Reader) error {
	if err := atomic.WriteFile(filename, r); err != nil {
		return err
	}
	// atomic creates its temp file 0600; published files are world readable.
	return os.Chmod(filename, 0o644)
}
