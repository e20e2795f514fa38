package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// DefaultRasterDPI matches the resolution the OCR backends are tuned for.
const DefaultRasterDPI = 300

// PageImage is one rendered page. Data holds JPEG bytes (RGB, no alpha).
type PageImage struct {
	Index int
	Data  []byte
}

// Rasterizer renders PDF pages to in-memory bitmaps by shelling out to
// poppler's pdftoppm. The binary location is configurable for hosts where
// poppler is not on PATH.
type Rasterizer struct {
	binary string
	dpi    int
}

// NewRasterizer builds a rasterizer; empty binary and non-positive dpi fall
// back to "pdftoppm" and the default resolution.
func NewRasterizer(binary string, dpi int) *Rasterizer {
	if binary == "" {
		binary = "pdftoppm"
	}
	if dpi <= 0 {
		dpi = DefaultRasterDPI
	}
	return &Rasterizer{binary: binary, dpi: dpi}
}

// Render rasterizes every page of the PDF in page order. Unlike the textual
// classifier, rendering failures propagate: a corrupt file aborts the task.
func (r *Rasterizer) Render(ctx context.Context, pdfPath string) ([]PageImage, error) {
	workDir, err := os.MkdirTemp("", "raster-")
	if err != nil {
		return nil, fmt.Errorf("create raster dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	prefix := filepath.Join(workDir, "page")
	args := []string{"-jpeg", "-r", strconv.Itoa(r.dpi), pdfPath, prefix}
	cmd := exec.CommandContext(ctx, r.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	matches, err := filepath.Glob(prefix + "-*.jpg")
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, errors.New("no rendered pages found")
	}
	SortPagePaths(matches)

	pages := make([]PageImage, 0, len(matches))
	for i, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read rendered page: %w", err)
		}
		pages = append(pages, PageImage{Index: i, Data: data})
	}
	return pages, nil
}

// SortPagePaths orders pdftoppm output files by their page number suffix, so
// page-10 sorts after page-9 rather than after page-1.
func SortPagePaths(paths []string) {
	sort.Slice(paths, func(i, j int) bool {
		return pageIndexFromName(paths[i]) < pageIndexFromName(paths[j])
	})
}

func pageIndexFromName(path string) int {
	base := filepath.Base(path)
	idx := strings.LastIndex(base, "-")
	if idx < 0 {
		return 0
	}
	number := strings.TrimSuffix(base[idx+1:], filepath.Ext(base))
	v, err := strconv.Atoi(number)
	if err != nil {
		return 0
	}
	return v - 1
}
