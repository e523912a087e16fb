// Package page renders the static HTML review page that indexes every
// subject's regions, images and session files.
package page

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/PacificBiosciences/Paraviewer/internal/report"
)

//go:embed templates
var content embed.FS

// Data feeds the review page template. The Show flags hide pedigree
// columns that no row populates.
type Data struct {
	Version string
	Rows    []report.Row

	ShowFamilyID   bool
	ShowPaternalID bool
	ShowMaternalID bool
	ShowSex        bool
	ShowPhenotype  bool
}

// Build writes index.html and the static assets it references into
// the output root. Rows are sorted by chromosome, start and end for
// presentation. A run that produced no rows at all cannot be reviewed
// and is an error.
func Build(outdir string, rows []report.Row, version string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(rows) == 0 {
		return errors.New("no sample/region entries found")
	}

	report.Sort(rows)
	data := Data{Version: version, Rows: rows}
	for _, row := range rows {
		data.ShowFamilyID = data.ShowFamilyID || row.FamilyID != ""
		data.ShowPaternalID = data.ShowPaternalID || row.PaternalID != ""
		data.ShowMaternalID = data.ShowMaternalID || row.MaternalID != ""
		data.ShowSex = data.ShowSex || row.Sex != ""
		data.ShowPhenotype = data.ShowPhenotype || row.Phenotype != ""
	}

	tmpl, err := template.New("paraviewer.html.tmpl").
		Funcs(template.FuncMap{"base": path.Base}).
		ParseFS(content, "templates/paraviewer.html.tmpl")
	if err != nil {
		return fmt.Errorf("load page template: %w", err)
	}

	if err := copyStatic(outdir); err != nil {
		return err
	}

	indexPath := filepath.Join(outdir, "index.html")
	f, err := os.Create(indexPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", indexPath, err)
	}
	if err := tmpl.Execute(f, data); err != nil {
		f.Close()
		return fmt.Errorf("render review page: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write %s: %w", indexPath, err)
	}

	logger.Info("open the review page in your browser to view results",
		zap.String("path", indexPath))
	return nil
}

// copyStatic writes the embedded static assets under the output root,
// keeping their layout below templates/static.
func copyStatic(outdir string) error {
	return fs.WalkDir(content, "templates/static", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("copy static assets: %w", err)
		}
		if d.IsDir() {
			return nil
		}
		raw, err := content.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read asset %s: %w", p, err)
		}
		rel := strings.TrimPrefix(p, "templates/static/")
		dst := filepath.Join(outdir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return fmt.Errorf("copy asset %s: %w", rel, err)
		}
		if err := os.WriteFile(dst, raw, 0o644); err != nil {
			return fmt.Errorf("copy asset %s: %w", rel, err)
		}
		return nil
	})
}
