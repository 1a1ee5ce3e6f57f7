package adapter

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"

	m "pkgabidiff.dev/pkg/pkgabidiff/internal/model"
)

const (
	// MetaFileName holds the machine-readable scores of a report.
	MetaFileName = "meta.json"
	// IndexFileName is the HTML summary of a report.
	IndexFileName = "index.html"
)

var (
	//go:embed templates/index.html.tmpl
	indexTemplateText string
	//go:embed templates/report.css
	reportStyles string

	indexTemplate = template.Must(template.New("index").Funcs(template.FuncMap{
		"seq":     seq,
		"primary": primaryCell,
	}).Parse(indexTemplateText))
)

// ReportStore persists the package level report files.
type ReportStore interface {
	SaveMeta(dir m.Path, meta m.Meta) error
	LoadMeta(dir m.Path) (m.Meta, error)
	SaveIndex(dir m.Path, summary *m.RunSummary) error
	// RemoveIndex deletes index.html, ignoring a missing file.
	RemoveIndex(dir m.Path) error
}

// LocalReportStore writes reports to the local filesystem.
type LocalReportStore struct {
	toolVersion string
}

// NewLocalReportStore constructs a LocalReportStore. toolVersion is printed in
// the report footer.
func NewLocalReportStore(toolVersion string) *LocalReportStore {
	return &LocalReportStore{toolVersion: toolVersion}
}

// SaveMeta writes meta.json.
func (s *LocalReportStore) SaveMeta(dir m.Path, meta m.Meta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", MetaFileName, err)
	}

	return writeReportFile(filepath.Join(string(dir), MetaFileName), append(data, '\n'))
}

// LoadMeta reads meta.json.
func (s *LocalReportStore) LoadMeta(dir m.Path) (m.Meta, error) {
	//nolint:gosec // G304: report directory is chosen by the user.
	data, err := os.ReadFile(filepath.Join(string(dir), MetaFileName))
	if err != nil {
		return m.Meta{}, err
	}

	var meta m.Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return m.Meta{}, fmt.Errorf("failed to decode %s: %w", MetaFileName, err)
	}

	return meta, nil
}

// SaveIndex renders index.html.
func (s *LocalReportStore) SaveIndex(dir m.Path, summary *m.RunSummary) error {
	content, err := RenderIndex(summary, s.toolVersion)
	if err != nil {
		return err
	}

	return writeReportFile(filepath.Join(string(dir), IndexFileName), content)
}

// RemoveIndex deletes index.html if present.
func (s *LocalReportStore) RemoveIndex(dir m.Path) error {
	err := os.Remove(filepath.Join(string(dir), IndexFileName))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	return nil
}

type packageGroup struct {
	Kind m.PackageKind
	Rows []m.PackageRow
}

type indexPage struct {
	Summary       *m.RunSummary
	Title         string
	Keywords      string
	Description   string
	Styles        template.CSS
	SameName      bool
	BinaryRate    string
	SourceRate    string
	PackageGroups []packageGroup
	Columns       int
	ToolVersion   string
}

// RenderIndex renders the HTML summary page for a run.
func RenderIndex(summary *m.RunSummary, toolVersion string) ([]byte, error) {
	page := indexPage{
		Summary:     summary,
		Styles:      template.CSS(reportStyles), //nolint:gosec // embedded stylesheet.
		SameName:    summary.Old.Name == summary.New.Name,
		Columns:     4,
		ToolVersion: toolVersion,
	}

	oldName, newName := summary.Old.Name, summary.New.Name
	oldVer, newVer := summary.Old.Version, summary.New.Version

	if page.SameName {
		page.Title = fmt.Sprintf("%s: API/ABI report between %s and %s versions", oldName, oldVer, newVer)
		page.Keywords = oldName + ", API, ABI, changes, compatibility, report"
		page.Description = fmt.Sprintf("API/ABI compatibility report between %s and %s versions of the %s", oldVer, newVer, oldName)
	} else {
		page.Title = fmt.Sprintf("API/ABI report between %s-%s and %s-%s packages", oldName, oldVer, newName, newVer)
		page.Keywords = oldName + ", " + newName + ", API, ABI, changes, compatibility, report"
		page.Description = fmt.Sprintf("API/ABI compatibility report between %s-%s and %s-%s packages", oldName, oldVer, newName, newVer)
	}

	if summary.Mode.Both() {
		page.Columns = 5
	}

	if summary.Meta.BCEffective != nil {
		page.BinaryRate = string(*summary.Meta.BCEffective)
	}

	if summary.Meta.SourceBC != nil {
		page.SourceRate = string(*summary.Meta.SourceBC)
	}

	for _, row := range summary.Packages {
		n := len(page.PackageGroups)
		if n == 0 || page.PackageGroups[n-1].Kind != row.Kind {
			page.PackageGroups = append(page.PackageGroups, packageGroup{Kind: row.Kind})
			n++
		}

		page.PackageGroups[n-1].Rows = append(page.PackageGroups[n-1].Rows, row)
	}

	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, page); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", IndexFileName, err)
	}

	return buf.Bytes(), nil
}

func writeReportFile(path string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}

	//nolint:gosec // G306: reports are meant to be shared.
	return os.WriteFile(path, content, 0o644)
}

func seq(n int) []int {
	return make([]int, n)
}

func primaryCell(row m.ObjectRow) *m.RateCell {
	if row.Binary != nil {
		return row.Binary
	}

	return row.Source
}
