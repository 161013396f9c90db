// Package memory is an in-process report gateway. It keeps copied files and
// written cells in maps so the export flow can run without Google.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"cashbook/internal/core"
	"cashbook/internal/report"
)

const (
	spreadsheetMime = "application/vnd.google-apps.spreadsheet"
	folderMime      = "application/vnd.google-apps.folder"
)

// Grant is one recorded permission.
type Grant struct {
	FileID string
	Role   string
	Email  string
}

// Drive is the shared fake. Every gateway it hands out sees the same files.
type Drive struct {
	mu     sync.Mutex
	files  map[string]report.File
	parent map[string]string
	cells  map[string]any
	grants []Grant
	tokens []string
	nextID int

	// Err, when set, is returned by every call.
	Err error
}

func NewDrive(templates ...string) *Drive {
	d := &Drive{
		files:  make(map[string]report.File),
		parent: make(map[string]string),
		cells:  make(map[string]any),
	}
	for _, id := range templates {
		d.files[id] = report.File{ID: id, Name: id, MimeType: spreadsheetMime}
	}
	return d
}

func (d *Drive) ForUser(_ context.Context, accessToken string) (report.Gateway, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tokens = append(d.tokens, accessToken)
	return &gateway{drive: d, token: accessToken}, nil
}

// Cell returns what was last written to rng of spreadsheetID.
func (d *Drive) Cell(spreadsheetID, rng string) (any, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.cells[spreadsheetID+"|"+rng]
	return v, ok
}

func (d *Drive) Grants() []Grant {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Grant(nil), d.grants...)
}

// Tokens lists the access tokens gateways were built with, in order.
func (d *Drive) Tokens() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.tokens...)
}

func (d *Drive) id(prefix string) string {
	d.nextID++
	return fmt.Sprintf("%s-%d", prefix, d.nextID)
}

type gateway struct {
	drive *Drive
	token string
}

func (g *gateway) CopyTemplate(_ context.Context, req report.CopyRequest) (report.CopiedFile, error) {
	d := g.drive
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return report.CopiedFile{}, d.Err
	}
	if _, ok := d.files[req.TemplateID]; !ok {
		return report.CopiedFile{}, fmt.Errorf("template %s: %w", req.TemplateID, core.ErrNotFound)
	}
	name := req.FileName
	if name == "" {
		name = report.DefaultFileName
	}

	d.grants = append(d.grants, Grant{FileID: req.TemplateID, Role: report.RoleReader, Email: req.OwnerEmail})
	id := d.id("copy")
	d.files[id] = report.File{ID: id, Name: name, MimeType: spreadsheetMime}
	d.parent[id] = req.FolderID
	d.grants = append(d.grants, Grant{FileID: id, Role: report.RoleWriter, Email: req.OwnerEmail})

	return report.CopiedFile{
		FileID:  id,
		Name:    name,
		FileURL: "https://docs.google.com/spreadsheets/d/" + id + "/edit",
	}, nil
}

func (g *gateway) UpdateCell(ctx context.Context, spreadsheetID, rng string, value any) error {
	_, err := g.UpdateValues(ctx, spreadsheetID, rng, [][]any{{value}})
	return err
}

func (g *gateway) UpdateValues(_ context.Context, spreadsheetID, rng string, values [][]any) (report.UpdateResult, error) {
	d := g.drive
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return report.UpdateResult{}, d.Err
	}
	if _, ok := d.files[spreadsheetID]; !ok {
		return report.UpdateResult{}, fmt.Errorf("spreadsheet %s: %w", spreadsheetID, core.ErrNotFound)
	}
	var cells int64
	for _, row := range values {
		cells += int64(len(row))
	}
	if len(values) == 1 && len(values[0]) == 1 {
		d.cells[spreadsheetID+"|"+rng] = values[0][0]
	} else {
		d.cells[spreadsheetID+"|"+rng] = values
	}
	return report.UpdateResult{
		SpreadsheetID: spreadsheetID,
		UpdatedRange:  rng,
		UpdatedRows:   int64(len(values)),
		UpdatedCells:  cells,
	}, nil
}

func (g *gateway) GetFile(_ context.Context, fileID string) (report.File, error) {
	d := g.drive
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return report.File{}, d.Err
	}
	f, ok := d.files[fileID]
	if !ok {
		return report.File{}, fmt.Errorf("file %s: %w", fileID, core.ErrNotFound)
	}
	return f, nil
}

func (g *gateway) ListFiles(context.Context) ([]report.File, error) {
	d := g.drive
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return nil, d.Err
	}
	out := make([]report.File, 0, len(d.files))
	for _, f := range d.files {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > report.ListPageSize {
		out = out[:report.ListPageSize]
	}
	return out, nil
}

func (g *gateway) GetSpreadsheet(_ context.Context, spreadsheetID string) (report.Spreadsheet, error) {
	d := g.drive
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return report.Spreadsheet{}, d.Err
	}
	f, ok := d.files[spreadsheetID]
	if !ok || f.MimeType != spreadsheetMime {
		return report.Spreadsheet{}, fmt.Errorf("spreadsheet %s: %w", spreadsheetID, core.ErrNotFound)
	}
	return report.Spreadsheet{
		SpreadsheetID: f.ID,
		Title:         f.Name,
		Sheets:        []report.Sheet{{SheetID: 0, Title: "Sheet1", Index: 0}},
	}, nil
}

func (g *gateway) GetOrCreateFolder(_ context.Context, name, parentID string) (string, error) {
	d := g.drive
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return "", d.Err
	}
	for id, f := range d.files {
		if f.MimeType == folderMime && f.Name == name && d.parent[id] == parentID {
			return id, nil
		}
	}
	id := d.id("folder")
	d.files[id] = report.File{ID: id, Name: name, MimeType: folderMime}
	d.parent[id] = parentID
	return id, nil
}

// Parent returns the folder a file was created in.
func (d *Drive) Parent(fileID string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.parent[fileID]
}
