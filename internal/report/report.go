// Package report exports a user's ledger into a Google spreadsheet copied from
// a shared template.
package report

import "context"

// DefaultFileName is used when a copy request carries no name.
const DefaultFileName = "Copied Report"

// Drive roles granted to the report owner.
const (
	RoleReader = "reader"
	RoleWriter = "writer"
)

type (
	CopyRequest struct {
		TemplateID string
		FileName   string
		OwnerEmail string
		FolderID   string // optional
	}

	CopiedFile struct {
		FileID  string `json:"id"`
		Name    string `json:"name"`
		FileURL string `json:"fileUrl"`
	}

	File struct {
		ID           string `json:"id"`
		Name         string `json:"name"`
		MimeType     string `json:"mimeType"`
		ModifiedTime string `json:"modifiedTime,omitempty"`
	}

	Sheet struct {
		SheetID int64  `json:"sheetId"`
		Title   string `json:"title"`
		Index   int64  `json:"index"`
	}

	Spreadsheet struct {
		SpreadsheetID string  `json:"spreadsheetId"`
		Title         string  `json:"title"`
		Locale        string  `json:"locale,omitempty"`
		TimeZone      string  `json:"timeZone,omitempty"`
		Sheets        []Sheet `json:"sheets"`
	}

	UpdateResult struct {
		SpreadsheetID string `json:"spreadsheetId"`
		UpdatedRange  string `json:"updatedRange"`
		UpdatedRows   int64  `json:"updatedRows"`
		UpdatedCells  int64  `json:"updatedCells"`
	}
)

// Gateway is a Drive and Sheets client bound to one caller. Provider failures
// wrap core.ErrInvalidRequest, core.ErrPermission, core.ErrNotFound or
// core.ErrTransport.
type Gateway interface {
	// CopyTemplate grants OwnerEmail read access on the template, copies it and
	// grants OwnerEmail write access on the copy. A failure after the copy
	// leaves the copy in place.
	CopyTemplate(ctx context.Context, req CopyRequest) (CopiedFile, error)
	// UpdateCell overwrites rng with a single value, interpreted as typed.
	UpdateCell(ctx context.Context, spreadsheetID, rng string, value any) error
	UpdateValues(ctx context.Context, spreadsheetID, rng string, values [][]any) (UpdateResult, error)
	GetFile(ctx context.Context, fileID string) (File, error)
	// ListFiles returns at most ListPageSize files.
	ListFiles(ctx context.Context) ([]File, error)
	GetSpreadsheet(ctx context.Context, spreadsheetID string) (Spreadsheet, error)
	// GetOrCreateFolder returns the id of the named folder, creating it under
	// parentID (or the root when empty) if absent.
	GetOrCreateFolder(ctx context.Context, name, parentID string) (string, error)
}

// ListPageSize bounds ListFiles.
const ListPageSize = 10

// GatewayFactory builds a Gateway for a delegated user token. An empty token
// yields a gateway acting only with the service credential.
type GatewayFactory interface {
	ForUser(ctx context.Context, accessToken string) (Gateway, error)
}
