// Package google implements the report gateway on Google Drive v3 and
// Sheets v4.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"cashbook/internal/core"
	"cashbook/internal/report"
)

const folderMimeType = "application/vnd.google-apps.folder"

// Config describes how to reach Google.
type Config struct {
	// ServiceAccountJSON is the service key used for permission grants and
	// copies made without a user token. Application default credentials are
	// used when empty and Endpoint is not set.
	ServiceAccountJSON []byte
	// Endpoint overrides the API root of both services.
	Endpoint string
	// HTTPClient is the base transport. http.DefaultClient when nil.
	HTTPClient *http.Client
}

// Factory holds the service-side clients and builds per-user gateways.
type Factory struct {
	cfg           Config
	serviceDrive  *drive.Service
	serviceSheets *sheets.Service
}

var _ report.GatewayFactory = (*Factory)(nil)

// NewFactory creates the service-side Drive and Sheets clients.
func NewFactory(ctx context.Context, cfg Config) (*Factory, error) {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}

	var opts []option.ClientOption
	switch {
	case len(cfg.ServiceAccountJSON) > 0:
		opts = append(opts,
			option.WithCredentialsJSON(cfg.ServiceAccountJSON),
			option.WithScopes(drive.DriveScope, sheets.SpreadsheetsScope))
	case cfg.Endpoint != "":
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	default:
		opts = append(opts, option.WithScopes(drive.DriveScope, sheets.SpreadsheetsScope))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	d, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	s, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google report services ready",
		"service_account", len(cfg.ServiceAccountJSON) > 0,
		"custom_endpoint", cfg.Endpoint != "")
	return &Factory{cfg: cfg, serviceDrive: d, serviceSheets: s}, nil
}

// ForUser returns a gateway acting with accessToken. The token is not
// validated here; Google rejects it on first use.
func (f *Factory) ForUser(ctx context.Context, accessToken string) (report.Gateway, error) {
	c := &Client{
		serviceDrive:  f.serviceDrive,
		serviceSheets: f.serviceSheets,
	}
	if accessToken == "" {
		c.drive, c.sheets = f.serviceDrive, f.serviceSheets
		return c, nil
	}

	base := context.WithValue(ctx, oauth2.HTTPClient, f.cfg.HTTPClient)
	hc := oauth2.NewClient(base, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))
	opts := []option.ClientOption{option.WithHTTPClient(hc)}
	if f.cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(f.cfg.Endpoint))
	}

	var err error
	if c.drive, err = drive.NewService(ctx, opts...); err != nil {
		return nil, fmt.Errorf("create user drive service: %w", err)
	}
	if c.sheets, err = sheets.NewService(ctx, opts...); err != nil {
		return nil, fmt.Errorf("create user sheets service: %w", err)
	}
	c.hasUser = true
	return c, nil
}

// Client is a report.Gateway bound to one user.
type Client struct {
	drive   *drive.Service
	sheets  *sheets.Service
	hasUser bool

	serviceDrive  *drive.Service
	serviceSheets *sheets.Service
}

var _ report.Gateway = (*Client)(nil)

func (c *Client) CopyTemplate(ctx context.Context, req report.CopyRequest) (report.CopiedFile, error) {
	if req.TemplateID == "" {
		return report.CopiedFile{}, fmt.Errorf("%w: source file id required", core.ErrInvalidRequest)
	}
	if req.OwnerEmail == "" {
		return report.CopiedFile{}, fmt.Errorf("%w: owner email required", core.ErrInvalidRequest)
	}
	name := req.FileName
	if name == "" {
		name = report.DefaultFileName
	}

	if err := c.grant(ctx, req.TemplateID, report.RoleReader, req.OwnerEmail); err != nil {
		return report.CopiedFile{}, fmt.Errorf("share template %s: %w", req.TemplateID, err)
	}

	file := &drive.File{Name: name}
	if req.FolderID != "" {
		file.Parents = []string{req.FolderID}
	}
	copied, err := c.drive.Files.Copy(req.TemplateID, file).
		Fields("id", "name", "webViewLink").
		SupportsAllDrives(true).
		Context(ctx).Do()
	if err != nil {
		return report.CopiedFile{}, fmt.Errorf("copy template %s: %w", req.TemplateID, mapError(err))
	}

	slog.InfoContext(ctx, "Report template copied",
		"template_id", req.TemplateID,
		"file_id", copied.Id,
		"as_user", c.hasUser)

	if err := c.grant(ctx, copied.Id, report.RoleWriter, req.OwnerEmail); err != nil {
		slog.WarnContext(ctx, "Copied report left without owner access",
			"file_id", copied.Id,
			"email", req.OwnerEmail,
			"error", err)
		return report.CopiedFile{}, fmt.Errorf("share copy %s: %w", copied.Id, err)
	}

	url := copied.WebViewLink
	if url == "" {
		url = "https://docs.google.com/spreadsheets/d/" + copied.Id + "/edit"
	}
	return report.CopiedFile{FileID: copied.Id, Name: copied.Name, FileURL: url}, nil
}

func (c *Client) grant(ctx context.Context, fileID, role, email string) error {
	_, err := c.serviceDrive.Permissions.Create(fileID, &drive.Permission{
		Role:         role,
		Type:         "user",
		EmailAddress: email,
	}).SendNotificationEmail(false).SupportsAllDrives(true).Context(ctx).Do()
	if err != nil {
		return mapError(err)
	}
	return nil
}

func (c *Client) UpdateCell(ctx context.Context, spreadsheetID, rng string, value any) error {
	_, err := c.UpdateValues(ctx, spreadsheetID, rng, [][]any{{value}})
	return err
}

func (c *Client) UpdateValues(ctx context.Context, spreadsheetID, rng string, values [][]any) (report.UpdateResult, error) {
	resp, err := c.sheets.Spreadsheets.Values.Update(spreadsheetID, rng, &sheets.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return report.UpdateResult{}, fmt.Errorf("update %s in %s: %w", rng, spreadsheetID, mapError(err))
	}
	return report.UpdateResult{
		SpreadsheetID: resp.SpreadsheetId,
		UpdatedRange:  resp.UpdatedRange,
		UpdatedRows:   resp.UpdatedRows,
		UpdatedCells:  resp.UpdatedCells,
	}, nil
}

func (c *Client) GetFile(ctx context.Context, fileID string) (report.File, error) {
	f, err := c.drive.Files.Get(fileID).
		Fields("id", "name", "mimeType", "modifiedTime").
		SupportsAllDrives(true).
		Context(ctx).Do()
	if err != nil {
		return report.File{}, fmt.Errorf("get file %s: %w", fileID, mapError(err))
	}
	return toFile(f), nil
}

func (c *Client) ListFiles(ctx context.Context) ([]report.File, error) {
	resp, err := c.drive.Files.List().
		PageSize(report.ListPageSize).
		Fields("files(id,name,mimeType,modifiedTime)").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("list files: %w", mapError(err))
	}
	out := make([]report.File, 0, len(resp.Files))
	for _, f := range resp.Files {
		out = append(out, toFile(f))
	}
	return out, nil
}

func (c *Client) GetSpreadsheet(ctx context.Context, spreadsheetID string) (report.Spreadsheet, error) {
	s, err := c.sheets.Spreadsheets.Get(spreadsheetID).
		Fields("spreadsheetId", "properties", "sheets").
		Context(ctx).Do()
	if err != nil {
		return report.Spreadsheet{}, fmt.Errorf("get spreadsheet %s: %w", spreadsheetID, mapError(err))
	}

	out := report.Spreadsheet{SpreadsheetID: s.SpreadsheetId}
	if out.SpreadsheetID == "" {
		out.SpreadsheetID = spreadsheetID
	}
	if p := s.Properties; p != nil {
		out.Title, out.Locale, out.TimeZone = p.Title, p.Locale, p.TimeZone
	}
	for _, sh := range s.Sheets {
		if sh.Properties == nil {
			continue
		}
		out.Sheets = append(out.Sheets, report.Sheet{
			SheetID: sh.Properties.SheetId,
			Title:   sh.Properties.Title,
			Index:   sh.Properties.Index,
		})
	}
	return out, nil
}

func (c *Client) GetOrCreateFolder(ctx context.Context, name, parentID string) (string, error) {
	q := fmt.Sprintf("mimeType='%s' and name='%s' and trashed=false", folderMimeType, escapeQuery(name))
	if parentID != "" {
		q += fmt.Sprintf(" and '%s' in parents", escapeQuery(parentID))
	}
	found, err := c.drive.Files.List().Q(q).PageSize(1).Fields("files(id,name)").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("find folder %q: %w", name, mapError(err))
	}
	if len(found.Files) > 0 {
		return found.Files[0].Id, nil
	}

	folder := &drive.File{Name: name, MimeType: folderMimeType}
	if parentID != "" {
		folder.Parents = []string{parentID}
	}
	created, err := c.drive.Files.Create(folder).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("create folder %q: %w", name, mapError(err))
	}
	slog.InfoContext(ctx, "Report folder created", "folder_id", created.Id, "name", name)
	return created.Id, nil
}

func toFile(f *drive.File) report.File {
	return report.File{ID: f.Id, Name: f.Name, MimeType: f.MimeType, ModifiedTime: f.ModifiedTime}
}

func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

// mapError folds Google API status codes into the core error categories.
func mapError(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return fmt.Errorf("%w: %v", core.ErrTransport, err)
	}
	switch gerr.Code {
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %v", core.ErrInvalidRequest, err)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %v", core.ErrPermission, err)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %v", core.ErrNotFound, err)
	}
	return fmt.Errorf("%w: %v", core.ErrTransport, err)
}
