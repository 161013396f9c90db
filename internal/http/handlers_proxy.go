package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"cashbook/internal/auth"
	"cashbook/internal/report"
)

type googleTokenKey struct{}

// googleToken finds the caller's delegated Google token in the Authorization
// header or, failing that, in the JSON body's accessToken field. The body is
// left readable for the handler. When required is set a request without a
// token is answered with 401.
func googleToken(required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.BearerToken(r)
			if token == "" && r.Body != nil && r.Body != http.NoBody {
				body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
				if err != nil {
					WriteError(w, http.StatusBadRequest, "request body too large")
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
				var probe struct {
					AccessToken string `json:"accessToken"`
				}
				if json.Unmarshal(body, &probe) == nil {
					token = probe.AccessToken
				}
			}
			if token == "" && required {
				WriteError(w, http.StatusUnauthorized, "Access token required")
				return
			}
			ctx := context.WithValue(r.Context(), googleTokenKey{}, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// pathParam returns the unescaped route parameter, so that ranges such as
// Sheet1%21J5 arrive as Sheet1!J5.
func pathParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}

// gateway builds the report gateway for the request's token.
func (s *Server) gateway(w http.ResponseWriter, r *http.Request, failure proxyFailure) (report.Gateway, bool) {
	if s.gateways == nil {
		WriteError(w, http.StatusServiceUnavailable, "Google services are not configured")
		return nil, false
	}
	token, _ := r.Context().Value(googleTokenKey{}).(string)
	gw, err := s.gateways.ForUser(r.Context(), token)
	if err != nil {
		failure.write(w, r, err)
		return nil, false
	}
	return gw, true
}

func (s *Server) handleCopyFile(w http.ResponseWriter, r *http.Request) {
	if s.templateID == "" {
		WriteError(w, http.StatusBadRequest, "Source file ID required")
		return
	}
	var req copyFileRequest
	if !bind(w, r, &req, http.StatusBadRequest) {
		return
	}
	gw, ok := s.gateway(w, r, copyFailure)
	if !ok {
		return
	}
	copied, err := gw.CopyTemplate(r.Context(), report.CopyRequest{
		TemplateID: s.templateID,
		FileName:   req.FileName,
		OwnerEmail: req.Email,
		FolderID:   req.DestinationFolderID,
	})
	if err != nil {
		copyFailure.write(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, copied)
}

func (s *Server) handleUpdateValues(w http.ResponseWriter, r *http.Request) {
	var req updateValuesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid values format")
		return
	}
	rows, err := req.rows()
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid values format")
		return
	}
	gw, ok := s.gateway(w, r, updateFailure)
	if !ok {
		return
	}
	res, err := gw.UpdateValues(r.Context(), pathParam(r, "fileId"), pathParam(r, "range"), rows)
	if err != nil {
		updateFailure.write(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	gw, ok := s.gateway(w, r, getFileFailure)
	if !ok {
		return
	}
	f, err := gw.GetFile(r.Context(), pathParam(r, "fileId"))
	if err != nil {
		getFileFailure.write(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, f)
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	gw, ok := s.gateway(w, r, listFilesFailure)
	if !ok {
		return
	}
	files, err := gw.ListFiles(r.Context())
	if err != nil {
		listFilesFailure.write(w, r, err)
		return
	}
	if files == nil {
		files = []report.File{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"files": files})
}

func (s *Server) handleGetSpreadsheet(w http.ResponseWriter, r *http.Request) {
	gw, ok := s.gateway(w, r, getSheetFailure)
	if !ok {
		return
	}
	sheet, err := gw.GetSpreadsheet(r.Context(), pathParam(r, "fileId"))
	if err != nil {
		getSheetFailure.write(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, sheet)
}
