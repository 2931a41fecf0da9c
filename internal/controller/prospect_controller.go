package controller

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wech4801-eng/mirror-frame-forge/internal/csvdetect"
	appErrors "github.com/wech4801-eng/mirror-frame-forge/internal/errors"
	"github.com/wech4801-eng/mirror-frame-forge/internal/model"
	"github.com/wech4801-eng/mirror-frame-forge/internal/service"
)

// maxUploadBytes caps CSV imports and logo uploads.
const maxUploadBytes = 10 << 20

type ProspectController struct {
	ProspectService *service.ProspectService
	Logger          *zap.Logger
}

func (c *ProspectController) List(w http.ResponseWriter, r *http.Request) {
	groupID, err := queryID(r, "group_id")
	if err != nil {
		writeError(w, c.Logger, err)
		return
	}
	q := r.URL.Query()
	f := model.ProspectFilter{
		UserID:  UserID(r.Context()),
		Search:  strings.TrimSpace(q.Get("search")),
		Status:  q.Get("status"),
		GroupID: groupID,
	}
	prospects, p, err := c.ProspectService.List(r.Context(), f, pageRequest(r))
	if err != nil {
		writeError(w, c.Logger, err)
		return
	}
	writeList(w, prospects, p)
}

func (c *ProspectController) Create(w http.ResponseWriter, r *http.Request) {
	var in service.ProspectInput
	if err := decode(r, &in); err != nil {
		writeError(w, c.Logger, err)
		return
	}
	p, err := c.ProspectService.Create(r.Context(), UserID(r.Context()), in)
	if err != nil {
		writeError(w, c.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (c *ProspectController) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, c.Logger, err)
		return
	}
	p, err := c.ProspectService.Get(r.Context(), UserID(r.Context()), id)
	if err != nil {
		writeError(w, c.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (c *ProspectController) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, c.Logger, err)
		return
	}
	var in service.ProspectInput
	if err := decode(r, &in); err != nil {
		writeError(w, c.Logger, err)
		return
	}
	p, err := c.ProspectService.Update(r.Context(), UserID(r.Context()), id, in)
	if err != nil {
		writeError(w, c.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (c *ProspectController) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, c.Logger, err)
		return
	}
	if err := c.ProspectService.Delete(r.Context(), UserID(r.Context()), id); err != nil {
		writeError(w, c.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *ProspectController) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var body idsBody
	if err := decode(r, &body); err != nil {
		writeError(w, c.Logger, err)
		return
	}
	n, err := c.ProspectService.BulkDelete(r.Context(), UserID(r.Context()), body.IDs)
	if err != nil {
		writeError(w, c.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

func (c *ProspectController) SetGroups(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, c.Logger, err)
		return
	}
	var body struct {
		GroupIDs []uuid.UUID `json:"group_ids"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, c.Logger, err)
		return
	}
	p, err := c.ProspectService.SetGroups(r.Context(), UserID(r.Context()), id, body.GroupIDs)
	if err != nil {
		writeError(w, c.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (c *ProspectController) PreviewImport(w http.ResponseWriter, r *http.Request) {
	raw, _, err := readUpload(r, "file")
	if err != nil {
		writeError(w, c.Logger, err)
		return
	}
	res, err := c.ProspectService.PreviewImport(raw)
	if err != nil {
		writeError(w, c.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Import takes a multipart form with the CSV in "file", an optional JSON
// column "mapping" and an optional "group_id".
func (c *ProspectController) Import(w http.ResponseWriter, r *http.Request) {
	raw, form, err := readUpload(r, "file")
	if err != nil {
		writeError(w, c.Logger, err)
		return
	}
	var mapping *csvdetect.Mapping
	if s := form.Get("mapping"); s != "" {
		m := csvdetect.UnknownMapping()
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			writeError(w, c.Logger, appErrors.Validation("invalid mapping: %v", err))
			return
		}
		mapping = &m
	}
	var groupID *uuid.UUID
	if s := form.Get("group_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			writeError(w, c.Logger, appErrors.Validation("invalid group_id %q", s))
			return
		}
		groupID = &id
	}

	res, err := c.ProspectService.Import(r.Context(), UserID(r.Context()), raw, mapping, groupID)
	if err != nil {
		writeError(w, c.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type formValues map[string][]string

func (f formValues) Get(key string) string {
	if v := f[key]; len(v) > 0 {
		return strings.TrimSpace(v[0])
	}
	return ""
}

// readUpload returns the bytes of the multipart file field, or the raw
// body for non-multipart requests, along with any other form values.
func readUpload(r *http.Request, field string) ([]byte, formValues, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxUploadBytes)
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, nil, appErrors.Validation("could not read upload: %v", err)
		}
		return raw, formValues{}, nil
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, nil, appErrors.Validation("invalid multipart form: %v", err)
	}
	file, _, err := r.FormFile(field)
	if err != nil {
		return nil, nil, appErrors.Validation("missing %q file", field)
	}
	defer file.Close()
	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, nil, appErrors.Validation("could not read upload: %v", err)
	}
	return raw, formValues(r.MultipartForm.Value), nil
}

// uploadFile opens the multipart file field for streaming consumers.
func uploadFile(r *http.Request, field string) (multipart.File, *multipart.FileHeader, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, nil, appErrors.Validation("invalid multipart form: %v", err)
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, nil, appErrors.Validation("missing %q file", field)
	}
	return file, header, nil
}
