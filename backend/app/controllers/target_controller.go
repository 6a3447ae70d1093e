package controllers

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"

	"fota-manager/backend/app/apperr"
	"fota-manager/backend/app/dto"
	"fota-manager/backend/app/middleware"
	"fota-manager/backend/app/models"
	"fota-manager/backend/app/services"
)

// maxUploadBytes bounds one firmware upload request.
const maxUploadBytes = 256 << 20

type TargetController struct {
	Inventory *services.InventoryService
	Sessions  *services.SessionService
}

func NewTargetController(inventory *services.InventoryService, sessions *services.SessionService) *TargetController {
	return &TargetController{Inventory: inventory, Sessions: sessions}
}

func (c *TargetController) List(w http.ResponseWriter, r *http.Request) {
	targets, err := c.Inventory.ListTargetTypes()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.TargetListResponse{Targets: targets})
}

// Create registers a target type from a multipart form: name, version, file.
func (c *TargetController) Create(w http.ResponseWriter, r *http.Request) {
	c.upload(w, r, dto.FormName, func(target, version, name string, src io.Reader) (*models.FirmwareBinary, error) {
		return c.Inventory.CreateTargetType(target, version, name, src)
	})
}

// AddVersion stores a new firmware version: target, version, file.
func (c *TargetController) AddVersion(w http.ResponseWriter, r *http.Request) {
	c.upload(w, r, dto.FormTarget, func(target, version, name string, src io.Reader) (*models.FirmwareBinary, error) {
		return c.Inventory.AddFirmwareVersion(target, version, name, src)
	})
}

func (c *TargetController) Versions(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("target")
	sess := middleware.GetSession(r.Context())
	if sess != nil {
		if cached, ok := sess.CachedVersions(target); ok {
			writeJSON(w, http.StatusOK, dto.VersionListResponse{Target: target, Versions: cached, Cached: true})
			return
		}
	}
	versions, err := c.Inventory.ListFirmwareVersions(target)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if sess != nil {
		sess.CacheVersions(target, versions)
	}
	writeJSON(w, http.StatusOK, dto.VersionListResponse{Target: target, Versions: versions})
}

func (c *TargetController) Binary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	bin, err := c.Inventory.BinaryInfo(q.Get("target"), q.Get("version"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bin)
}

func (c *TargetController) upload(w http.ResponseWriter, r *http.Request, targetField string,
	store func(target, version, name string, src io.Reader) (*models.FirmwareBinary, error)) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		writeError(w, r, apperr.Validation("upload", "invalid multipart form"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	target := r.FormValue(targetField)
	version := r.FormValue(dto.FormVersion)
	file, header, err := r.FormFile(dto.FormFile)
	if err != nil {
		writeError(w, r, apperr.Validation("upload", "missing firmware file"))
		return
	}
	defer file.Close()

	bin, err := store(target, version, filepath.Base(header.Filename), file)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c.Sessions.InvalidateVersions(target)
	logf(r, "stored %s %s (%s, %d bytes)", target, version, bin.FileName, bin.Size)
	writeJSON(w, http.StatusCreated, bin)
}
