package repo

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"fota-manager/backend/app/apperr"
	"fota-manager/backend/app/models"
)

type FirmwareRepository struct {
	layout *Layout
}

func NewFirmwareRepository(layout *Layout) *FirmwareRepository {
	return &FirmwareRepository{layout: layout}
}

func (r *FirmwareRepository) Layout() *Layout { return r.layout }

// ListTargetTypes returns the target directories under the root, sorted.
// A missing root yields an empty list.
func (r *FirmwareRepository) ListTargetTypes() ([]string, error) {
	names, err := listDirs(r.layout.Root)
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, apperr.Internal("list target types", err)
	}
	sort.Strings(names)
	return names, nil
}

func (r *FirmwareRepository) TargetExists(target string) (bool, error) {
	return isDir(r.layout.TargetDir(target))
}

// ListVersions returns the version folders of target in version order.
func (r *FirmwareRepository) ListVersions(target string) ([]string, error) {
	names, err := listDirs(r.layout.TargetDir(target))
	if errors.Is(err, os.ErrNotExist) {
		return nil, apperr.NotFound("list versions", "target type %q not found", target)
	}
	if err != nil {
		return nil, apperr.Internal("list versions", err)
	}
	SortVersions(names)
	return names, nil
}

func (r *FirmwareRepository) VersionExists(target, version string) (bool, error) {
	return isDir(r.layout.VersionDir(target, version))
}

// CreateTarget makes the target directory. It fails if it already exists.
func (r *FirmwareRepository) CreateTarget(target string) error {
	if err := os.MkdirAll(r.layout.Root, 0o755); err != nil {
		return apperr.Internal("create target", err)
	}
	if err := os.Mkdir(r.layout.TargetDir(target), 0o755); err != nil {
		if errors.Is(err, os.ErrExist) {
			return apperr.AlreadyExists("create target", "target type %q already exists", target)
		}
		return apperr.Internal("create target", err)
	}
	return nil
}

// RemoveTarget deletes a target tree. Only used to roll back a failed create.
func (r *FirmwareRepository) RemoveTarget(target string) error {
	return os.RemoveAll(r.layout.TargetDir(target))
}

// StoreBinary creates the version folder and writes the binary into it.
// The version folder doubles as the uniqueness guard for (target, version).
func (r *FirmwareRepository) StoreBinary(target, version, fileName string, src io.Reader) (*models.FirmwareBinary, error) {
	ok, err := r.TargetExists(target)
	if err != nil {
		return nil, apperr.Internal("store binary", err)
	}
	if !ok {
		return nil, apperr.NotFound("store binary", "target type %q not found", target)
	}
	dir := r.layout.VersionDir(target, version)
	if err := os.Mkdir(dir, 0o755); err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, apperr.AlreadyExists("store binary", "version %q already exists for %q", version, target)
		}
		return nil, apperr.Internal("store binary", err)
	}
	bin, err := writeBinary(dir, fileName, src)
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, apperr.Internal("store binary", err)
	}
	bin.TargetType = target
	bin.Version = version
	return bin, nil
}

// Binary describes the stored binary of (target, version).
func (r *FirmwareRepository) Binary(target, version string) (*models.FirmwareBinary, error) {
	dir := r.layout.VersionDir(target, version)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, apperr.NotFound("binary", "version %q not found for %q", version, target)
	}
	if err != nil {
		return nil, apperr.Internal("binary", err)
	}
	for _, e := range entries {
		if !e.Type().IsRegular() || isTempName(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		info, err := e.Info()
		if err != nil {
			return nil, apperr.Internal("binary", err)
		}
		sum, err := fileSHA256(path)
		if err != nil {
			return nil, apperr.Internal("binary", err)
		}
		return &models.FirmwareBinary{
			TargetType: target,
			Version:    version,
			FileName:   e.Name(),
			Path:       path,
			Size:       info.Size(),
			SHA256:     sum,
			CreatedAt:  info.ModTime(),
		}, nil
	}
	return nil, apperr.NotFound("binary", "no binary stored for %q %q", target, version)
}

func writeBinary(dir, fileName string, src io.Reader) (*models.FirmwareBinary, error) {
	final := filepath.Join(dir, fileName)
	tmp, err := os.CreateTemp(dir, "."+fileName+".*.part")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(tmp, h), src)
	if err != nil {
		_ = tmp.Close()
		return nil, fmt.Errorf("write binary: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		return nil, fmt.Errorf("finalize binary: %w", err)
	}
	info, err := os.Stat(final)
	if err != nil {
		return nil, err
	}
	return &models.FirmwareBinary{
		FileName:  fileName,
		Path:      final,
		Size:      n,
		SHA256:    hex.EncodeToString(h.Sum(nil)),
		CreatedAt: info.ModTime(),
	}, nil
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func listDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

func isDir(path string) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}

func isTempName(name string) bool {
	return strings.HasPrefix(name, ".") && (strings.HasSuffix(name, ".part") || strings.HasSuffix(name, ".tmp"))
}
