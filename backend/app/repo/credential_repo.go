package repo

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"

	"fota-manager/backend/app/apperr"
	"fota-manager/backend/app/models"
)

const CredentialFile = "auth_data.csv"

var CredentialHeader = []string{"UserID", "Password"}

type CredentialRepository struct{ path string }

func NewCredentialRepository(authRoot string) *CredentialRepository {
	return &CredentialRepository{path: filepath.Join(authRoot, CredentialFile)}
}

func (r *CredentialRepository) Path() string { return r.path }

func (r *CredentialRepository) Exists() (bool, error) {
	_, err := os.Stat(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

// Create writes a new credential file holding the header and rows. It fails
// with AlreadyExists when the file is present.
func (r *CredentialRepository) Create(rows ...models.Credential) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o700); err != nil {
		return apperr.Internal("create credentials", err)
	}
	f, err := os.OpenFile(r.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return apperr.AlreadyExists("create credentials", "credential file already exists")
		}
		return apperr.Internal("create credentials", err)
	}
	w := csv.NewWriter(f)
	_ = w.Write(CredentialHeader)
	for _, c := range rows {
		_ = w.Write([]string{c.UserID, c.Password})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return apperr.Internal("create credentials", err)
	}
	return apperr.Internal("create credentials", f.Close())
}

func (r *CredentialRepository) Append(c models.Credential) error {
	f, err := os.OpenFile(r.path, os.O_WRONLY|os.O_APPEND, 0o600)
	if errors.Is(err, os.ErrNotExist) {
		return apperr.NotFound("append credential", "credential file not found")
	}
	if err != nil {
		return apperr.Internal("append credential", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write([]string{c.UserID, c.Password}); err != nil {
		_ = f.Close()
		return apperr.Internal("append credential", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return apperr.Internal("append credential", err)
	}
	return apperr.Internal("append credential", f.Close())
}

// List returns every credential row in file order.
func (r *CredentialRepository) List() ([]models.Credential, error) {
	f, err := os.Open(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, apperr.NotFound("list credentials", "credential file not found")
	}
	if err != nil {
		return nil, apperr.Internal("list credentials", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, apperr.Internal("list credentials", err)
	}
	var out []models.Credential
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperr.Internal("list credentials", err)
		}
		if len(row) < 2 {
			continue
		}
		out = append(out, models.Credential{UserID: row[0], Password: row[1]})
	}
	return out, nil
}

// FindByUserID returns the first row for userID.
func (r *CredentialRepository) FindByUserID(userID string) (*models.Credential, error) {
	rows, err := r.List()
	if err != nil {
		return nil, err
	}
	for i := range rows {
		if rows[i].UserID == userID {
			return &rows[i], nil
		}
	}
	return nil, apperr.NotFound("find credential", "user %q not found", userID)
}
