package repo

import (
	"os"
	"strings"
	"testing"

	"fota-manager/backend/app/apperr"
	"fota-manager/backend/app/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialRepository(t *testing.T) {
	r := NewCredentialRepository(t.TempDir())

	ok, err := r.Exists()
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = r.List()
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, r.Append(models.Credential{UserID: "x", Password: "y"}), apperr.ErrNotFound)

	require.NoError(t, r.Create(models.Credential{UserID: "admin", Password: "secret"}))
	assert.ErrorIs(t, r.Create(), apperr.ErrAlreadyExists)

	require.NoError(t, r.Append(models.Credential{UserID: "alice", Password: "pw1"}))
	require.NoError(t, r.Append(models.Credential{UserID: "alice", Password: "pw2"}))

	b, err := os.ReadFile(r.Path())
	require.NoError(t, err)
	assert.Equal(t, "UserID,Password\nadmin,secret\nalice,pw1\nalice,pw2\n", string(b))

	rows, err := r.List()
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	c, err := r.FindByUserID("alice")
	require.NoError(t, err)
	assert.Equal(t, "pw1", c.Password)

	_, err = r.FindByUserID("bob")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.True(t, strings.HasSuffix(r.Path(), CredentialFile))
}
