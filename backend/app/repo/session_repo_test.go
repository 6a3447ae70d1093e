package repo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionEncoding(t *testing.T) {
	meta := SessionMeta{ID: "abc", UserID: "alice", IsAdmin: true, CreatedAt: time.Unix(1700000000, 0).UTC()}
	b, err := encodeSession(meta)
	require.NoError(t, err)

	got, err := decodeSession(b)
	require.NoError(t, err)
	assert.Equal(t, meta, *got)
	assert.Equal(t, "fota:session:abc", sessionKey("abc"))

	_, err = encodeSession(SessionMeta{})
	assert.Error(t, err)
	_, err = decodeSession([]byte(`{"user_id":"x"}`))
	assert.Error(t, err)
	_, err = decodeSession([]byte(`not json`))
	assert.Error(t, err)
}
