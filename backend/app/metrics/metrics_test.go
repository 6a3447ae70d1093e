package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerExposesCollectors(t *testing.T) {
	ObservePush("ECU-T", "Completed", 2*time.Second)
	ObserveUpload("ECU-T", 42)
	ObserveRequest("GET", "", 200, time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	out := string(body)
	assert.Contains(t, out, `fota_push_jobs_total{state="Completed",target="ECU-T"} 1`)
	assert.Contains(t, out, "fota_inventory_upload_bytes_total 42")
	assert.Contains(t, out, `route="unmatched"`)

	// second registration is a no-op
	assert.NotPanics(t, Register)
}
