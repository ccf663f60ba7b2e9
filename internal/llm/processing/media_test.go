package processing_test

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nulzo/bifrost/internal/llm/processing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessDataURI(t *testing.T) {
	img, err := processing.ProcessImageURL("data:image/png;base64,aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MediaType)
	assert.Equal(t, "aGVsbG8=", img.Data)
}

func TestProcessDataURIRejectsNonBase64(t *testing.T) {
	_, err := processing.ProcessImageURL("data:image/png,rawbytes")
	assert.Error(t, err)
}

func TestProcessDataURIMalformed(t *testing.T) {
	_, err := processing.ProcessImageURL("data:image/png;base64")
	assert.Error(t, err)
}

func TestProcessRemoteImage(t *testing.T) {
	payload := []byte{0x89, 0x50, 0x4e, 0x47}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	img, err := processing.ProcessImageURL(server.URL + "/cat.png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MediaType)
	assert.Equal(t, base64.StdEncoding.EncodeToString(payload), img.Data)
}

func TestProcessRemoteImageErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := processing.ProcessImageURL(server.URL + "/missing.png")
	assert.Error(t, err)
}
