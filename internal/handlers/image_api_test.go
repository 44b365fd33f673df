package handlers_test

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"emuhub/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// uploadRequest builds a multipart POST /upload with one file part. A raw
// CreatePart is needed because CreateFormFile pins application/octet-stream.
func uploadRequest(t *testing.T, field, filename, contentType string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
		header.Set("Content-Type", contentType)
		part, err := mw.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestImageUploadAPI(t *testing.T) {
	engine := newServer(t)
	t.Setenv("IMGUR_CLIENT_ID", "")

	t.Run("anonymous is rejected", func(t *testing.T) {
		c := newClient(t, engine)
		w := c.doRequest(uploadRequest(t, "image", "shot.png", "image/png", []byte("png")))
		requireError(t, w, http.StatusUnauthorized, "authentication_required")
	})

	c := newClient(t, engine)
	c.login(testutil.CreateUser(t))

	t.Run("file part is required", func(t *testing.T) {
		w := c.doRequest(uploadRequest(t, "", "", "", nil))
		requireError(t, w, http.StatusBadRequest, "validation")
	})

	t.Run("only images", func(t *testing.T) {
		w := c.doRequest(uploadRequest(t, "image", "notes.txt", "text/plain", []byte("hello")))
		requireError(t, w, http.StatusBadRequest, "validation")
	})

	t.Run("size cap", func(t *testing.T) {
		big := bytes.Repeat([]byte("a"), 10*1024*1024+1)
		w := c.doRequest(uploadRequest(t, "image", "huge.png", "image/png", big))
		requireError(t, w, http.StatusBadRequest, "validation")
	})

	t.Run("unconfigured backend", func(t *testing.T) {
		w := c.doRequest(uploadRequest(t, "image", "shot.png", "image/png", []byte("png")))
		requireError(t, w, http.StatusInternalServerError, "internal")
	})
}

func TestImageProxyHotlinkBlock(t *testing.T) {
	engine := newServer(t)
	c := newClient(t, engine)

	req := httptest.NewRequest("GET", "/img/abc123.png", nil)
	req.Header.Set("Sec-Fetch-Site", "cross-site")
	req.Header.Set("Sec-Fetch-Mode", "no-cors")
	w := c.doRequest(req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/svg+xml", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "Image hosted for EmuHub")
}
