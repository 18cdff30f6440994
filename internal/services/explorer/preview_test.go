package explorer_test

import (
	"testing"

	"github.com/3Eeeecho/supfile/internal/services/explorer"
	"github.com/stretchr/testify/assert"
)

func TestPreviewType(t *testing.T) {
	cases := map[string]string{
		"image/png":                 explorer.PreviewImage,
		"IMAGE/JPEG":                explorer.PreviewImage,
		"video/mp4":                 explorer.PreviewVideo,
		"audio/mpeg":                explorer.PreviewAudio,
		"application/pdf":           explorer.PreviewPDF,
		"text/plain; charset=utf-8": explorer.PreviewText,
		"application/json":          explorer.PreviewText,
		"application/zip":           explorer.PreviewNone,
		"":                          explorer.PreviewNone,
	}
	for mime, want := range cases {
		assert.Equal(t, want, explorer.PreviewType(mime), mime)
	}
}
