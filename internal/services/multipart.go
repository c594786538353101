package services

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"
	"path/filepath"
	"strconv"

	"github.com/pathum-vimukthi/bookvault/internal/models"
)

// encodeBookFields writes fields as multipart/form-data and returns the body and its content type.
//
// pagesTotal and pagesRead are only sent when set; image only when attached.
func encodeBookFields(fields models.BookFields) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	values := [][2]string{
		{"title", fields.Title},
		{"author", fields.Author},
		{"description", fields.Description},
	}
	if fields.PagesTotal != nil {
		values = append(values, [2]string{"pagesTotal", strconv.Itoa(*fields.PagesTotal)})
	}
	if fields.PagesRead != nil {
		values = append(values, [2]string{"pagesRead", strconv.Itoa(*fields.PagesRead)})
	}

	for _, kv := range values {
		if err := w.WriteField(kv[0], kv[1]); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", kv[0], err)
		}
	}

	if img := fields.Image; img != nil && img.Reader != nil {
		name := filepath.Base(img.Filename)
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, name))
		ct := mime.TypeByExtension(filepath.Ext(name))
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)

		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create image part: %w", err)
		}
		if _, err := io.Copy(part, img.Reader); err != nil {
			return nil, "", fmt.Errorf("failed to copy image: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish multipart body: %w", err)
	}
	return buf, w.FormDataContentType(), nil
}
