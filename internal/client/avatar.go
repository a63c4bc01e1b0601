package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"

	"github.com/eventflow/eventflow/internal/models"
)

// UploadAvatar sends an image as the caller's avatar and returns the updated profile.
func (s *Store) UploadAvatar(ctx context.Context, filename string, r io.Reader) (*models.Profile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read avatar: %w", err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(filename)))
	hdr.Set("Content-Type", http.DetectContentType(data))
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return nil, fmt.Errorf("build avatar form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("build avatar form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("build avatar form: %w", err)
	}

	raw, err := s.api.send(ctx, http.MethodPost, "/profiles/me/avatar", mw.FormDataContentType(), &buf)
	if err != nil {
		return nil, err
	}
	var out models.Profile
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode avatar response: %w", err)
	}
	return &out, nil
}
