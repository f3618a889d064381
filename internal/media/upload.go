// Package media proxies admin image uploads to a Cloudinary-compatible API.
package media

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-mithai/internal/common"
	"github.com/noah-isme/backend-mithai/internal/obs"
)

var (
	ErrNotConfigured = errors.New("media upload not configured")
	ErrTooLarge      = errors.New("file too large")
	ErrUnsupported   = errors.New("unsupported file type")
)

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// Doer sends outbound requests. resilience.HTTPClient satisfies it.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Asset describes a stored image.
type Asset struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId"`
	Format   string `json:"format,omitempty"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	Bytes    int64  `json:"bytes"`
}

// Uploader signs and forwards uploads.
type Uploader struct {
	HTTP      Doer
	URL       string
	APIKey    string
	APISecret string
	Folder    string
	MaxBytes  int64
	Now       func() time.Time
	Logger    zerolog.Logger
}

// Configured reports whether credentials and endpoint are set.
func (u *Uploader) Configured() bool {
	return u != nil && u.HTTP != nil && u.URL != "" && u.APIKey != "" && u.APISecret != ""
}

func (u *Uploader) maxBytes() int64 {
	if u.MaxBytes > 0 {
		return u.MaxBytes
	}
	return 5 << 20
}

func (u *Uploader) now() time.Time {
	if u.Now != nil {
		return u.Now()
	}
	return time.Now()
}

// Upload validates the image and stores it upstream.
func (u *Uploader) Upload(ctx context.Context, filename string, r io.Reader) (asset Asset, err error) {
	if !u.Configured() {
		return Asset{}, common.NewAppError("MEDIA_UNAVAILABLE", "media upload is not configured", http.StatusServiceUnavailable, ErrNotConfigured)
	}
	data, err := io.ReadAll(io.LimitReader(r, u.maxBytes()+1))
	if err != nil {
		return Asset{}, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > u.maxBytes() {
		return Asset{}, common.NewAppError("PAYLOAD_TOO_LARGE", fmt.Sprintf("file exceeds %d bytes", u.maxBytes()), http.StatusRequestEntityTooLarge, ErrTooLarge)
	}
	if len(data) == 0 {
		return Asset{}, common.ValidationError("file is empty", map[string]any{"field": "file"})
	}
	contentType := http.DetectContentType(data)
	ext, ok := allowedTypes[contentType]
	if !ok {
		appErr := common.ValidationError("only jpeg, png, webp and gif images are accepted", map[string]any{"field": "file", "detected": contentType})
		appErr.Err = ErrUnsupported
		return Asset{}, appErr
	}

	start := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		obs.Observe(obs.MediaUploadLatency, float64(time.Since(start).Milliseconds()), result)
	}()

	params := map[string]string{
		"folder":    u.Folder,
		"timestamp": strconv.FormatInt(u.now().Unix(), 10),
	}
	params["signature"] = Sign(params, u.APISecret)
	params["api_key"] = u.APIKey

	body, contentTypeHeader, err := multipartBody(params, safeName(filename, ext), contentType, data)
	if err != nil {
		return Asset{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.URL, body)
	if err != nil {
		return Asset{}, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentTypeHeader)

	resp, err := u.HTTP.Do(ctx, req)
	if err != nil {
		u.Logger.Error().Err(err).Msg("media upload failed")
		return Asset{}, common.NewAppError("UPSTREAM_ERROR", "media service unavailable", http.StatusBadGateway, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Asset{}, fmt.Errorf("read upload response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		u.Logger.Error().Int("status", resp.StatusCode).Str("body", string(raw)).Msg("media upload rejected")
		return Asset{}, common.NewAppError("UPSTREAM_ERROR", "media service rejected the upload", http.StatusBadGateway, fmt.Errorf("upload status %d", resp.StatusCode))
	}
	var out struct {
		SecureURL string `json:"secure_url"`
		URL       string `json:"url"`
		PublicID  string `json:"public_id"`
		Format    string `json:"format"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
		Bytes     int64  `json:"bytes"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return Asset{}, fmt.Errorf("decode upload response: %w", err)
	}
	asset = Asset{URL: out.SecureURL, PublicID: out.PublicID, Format: out.Format, Width: out.Width, Height: out.Height, Bytes: out.Bytes}
	if asset.URL == "" {
		asset.URL = out.URL
	}
	if asset.Bytes == 0 {
		asset.Bytes = int64(len(data))
	}
	u.Logger.Info().Str("public_id", asset.PublicID).Int64("bytes", asset.Bytes).Msg("media uploaded")
	return asset, nil
}

// Sign computes the upload signature: the SHA-1 hex digest of the non-empty
// parameters sorted by name, joined as k=v with '&', followed by the secret.
func Sign(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v == "" || k == "file" || k == "api_key" || k == "signature" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+params[k])
	}
	sum := sha1.Sum([]byte(strings.Join(parts, "&") + secret))
	return hex.EncodeToString(sum[:])
}

func multipartBody(params map[string]string, filename, contentType string, data []byte) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if params[k] == "" {
			continue
		}
		if err := mw.WriteField(k, params[k]); err != nil {
			return nil, "", err
		}
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

func safeName(filename, ext string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	base = strings.TrimSuffix(base, path.Ext(base))
	var b strings.Builder
	for _, r := range strings.ToLower(base) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '.':
			b.WriteRune('-')
		}
	}
	name := strings.Trim(b.String(), "-")
	if name == "" {
		name = "upload"
	}
	return name + ext
}
