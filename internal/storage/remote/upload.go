package remote

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// ErrUploadFailed is returned when the upload service rejects a file.
var ErrUploadFailed = errors.New("upload failed")

// MaxUploadSize caps the size of a single uploaded image.
const MaxUploadSize = 10 << 20

// UploadClient stores product images on the upload service.
type UploadClient struct {
	baseURL string
	http    *http.Client
}

// NewUploadClient returns an UploadClient for the service at baseURL.
func NewUploadClient(baseURL string, client *http.Client) *UploadClient {
	return &UploadClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    client,
	}
}

// UploadImage sends the file as the multipart field "image" and returns the
// public URL the service assigned.
func (c *UploadClient) UploadImage(ctx context.Context, filename string, r io.Reader) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return "", errors.Wrap(err, "create form file")
	}
	n, err := io.Copy(part, io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		return "", errors.Wrap(err, "copy file")
	}
	if n > MaxUploadSize {
		return "", errors.Wrapf(ErrUploadFailed, "%s exceeds %d bytes", filename, MaxUploadSize)
	}
	if err := mw.Close(); err != nil {
		return "", errors.Wrap(err, "close multipart")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/uploads/image", &body)
	if err != nil {
		return "", errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "post upload")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", errors.Wrapf(ErrUploadFailed, "status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return "", errors.Wrap(err, "read response")
	}
	var url string
	if err := jx.DecodeBytes(raw).ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != "url" || d.Next() != jx.String {
			return d.Skip()
		}
		s, err := d.Str()
		if err != nil {
			return err
		}
		url = s
		return nil
	}); err != nil {
		return "", errors.Wrap(err, "decode response")
	}
	if url == "" {
		return "", errors.Wrap(ErrUploadFailed, "no url in response")
	}
	return url, nil
}
