// Package generator is the HTTP client for the interior design generation
// service: a multipart POST to /generate and image reads from /images.
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"InteriorEditor/pkg/logger"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is where the generation service listens by default.
	DefaultBaseURL = "http://localhost:8000"
	// DefaultTimeout bounds one generation request.
	DefaultTimeout = 5 * time.Minute

	generatePath = "generate"
	imagesPath   = "images"

	// maxResponseBytes caps JSON answers; images use maxImageBytes.
	maxResponseBytes = 1 << 20
	maxImageBytes    = 64 << 20
)

// Upload is the binary part of a generation request.
type Upload struct {
	Name        string
	Data        []byte
	ContentType string
}

// Request is one call to /generate. Upload is nil in create mode.
type Request struct {
	ID     string
	Prompt string
	Upload *Upload
}

// Result is a successful generation.
type Result struct {
	RequestID string
	ImagePath string
	Duration  time.Duration
}

// Client talks to one generation service.
type Client struct {
	baseURL    *url.URL
	token      string
	timeout    time.Duration
	httpClient *http.Client
}

// NewClient returns a client for baseURL. A zero timeout means DefaultTimeout;
// token, when set, is sent as a bearer credential.
func NewClient(baseURL, token string, timeout time.Duration) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: missing host", baseURL)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		baseURL:    u,
		token:      token,
		timeout:    timeout,
		httpClient: &http.Client{},
	}, nil
}

// BaseURL returns the service root without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Timeout returns the per-request generation timeout.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

func (c *Client) endpoint(elem ...string) *url.URL {
	return c.baseURL.JoinPath(elem...)
}

// Generate posts the prompt (and the upload, if any) to /generate and returns
// the image path reported by the server.
func (c *Client) Generate(ctx context.Context, req Request) (*Result, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	body, contentType, err := encodeForm(req)
	if err != nil {
		return nil, fmt.Errorf("build form: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(generatePath).String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", req.ID)
	c.authorize(httpReq)

	logger.Debug("posting generation request",
		zap.String("request_id", req.ID),
		zap.String("url", httpReq.URL.String()),
		zap.Int("prompt_len", len(req.Prompt)),
		zap.Bool("with_image", req.Upload != nil),
	)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, transportError(fmt.Errorf("read response: %w", err))
	}

	result, err := decodeResult(resp, raw)
	if err != nil {
		return nil, err
	}
	result.RequestID = req.ID
	result.Duration = time.Since(start)
	return result, nil
}

// decodeResult maps a /generate response onto a Result or an *Error.
func decodeResult(resp *http.Response, raw []byte) (*Result, error) {
	serverMsg := serverMessage(raw)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if serverMsg != "" {
			return nil, &Error{Kind: KindServer, StatusCode: resp.StatusCode, Message: serverMsg}
		}
		return nil, &Error{Kind: KindStatus, StatusCode: resp.StatusCode, Message: statusText(resp)}
	}

	var payload struct {
		ImagePath string `json:"image_path"`
	}
	_ = json.Unmarshal(raw, &payload)
	if strings.TrimSpace(payload.ImagePath) != "" {
		return &Result{ImagePath: payload.ImagePath}, nil
	}
	if serverMsg != "" {
		return nil, &Error{Kind: KindServer, StatusCode: resp.StatusCode, Message: serverMsg}
	}
	return nil, &Error{Kind: KindResponse, StatusCode: resp.StatusCode, Message: MissingImagePathMessage}
}

// encodeForm writes the multipart body: "prompt" always, "file" only when an
// upload is present.
func encodeForm(req Request) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("prompt", req.Prompt); err != nil {
		return nil, "", err
	}

	if up := req.Upload; up != nil {
		contentType := up.ContentType
		if contentType == "" {
			contentType = mimetype.Detect(up.Data).String()
		}
		name := up.Name
		if name == "" {
			name = "upload" + mimetype.Detect(up.Data).Extension()
		}

		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(name)))
		h.Set("Content-Type", contentType)

		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(up.Data); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// ImageURL builds the display URL for a generated image: only the final path
// segment of imagePath is used, and stamp defeats client-side caching.
func (c *Client) ImageURL(imagePath string, stamp int64) string {
	u := c.endpoint(imagesPath, lastSegment(imagePath))
	q := url.Values{}
	q.Set("t", strconv.FormatInt(stamp, 10))
	u.RawQuery = q.Encode()
	return u.String()
}

func lastSegment(p string) string {
	p = strings.TrimRight(strings.ReplaceAll(p, "\\", "/"), "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}

// Download fetches a generated image and stores it in dir, returning the
// written path.
func (c *Client) Download(ctx context.Context, imageURL, dir string) (string, error) {
	u, err := url.Parse(imageURL)
	if err != nil {
		return "", fmt.Errorf("invalid image URL %q: %w", imageURL, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	c.authorize(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &Error{Kind: KindStatus, StatusCode: resp.StatusCode, Message: statusText(resp)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return "", transportError(fmt.Errorf("read image: %w", err))
	}

	name := lastSegment(u.Path)
	if name == "" || name == imagesPath {
		name = "generated"
	}
	if filepath.Ext(name) == "" {
		name += mimetype.Detect(data).Extension()
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	dest := filepath.Join(dir, name)
	if err := os.WriteFile(dest, data, 0644); err != nil {
		return "", fmt.Errorf("save image: %w", err)
	}

	logger.Info("image saved", zap.String("path", dest), zap.Int("bytes", len(data)))
	return dest, nil
}

// Ping asks the service root whether it is up and returns its greeting.
func (c *Client) Ping(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint().String()+"/", nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	c.authorize(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", transportError(err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &Error{Kind: KindStatus, StatusCode: resp.StatusCode, Message: statusText(resp)}
	}

	var payload struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &payload) == nil && payload.Message != "" {
		return payload.Message, nil
	}
	return strings.TrimSpace(string(raw)), nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
