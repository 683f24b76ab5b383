// Package pinning uploads event assets and metadata documents to IPFS
// through Pinata's pinning API.
package pinning

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/paxr/paxr-gateway/shared/config"
	"github.com/paxr/paxr-gateway/shared/metrics"
)

// PinResult is Pinata's pin response
type PinResult struct {
	CID       string `json:"IpfsHash"`
	Size      int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

// Client provides minimal operations against Pinata's pinning API using
// JWT bearer authentication.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	gatewayBase string
	authHeader  string
	metrics     *metrics.Metrics
}

// Option configures a Client
type Option func(*Client)

// WithMetrics attaches upload instrumentation
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithHTTPClient overrides the transport, for tests
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a Pinata client from config
func NewClient(cfg config.PinataConfig, opts ...Option) *Client {
	jwt := strings.TrimSpace(cfg.JWTKey)
	var authHeader string
	if jwt != "" {
		if !strings.HasPrefix(strings.ToLower(jwt), "bearer ") {
			authHeader = "Bearer " + jwt
		} else {
			authHeader = jwt
		}
	}
	c := &Client{
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		gatewayBase: strings.TrimRight(cfg.GatewayURL, "/"),
		authHeader:  authHeader,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PinFile streams a file to pinFileToIPFS and returns the resulting CID.
// The stored name gets a timestamp suffix so repeat uploads stay distinct.
func (c *Client) PinFile(ctx context.Context, r io.Reader, name string) (PinResult, error) {
	var res PinResult
	if r == nil {
		return res, errors.New("reader is nil")
	}
	if name == "" {
		name = "file"
	}

	ext := filepath.Ext(name)
	baseName := strings.TrimSuffix(name, ext)
	uniqueName := fmt.Sprintf("%s_%s%s", baseName, time.Now().Format("20060102_150405"), ext)

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		defer pw.Close()
		defer mw.Close()

		fw, err := mw.CreateFormFile("file", filepath.Base(uniqueName))
		if err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(fw, r); err != nil {
			_ = pw.CloseWithError(err)
			return
		}

		meta, _ := json.Marshal(map[string]string{"name": uniqueName})
		_ = mw.WriteField("pinataMetadata", string(meta))
	}()

	err := c.post(ctx, "/pinning/pinFileToIPFS", pr, mw.FormDataContentType(), &res)
	c.count("file", err)
	return res, err
}

// PinJSON pins an arbitrary document via pinJSONToIPFS
func (c *Client) PinJSON(ctx context.Context, v any, name string) (PinResult, error) {
	var res PinResult

	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return res, err
	}

	payload := map[string]any{
		"pinataContent": json.RawMessage(bytes.TrimSpace(buf.Bytes())),
	}
	if name != "" {
		payload["pinataMetadata"] = map[string]string{"name": name}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return res, err
	}

	err = c.post(ctx, "/pinning/pinJSONToIPFS", bytes.NewReader(body), "application/json", &res)
	c.count("json", err)
	return res, err
}

// Unpin removes a CID from Pinata
func (c *Client) Unpin(ctx context.Context, cid string) error {
	if strings.TrimSpace(cid) == "" {
		return errors.New("cid is required")
	}
	endpoint := c.baseURL + "/pinning/unpin/" + url.PathEscape(cid)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}
	c.applyAuth(req)
	httpRes, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer httpRes.Body.Close()
	if httpRes.StatusCode < 200 || httpRes.StatusCode >= 300 {
		b, _ := io.ReadAll(httpRes.Body)
		return fmt.Errorf("pinata: unpin failed: %s: %s", httpRes.Status, strings.TrimSpace(string(b)))
	}
	return nil
}

// GatewayURL resolves a stored URI to something fetchable over HTTP. CIDs
// and ipfs:// URIs map onto the configured gateway; http(s) URIs pass
// through untouched.
func (c *Client) GatewayURL(uri string) string {
	if uri == "" {
		return ""
	}
	if strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://") {
		return uri
	}
	cid := strings.TrimPrefix(uri, "ipfs://")
	return c.gatewayBase + "/ipfs/" + cid
}

func (c *Client) post(ctx context.Context, path string, body io.Reader, contentType string, out *PinResult) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	c.applyAuth(req)

	httpRes, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer httpRes.Body.Close()

	if httpRes.StatusCode < 200 || httpRes.StatusCode >= 300 {
		b, _ := io.ReadAll(httpRes.Body)
		return fmt.Errorf("pinata: %s failed: %s: %s", path, httpRes.Status, strings.TrimSpace(string(b)))
	}

	return json.NewDecoder(httpRes.Body).Decode(out)
}

func (c *Client) applyAuth(req *http.Request) {
	if c.authHeader != "" {
		req.Header.Set("Authorization", c.authHeader)
	}
}

func (c *Client) count(kind string, err error) {
	if c.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.metrics.PinUploadsTotal.WithLabelValues(kind, outcome).Inc()
}
