package blob

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"
	"github.com/sethvargo/go-retry"

	"github.com/lustra-ai/lustra/pkg/logger"
)

const defaultSASExpiry = 15 * time.Minute

// Client uploads normalized images to the blob store and fetches stored
// artifacts by opaque reference. It satisfies the extractor's Fetcher.
type Client struct {
	http      *resty.Client
	signer    *Signer
	endpoint  string
	container string
	sasExpiry time.Duration
}

// ClientConfig bundles what the client needs from runtime config.
type ClientConfig struct {
	Endpoint   string
	Container  string
	AccountKey string
	SASExpiry  time.Duration
}

func NewClient(cfg ClientConfig) *Client {
	expiry := cfg.SASExpiry
	if expiry <= 0 {
		expiry = defaultSASExpiry
	}
	return &Client{
		http:      resty.New(),
		signer:    NewSigner(cfg.AccountKey),
		endpoint:  cfg.Endpoint,
		container: cfg.Container,
		sasExpiry: expiry,
	}
}

// Upload sniffs and validates the payload as an image, then PUTs it
// behind a signed URL. Writes are retried with fibonacci backoff on
// network errors and 5xx responses; 4xx responses fail immediately.
func (c *Client) Upload(ctx context.Context, name string, r io.Reader) (string, error) {
	log := logger.FromContext(ctx)

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read upload payload: %w", err)
	}
	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return "", fmt.Errorf("unsupported upload type %s (only images are accepted)", mtype.String())
	}

	url := c.signer.SignURL(c.endpoint, http.MethodPut, c.container, name, PermWrite, time.Now().Add(c.sasExpiry))
	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(200*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		resp, err := c.http.R().
			SetContext(ctx).
			SetHeader("Content-Type", mtype.String()).
			SetBody(data).
			Put(url)
		if err != nil {
			return retry.RetryableError(err)
		}
		if resp.StatusCode() >= http.StatusInternalServerError {
			return retry.RetryableError(fmt.Errorf("blob store returned status %d", resp.StatusCode()))
		}
		if resp.IsError() {
			return fmt.Errorf("blob upload rejected (status %d)", resp.StatusCode())
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", name, err)
	}

	ref := FormatRef(c.container, name)
	log.Debug("blob uploaded", "ref", ref, "content_type", mtype.String(), "size", len(data))
	return ref, nil
}

// Fetch resolves a blob reference through a signed read and returns the
// payload as base64 plus its content type.
func (c *Client) Fetch(ctx context.Context, ref string) (string, string, error) {
	container, name, err := ParseRef(ref)
	if err != nil {
		return "", "", err
	}

	url := c.signer.SignURL(c.endpoint, http.MethodGet, container, name, PermRead, time.Now().Add(c.sasExpiry))
	resp, err := c.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return "", "", fmt.Errorf("failed to fetch %s: %w", ref, err)
	}
	if resp.IsError() {
		return "", "", fmt.Errorf("blob fetch failed for %s (status %d)", ref, resp.StatusCode())
	}

	body := resp.Body()
	contentType := resp.Header().Get("Content-Type")
	if contentType == "" {
		contentType = mimetype.Detect(body).String()
	}
	return base64.StdEncoding.EncodeToString(body), contentType, nil
}
