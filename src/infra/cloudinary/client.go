package cloudinary

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"florencia/src/domain"
)

const DefaultBaseURL = "https://api.cloudinary.com"

type Config struct {
	BaseURL       string
	CloudName     string
	UploadPreset  string
	RatePerSecond float64
	Burst         int
	Timeout       time.Duration
}

// Client é o Media Uploader: envia a imagem com upload unsigned e devolve a URL pública segura.
type Client struct {
	config     Config
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func NewClient(config Config, logger *slog.Logger) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	limit := rate.Inf
	if config.RatePerSecond > 0 {
		limit = rate.Limit(config.RatePerSecond)
	}
	if config.Burst <= 0 {
		config.Burst = 1
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		limiter:    rate.NewLimiter(limit, config.Burst),
		logger:     logger,
	}
}

func (c *Client) uploadURL() string {
	return fmt.Sprintf("%s/v1_1/%s/image/upload", strings.TrimRight(c.config.BaseURL, "/"), c.config.CloudName)
}

func (c *Client) Upload(ctx context.Context, image domain.Image) (string, error) {
	if len(image.Data) == 0 {
		return "", &domain.MediaUploadError{Reason: "empty image"}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", &domain.MediaUploadError{Reason: "upload throttled", Err: err}
	}

	body, contentType, err := c.buildForm(image)
	if err != nil {
		return "", &domain.MediaUploadError{Reason: "failed to build upload form", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL(), body)
	if err != nil {
		return "", &domain.MediaUploadError{Reason: "failed to create request", Err: err}
	}
	req.Header.Set("Content-Type", contentType)

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("media upload request failed", "cloud_name", c.config.CloudName, "error", err)
		return "", &domain.MediaUploadError{Reason: "request failed", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &domain.MediaUploadError{Reason: "failed to read response", Err: err}
	}

	var result uploadResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		c.logger.Error("media upload returned an invalid body", "status", resp.StatusCode, "error", err)
		return "", &domain.MediaUploadError{Reason: fmt.Sprintf("unexpected response (status %d)", resp.StatusCode), Err: err}
	}

	// o provedor sinaliza sucesso só pela presença de secure_url
	if result.SecureURL == "" {
		reason := "upload failed"
		if result.Error != nil && result.Error.Message != "" {
			reason = result.Error.Message
		}
		c.logger.Warn("media upload rejected", "status", resp.StatusCode, "reason", reason)
		return "", &domain.MediaUploadError{Reason: reason, Err: errors.New(resp.Status)}
	}

	c.logger.Info("media uploaded", "public_id", result.PublicID, "duration_ms", time.Since(started).Milliseconds())
	return result.SecureURL, nil
}

func (c *Client) buildForm(image domain.Image) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	fileName := image.FileName
	if fileName == "" {
		fileName = "image.jpg"
	}
	contentType := image.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(fileName)))
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(image.Data); err != nil {
		return nil, "", err
	}

	if err := writer.WriteField("upload_preset", c.config.UploadPreset); err != nil {
		return nil, "", err
	}
	if err := writer.WriteField("cloud_name", c.config.CloudName); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return body, writer.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
