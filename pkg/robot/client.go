package robot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	localizationPath = "/lokarria/localization"
	drivePath        = "/lokarria/differentialdrive"
)

// CommunicationError is returned when the robot answers with an unexpected
// HTTP status.
type CommunicationError struct {
	Op     string
	Status int
	Body   string
}

func (e *CommunicationError) Error() string {
	msg := fmt.Sprintf("%s: unexpected status %d", e.Op, e.Status)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// IsCommunicationError reports whether err (or its cause) is a CommunicationError.
func IsCommunicationError(err error) bool {
	var ce *CommunicationError
	return errors.As(err, &ce)
}

// ClientConfig holds connection settings for the robot.
type ClientConfig struct {
	URL string
	// Timeout bounds each round-trip. Zero means no timeout.
	Timeout time.Duration
}

// Client talks to a robot over the Lokarria HTTP API.
type Client struct {
	base *url.URL
	http *http.Client
}

// NewClient creates a client for the robot at cfg.URL. A bare host:port is
// treated as plain HTTP.
func NewClient(cfg ClientConfig) (*Client, error) {
	raw := strings.TrimSpace(cfg.URL)
	if raw == "" {
		return nil, errors.New("robot url is empty")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "parse robot url %q", cfg.URL)
	}
	if base.Host == "" {
		return nil, errors.Errorf("robot url %q has no host", cfg.URL)
	}
	base.Path = strings.TrimSuffix(base.Path, "/")

	return &Client{
		base: base,
		http: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// URL returns the base URL of the robot.
func (c *Client) URL() string {
	return c.base.String()
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// Pose reads the current pose from the localization endpoint.
func (c *Client) Pose(ctx context.Context) (Pose, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(localizationPath), nil)
	if err != nil {
		return Pose{}, errors.Wrap(err, "build localization request")
	}
	req.Header.Set("Accept", "text/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Pose{}, errors.Wrap(err, "get pose")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Pose{}, newCommunicationError("get pose", resp)
	}

	var doc LocalizationDoc
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return Pose{}, errors.Wrap(err, "decode pose")
	}
	return doc.ToPose(), nil
}

// Drive posts a differential drive command. The robot acknowledges with
// 204 No Content.
func (c *Client) Drive(ctx context.Context, angular, linear float64) error {
	body, err := json.Marshal(driveDoc{TargetAngularSpeed: angular, TargetLinearSpeed: linear})
	if err != nil {
		return errors.Wrap(err, "encode drive command")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(drivePath), bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "build drive request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "post speed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return newCommunicationError("post speed", resp)
	}
	return nil
}

func (c *Client) endpoint(p string) string {
	u := *c.base
	u.Path += p
	return u.String()
}

func newCommunicationError(op string, resp *http.Response) error {
	// Keep a short excerpt of the body for diagnostics.
	excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
	return errors.WithStack(&CommunicationError{
		Op:     op,
		Status: resp.StatusCode,
		Body:   strings.TrimSpace(string(excerpt)),
	})
}
