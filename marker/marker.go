// Package marker reports recorded sessions to a stress-monitoring server
// as time markers.
package marker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/kataras/golog"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DateLayout is the server's timestamp format.
const DateLayout = "02.01.2006 15:04:05.000000"

const defaultTimeout = 10 * time.Second

// ErrStatus is returned when the server answers with a non-2xx status.
var ErrStatus = errors.New("marker: unexpected status")

// Payload is the marker body.
type Payload struct {
	DateBegin  string `json:"date_begin"`
	DateEnd    string `json:"date_end"`
	Num        int    `json:"num"`
	Notes      string `json:"notes"`
	Username   string `json:"username"`
	PersonNick string `json:"personnick"`
}

// Session is one recording to report.
type Session struct {
	Begin time.Time
	End   time.Time
	Num   int
	Notes string
}

// Client posts markers. A Client with an empty URL is disabled.
type Client struct {
	URL      string
	Username string
	Person   string

	HTTP   *http.Client
	Logger *golog.Logger
}

// Enabled reports whether a marker endpoint is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.URL != ""
}

// NewPayload builds the marker body for s.
func (c *Client) NewPayload(s Session) Payload {
	return Payload{
		DateBegin:  s.Begin.Format(DateLayout),
		DateEnd:    s.End.Format(DateLayout),
		Num:        s.Num,
		Notes:      s.Notes,
		Username:   c.Username,
		PersonNick: c.Person,
	}
}

// Send posts the marker for s. It does nothing when the client is
// disabled.
func (c *Client) Send(ctx context.Context, s Session) error {
	if !c.Enabled() {
		return nil
	}
	logger := c.Logger
	if logger == nil {
		logger = golog.Default
	}

	body, err := json.Marshal(c.NewPayload(s))
	if err != nil {
		return fmt.Errorf("marker: encode: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("marker: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := c.HTTP
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		logger.Errorf("marker post failed url=%s: %v", c.URL, err)
		return fmt.Errorf("marker: post: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Errorf("marker rejected url=%s status=%d", c.URL, resp.StatusCode)
		return fmt.Errorf("%w: %s", ErrStatus, resp.Status)
	}

	logger.Infof("marker sent url=%s num=%d begin=%s end=%s", c.URL, s.Num, s.Begin.Format(DateLayout), s.End.Format(DateLayout))
	return nil
}
