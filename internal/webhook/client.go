package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"quicktable/internal/models"
	"quicktable/internal/worker"
)

const DefaultSource = models.DefaultWebhookSource

// Payload is the reservation flattened together with forwarding metadata.
type Payload struct {
	models.Reservation
	RestaurantName string `json:"restaurantName"`
	Source         string `json:"source"`
	Event          string `json:"event"`
	Timestamp      string `json:"timestamp"`
}

// Client posts reservation snapshots to a spreadsheet-style webhook.
type Client struct {
	url        string
	source     string
	httpClient *http.Client
	now        func() time.Time
}

func NewClient(url, source string, timeout time.Duration) *Client {
	if source == "" {
		source = DefaultSource
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		url:        url,
		source:     source,
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
}

func (c *Client) Name() string { return "webhook" }

func (c *Client) Deliver(ctx context.Context, kind string, snap worker.Snapshot) error {
	return c.Send(ctx, kind, &snap.Reservation, snap.RestaurantName)
}

// Send POSTs the reservation. Any non-2xx response is an error so the
// worker retries it.
func (c *Client) Send(ctx context.Context, kind string, r *models.Reservation, restaurantName string) error {
	if c.url == "" {
		return errors.New("webhook url is not configured")
	}

	body, err := json.Marshal(Payload{
		Reservation:    *r,
		RestaurantName: restaurantName,
		Source:         c.source,
		Event:          kind,
		Timestamp:      c.now().UTC().Format("2006-01-02T15:04:05.000Z"),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned http %d", resp.StatusCode)
	}
	return nil
}
