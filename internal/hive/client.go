package hive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"hive_schedule/internal/logger"
	"hive_schedule/internal/models"
)

const (
	DefaultBaseURL = "https://beekeeper.hivehome.com/1.0"

	webOrigin      = "https://my.hivehome.com"
	maxBodyInError = 512
	maxBodySize    = 1 << 20
)

// TokenSource is implemented by *session.Manager.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	// RefreshRejected renews the session unless the token the API
	// rejected has already been replaced.
	RefreshRejected(ctx context.Context, rejected string) error
}

// Client reads and writes heating schedules.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	log        *logger.Logger
}

func NewClient(baseURL string, httpClient *http.Client, tokens TokenSource, log *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		tokens:     tokens,
		log:        log,
	}
}

// GetSchedule returns the current week of nodeID. Days the API omits are absent.
func (c *Client) GetSchedule(ctx context.Context, nodeID string) (models.WeekSchedule, error) {
	week, err := c.fetchWeek(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	return week.toModel()
}

// SetDay replaces one day and writes back the other six exactly as just read.
func (c *Client) SetDay(ctx context.Context, nodeID string, day models.Day, entries models.DaySchedule) error {
	day, err := models.ParseDay(string(day))
	if err != nil {
		return err
	}
	wire, err := BuildDay(entries)
	if err != nil {
		return err
	}
	newDay, err := json.Marshal(wire)
	if err != nil {
		return err
	}

	if _, err := c.tokens.Token(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	week, err := c.fetchWeek(ctx, nodeID)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, ErrUnauthenticated) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrCannotPreserveSchedule, err)
	}
	if missing := week.missing(day); len(missing) > 0 {
		c.log.Warnw("hive_schedule_incomplete", "node_id", nodeID, "day", day, "missing", missing)
		return fmt.Errorf("%w: current schedule lacks %v", ErrCannotPreserveSchedule, missing)
	}
	week[day] = newDay

	if err := c.write(ctx, nodeID, week); err != nil {
		return err
	}
	c.log.Infow("hive_day_set", "node_id", nodeID, "day", day, "entries", len(wire))
	return nil
}

// SetFullWeek writes all seven days without reading first. Omitted days get DefaultDay.
func (c *Client) SetFullWeek(ctx context.Context, nodeID string, week models.WeekSchedule) error {
	week, err := canonicalWeek(week)
	if err != nil {
		return err
	}
	out := make(rawWeek, len(models.Days))
	for _, d := range models.Days {
		entries, ok := week[d]
		if !ok {
			entries = models.DefaultDay()
		}
		wire, err := BuildDay(entries)
		if err != nil {
			return fmt.Errorf("%s: %w", d, err)
		}
		raw, err := json.Marshal(wire)
		if err != nil {
			return err
		}
		out[d] = raw
	}

	if err := c.write(ctx, nodeID, out); err != nil {
		return err
	}
	c.log.Infow("hive_week_set", "node_id", nodeID, "days_given", len(week))
	return nil
}

// canonicalWeek re-keys week by lower-case day name.
func canonicalWeek(week models.WeekSchedule) (models.WeekSchedule, error) {
	out := make(models.WeekSchedule, len(week))
	for d, entries := range week {
		day, err := models.ParseDay(string(d))
		if err != nil {
			return nil, err
		}
		if _, dup := out[day]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateDay, day)
		}
		out[day] = entries
	}
	return out, nil
}

func (c *Client) fetchWeek(ctx context.Context, nodeID string) (rawWeek, error) {
	body, err := c.do(ctx, http.MethodGet, nodeID, nil)
	if err != nil {
		return nil, err
	}
	return extractWeek(body, nodeID)
}

func (c *Client) write(ctx context.Context, nodeID string, week rawWeek) error {
	payload, err := json.Marshal(struct {
		Schedule rawWeek `json:"schedule"`
	}{Schedule: week})
	if err != nil {
		return fmt.Errorf("encode schedule: %w", err)
	}
	_, err = c.do(ctx, http.MethodPost, nodeID, payload)
	return err
}

// do sends one request and, on 401, renews the token and retries exactly once.
func (c *Client) do(ctx context.Context, method, nodeID string, payload []byte) ([]byte, error) {
	endpoint := c.baseURL + "/nodes/heating/" + url.PathEscape(nodeID)

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		token, err := c.tokens.Token(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
		}

		status, body, err := c.send(ctx, method, endpoint, token, payload)
		if err != nil {
			return nil, c.transportError(ctx, err)
		}

		switch {
		case status >= 200 && status < 300:
			return body, nil
		case status == http.StatusUnauthorized:
			if attempt > 0 {
				c.log.Errorw("hive_unauthorized_after_refresh", "node_id", nodeID, "token", logger.Preview(token))
				return nil, ErrAuthenticationFailed
			}
			c.log.Infow("hive_unauthorized_refreshing", "node_id", nodeID, "method", method)
			if err := c.tokens.RefreshRejected(ctx, token); err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				return nil, fmt.Errorf("%w: %w", ErrAuthenticationFailed, err)
			}
		case status == http.StatusNotFound:
			return nil, fmt.Errorf("%w: %s", ErrUnknownNode, nodeID)
		default:
			return nil, &UpstreamError{Status: status, Body: truncate(body)}
		}
	}
}

func (c *Client) send(ctx context.Context, method, endpoint, token string, payload []byte) (int, []byte, error) {
	var rd io.Reader
	if payload != nil {
		rd = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, rd)
	if err != nil {
		return 0, nil, err
	}
	// The API takes the raw identity token, without a Bearer scheme.
	req.Header.Set("Authorization", token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Origin", webOrigin)
	req.Header.Set("Referer", webOrigin+"/")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

func (c *Client) transportError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		c.log.Warnw("hive_request_timeout", "err", err)
		return fmt.Errorf("%w: %w", ErrUpstreamTimeout, err)
	}
	return fmt.Errorf("hive request: %w", err)
}

func truncate(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > maxBodyInError {
		return s[:maxBodyInError] + "…"
	}
	return s
}
