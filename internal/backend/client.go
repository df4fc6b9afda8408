package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/inkwell-cms/inkwell/internal/model"
)

// draftPayload is the wire schema shared by requests and responses.
// Responses are validated before anything reaches the draft store.
type draftPayload struct {
	ID            string    `json:"id,omitempty"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	Tags          []string  `json:"tags"`
	FeaturedImage string    `json:"featured_image,omitempty"`
	ReadingTime   int       `json:"reading_time,omitempty"`
	Status        string    `json:"status,omitempty"`
	Owner         string    `json:"owner,omitempty"`
	LastSaved     time.Time `json:"last_saved,omitempty"`
}

type errorPayload struct {
	Error string `json:"error"`
}

type publishPayload struct {
	Slug string `json:"slug,omitempty"`
}

func toPayload(d *model.Draft) draftPayload {
	return draftPayload{
		ID:            string(d.ID),
		Title:         d.Title,
		Content:       d.Content,
		Tags:          d.Tags,
		FeaturedImage: d.FeaturedImage,
		ReadingTime:   d.ReadingTime,
		Status:        string(d.Status),
		Owner:         string(d.Owner),
	}
}

func (p draftPayload) toDraft() *model.Draft {
	return &model.Draft{
		ID:            model.DraftID(p.ID),
		Title:         p.Title,
		Content:       p.Content,
		Tags:          p.Tags,
		FeaturedImage: p.FeaturedImage,
		ReadingTime:   p.ReadingTime,
		Status:        model.Status(p.Status),
		Owner:         model.UserID(p.Owner),
		LastSaved:     p.LastSaved,
	}
}

func (p draftPayload) validate() error {
	if p.ID == "" {
		return fmt.Errorf("response missing draft id")
	}
	if p.LastSaved.IsZero() {
		return fmt.Errorf("response missing last_saved timestamp")
	}
	return nil
}

// Client talks to the content API over HTTP.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *Client) Create(ctx context.Context, draft *model.Draft) (*model.Draft, error) {
	return c.roundTripDraft(ctx, "create", http.MethodPost,
		c.baseURL+"/drafts", toPayload(draft))
}

func (c *Client) Update(ctx context.Context, draft *model.Draft) (*model.Draft, error) {
	if draft.ID == "" {
		return nil, &ValidationError{StatusCode: http.StatusBadRequest, Message: "update requires a draft id"}
	}
	return c.roundTripDraft(ctx, "update", http.MethodPut,
		c.baseURL+"/drafts/"+string(draft.ID), toPayload(draft))
}

func (c *Client) Publish(ctx context.Context, id model.DraftID, opts model.PublishOptions) (*model.Draft, error) {
	if id == "" {
		return nil, &ValidationError{StatusCode: http.StatusBadRequest, Message: "publish requires a draft id"}
	}
	return c.roundTripDraft(ctx, "publish", http.MethodPost,
		c.baseURL+"/drafts/"+string(id)+"/publish", publishPayload{Slug: opts.Slug})
}

func (c *Client) Get(ctx context.Context, id model.DraftID) (*model.Draft, error) {
	return c.roundTripDraft(ctx, "get", http.MethodGet,
		c.baseURL+"/drafts/"+string(id), nil)
}

func (c *Client) Delete(ctx context.Context, id model.DraftID) error {
	resp, err := c.do(ctx, "delete", http.MethodDelete, c.baseURL+"/drafts/"+string(id), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return responseError(resp)
	}
	return nil
}

func (c *Client) roundTripDraft(ctx context.Context, op, method, url string, body any) (*model.Draft, error) {
	resp, err := c.do(ctx, op, method, url, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, responseError(resp)
	}

	var payload draftPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("decoding response: %w", err)}
	}
	if err := payload.validate(); err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}

	backendLogger.Debug().Str("op", op).Str("draft_id", payload.ID).Msg("Backend operation applied")
	return payload.toDraft(), nil
}

func (c *Client) do(ctx context.Context, op, method, url string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, &TransportError{Op: op, Err: err}
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		backendLogger.Warn().Str("op", op).Err(err).Msg("Backend request failed")
		return nil, &TransportError{Op: op, Err: err}
	}
	return resp, nil
}

func responseError(resp *http.Response) error {
	var payload errorPayload
	message := resp.Status
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&payload); err == nil && payload.Error != "" {
		message = payload.Error
	}

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return &ValidationError{StatusCode: resp.StatusCode, Message: message}
	}
	return &TransportError{
		Op:  resp.Request.Method + " " + resp.Request.URL.Path,
		Err: fmt.Errorf("server error: %s", message),
	}
}
