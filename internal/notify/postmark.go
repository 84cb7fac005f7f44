package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"auth-service/internal/user/domain"
)

const (
	defaultTimeout        = 10 * time.Second
	defaultPostmarkURL    = "https://api.postmarkapp.com"
	postmarkMessageStream = "outbound"
)

// PostmarkClient sends email through the Postmark /email API.
type PostmarkClient struct {
	ServerToken string
	BaseURL     string
	Sender      domain.Email
	HTTPClient  *http.Client
}

// NewPostmarkClient returns a client using the given server token and sender. Empty baseURL means
// the public Postmark API; timeout <= 0 means 10s.
func NewPostmarkClient(serverToken, baseURL string, sender domain.Email, timeout time.Duration) *PostmarkClient {
	if baseURL == "" {
		baseURL = defaultPostmarkURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &PostmarkClient{
		ServerToken: serverToken,
		BaseURL:     baseURL,
		Sender:      sender,
		HTTPClient:  &http.Client{Timeout: timeout},
	}
}

type postmarkEmail struct {
	From          string `json:"From"`
	To            string `json:"To"`
	Subject       string `json:"Subject"`
	HTMLBody      string `json:"HtmlBody"`
	TextBody      string `json:"TextBody"`
	MessageStream string `json:"MessageStream"`
}

// Send posts one email. Does not log the body.
func (c *PostmarkClient) Send(ctx context.Context, recipient domain.Email, subject, body string) error {
	if c.ServerToken == "" {
		return errors.New("postmark: server token not configured")
	}
	raw, err := json.Marshal(postmarkEmail{
		From:          c.Sender.String(),
		To:            recipient.String(),
		Subject:       subject,
		HTMLBody:      body,
		TextBody:      body,
		MessageStream: postmarkMessageStream,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/email", bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.ServerToken)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("postmark: request failed status=%d body=%s", resp.StatusCode, string(b))
	}
	return nil
}
