package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// LinkedInChannel delivers applications through the LinkedIn messaging API.
type LinkedInChannel struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func (l *LinkedInChannel) Name() string { return "linkedin" }

type linkedInMessage struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject,omitempty"`
	Body      string `json:"body"`
	JobURL    string `json:"job_url,omitempty"`
}

func (l *LinkedInChannel) Deliver(ctx context.Context, d Delivery) error {
	if d.Recipient == "" {
		return fmt.Errorf("linkedin delivery for application %s has no recipient", d.ApplicationID)
	}

	body := d.Message
	if body == "" {
		body = d.CoverLetter
	}
	payload, err := json.Marshal(linkedInMessage{
		Recipient: d.Recipient,
		Subject:   d.Subject,
		Body:      body,
		JobURL:    d.SourceURL,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.BaseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+l.Token)
	req.Header.Set("Content-Type", "application/json")

	client := l.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("linkedin request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("linkedin send: bad status: %s", resp.Status)
	}
	return nil
}
