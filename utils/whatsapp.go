package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// WhatsAppClient delivers customer notifications through the WhatsApp Cloud
// API. The platform only composes text/template payloads; everything else
// about the channel is the API's business.
type WhatsAppClient struct {
	baseURL string
	token   string
	phoneID string
	client  *http.Client
}

func NewWhatsAppClient(baseURL, token, phoneID string) *WhatsAppClient {
	return &WhatsAppClient{
		baseURL: baseURL,
		token:   token,
		phoneID: phoneID,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (w *WhatsAppClient) SendText(ctx context.Context, to, text string) error {
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "text",
		"text":              map[string]string{"body": text},
	}
	return w.send(ctx, payload)
}

func (w *WhatsAppClient) SendTemplate(ctx context.Context, to, template string, params []string) error {
	components := []map[string]interface{}{}
	if len(params) > 0 {
		values := make([]map[string]string, 0, len(params))
		for _, p := range params {
			values = append(values, map[string]string{"type": "text", "text": p})
		}
		components = append(components, map[string]interface{}{
			"type":       "body",
			"parameters": values,
		})
	}
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "template",
		"template": map[string]interface{}{
			"name":       template,
			"language":   map[string]string{"code": "es_PA"},
			"components": components,
		},
	}
	return w.send(ctx, payload)
}

func (w *WhatsAppClient) send(ctx context.Context, payload map[string]interface{}) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/%s/messages", w.baseURL, w.phoneID)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(b))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+w.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("whatsapp send failed: %s: %s", resp.Status, string(body))
	}
	return nil
}
