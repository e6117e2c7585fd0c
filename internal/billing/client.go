package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Client talks to the payment gateway. The gateway is a black box from
// the orchestrator's point of view: amount plus metadata in, redirect
// URL out.
type Client struct {
	baseURL    string
	shopID     string
	secretKey  string
	returnURL  string
	httpClient *http.Client
}

func NewClient(baseURL, shopID, secretKey, returnURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		shopID:     shopID,
		secretKey:  secretKey,
		returnURL:  returnURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type paymentAmount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type paymentConfirmation struct {
	Type            string `json:"type"`
	ReturnURL       string `json:"return_url,omitempty"`
	ConfirmationURL string `json:"confirmation_url,omitempty"`
}

type createPaymentRequest struct {
	Amount       paymentAmount       `json:"amount"`
	Confirmation paymentConfirmation `json:"confirmation"`
	Capture      bool                `json:"capture"`
	Description  string              `json:"description"`
	Metadata     map[string]string   `json:"metadata"`
}

type Payment struct {
	ID              string
	ConfirmationURL string
}

type createPaymentResponse struct {
	ID           string              `json:"id"`
	Confirmation paymentConfirmation `json:"confirmation"`
}

// CreatePayment registers a redirect payment and returns its id and
// confirmation URL.
func (c *Client) CreatePayment(ctx context.Context, amount int, description string, metadata map[string]string) (*Payment, error) {
	body, err := json.Marshal(createPaymentRequest{
		Amount:       paymentAmount{Value: fmt.Sprintf("%d.00", amount), Currency: "RUB"},
		Confirmation: paymentConfirmation{Type: "redirect", ReturnURL: c.returnURL},
		Capture:      true,
		Description:  description,
		Metadata:     metadata,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v3/payments", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotence-Key", uuid.New().String())
	req.SetBasicAuth(c.shopID, c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call payment gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("payment gateway returned status %d", resp.StatusCode)
	}

	var created createPaymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("failed to decode payment response: %w", err)
	}
	if created.Confirmation.ConfirmationURL == "" {
		return nil, fmt.Errorf("payment %s has no confirmation url", created.ID)
	}

	return &Payment{ID: created.ID, ConfirmationURL: created.Confirmation.ConfirmationURL}, nil
}
