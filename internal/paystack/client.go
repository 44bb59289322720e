package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"escrow-service/pkg/common"
)

// Client is a typed wrapper around the Paystack REST API. The base URL and
// HTTP client are injectable so tests can point it at a local server.
type Client struct {
	SecretKey  string
	BaseUrl    string
	HTTPClient *http.Client
}

func NewClient(secretKey, baseUrl string) *Client {
	return &Client{
		SecretKey:  secretKey,
		BaseUrl:    baseUrl,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type apiEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type Session struct {
	AuthorizationUrl string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type Transfer struct {
	Status       string `json:"status"`
	Reference    string `json:"reference"`
	TransferCode string `json:"transfer_code"`
}

type ChargeStatus struct {
	Status    string `json:"status"`
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
}

type AccountDetails struct {
	Name          string
	AccountNumber string
	BankCode      string
}

// InitializeSession creates a hosted checkout session. Amount is in kobo.
func (c *Client) InitializeSession(ctx context.Context, amountKobo int64, email string, metadata map[string]interface{}) (*Session, error) {
	payload := map[string]interface{}{
		"amount":   amountKobo,
		"email":    email,
		"metadata": metadata,
	}

	var session Session
	if err := c.post(ctx, "/transaction/initialize", payload, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Transfer moves amountKobo from the platform balance to a registered
// recipient. The reference carries the transaction id plus a random suffix
// so retried releases never collide at the gateway.
func (c *Client) Transfer(ctx context.Context, amountKobo int64, recipientCode, reason, transactionID string) (*Transfer, error) {
	payload := map[string]interface{}{
		"source":    "balance",
		"amount":    amountKobo,
		"reference": fmt.Sprintf("%s_%s", transactionID, common.GenerateTrxNo()),
		"recipient": recipientCode,
		"reason":    reason,
	}

	var transfer Transfer
	if err := c.post(ctx, "/transfer", payload, &transfer); err != nil {
		return nil, err
	}
	return &transfer, nil
}

// CreateRecipient registers a seller's bank account for payouts and returns
// the recipient code.
func (c *Client) CreateRecipient(ctx context.Context, details AccountDetails) (string, error) {
	payload := map[string]interface{}{
		"type":           "nuban",
		"name":           details.Name,
		"account_number": details.AccountNumber,
		"bank_code":      details.BankCode,
		"currency":       "NGN",
	}

	var data struct {
		RecipientCode string `json:"recipient_code"`
	}
	if err := c.post(ctx, "/transferrecipient", payload, &data); err != nil {
		return "", err
	}
	if data.RecipientCode == "" {
		return "", fmt.Errorf("paystack returned no recipient code")
	}
	return data.RecipientCode, nil
}

// VerifyTransaction fetches the gateway's view of a charge by reference.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*ChargeStatus, error) {
	var status ChargeStatus
	if err := c.get(ctx, "/transaction/verify/"+reference, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseUrl+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseUrl+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("paystack request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("paystack returned invalid response (%d)", resp.StatusCode)
	}
	if !envelope.Status {
		msg := envelope.Message
		if msg == "" {
			msg = fmt.Sprintf("paystack error (%d)", resp.StatusCode)
		}
		return fmt.Errorf("%s", msg)
	}
	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("paystack response decode failed: %w", err)
		}
	}
	return nil
}
