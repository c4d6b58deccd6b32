// Package razorpay - минимальный клиент Razorpay Orders API и проверка подписи платежа.
package razorpay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL - адрес API Razorpay
const DefaultBaseURL = "https://api.razorpay.com"

// Client работает с Razorpay Orders API. Секрет ключа не покидает сервер.
type Client struct {
	baseURL    string
	keyID      string
	keySecret  string
	httpClient *http.Client
}

// NewClient создает новый клиент Razorpay
func NewClient(baseURL, keyID, keySecret string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		keyID:      keyID,
		keySecret:  keySecret,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// OrderRequest - параметры создания заказа
type OrderRequest struct {
	Amount   int64  `json:"amount"` // в минимальных единицах валюты
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// Order - заказ, открытый в шлюзе
type Order struct {
	ID         string `json:"id"`
	Amount     int64  `json:"amount"`
	AmountPaid int64  `json:"amount_paid"`
	Currency   string `json:"currency"`
	Receipt    string `json:"receipt"`
	Status     string `json:"status"` // created, attempted, paid
	CreatedAt  int64  `json:"created_at"`
}

// APIError - ошибка, которую вернул Razorpay
type APIError struct {
	StatusCode  int
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("razorpay: %d %s: %s", e.StatusCode, e.Code, e.Description)
}

// CreateOrder открывает заказ в шлюзе (POST /v1/orders)
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode order request: %w", err)
	}
	var order Order
	if err := c.do(ctx, http.MethodPost, "/v1/orders", body, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// FetchOrder возвращает заказ по идентификатору (GET /v1/orders/{id})
func (c *Client) FetchOrder(ctx context.Context, orderID string) (*Order, error) {
	var order Order
	if err := c.do(ctx, http.MethodGet, "/v1/orders/"+orderID, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var envelope struct {
			Error APIError `json:"error"`
		}
		_ = json.Unmarshal(data, &envelope)
		envelope.Error.StatusCode = resp.StatusCode
		return &envelope.Error
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// Signature вычисляет HMAC-SHA256(secret, "orderId|paymentId") в hex
func Signature(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature сравнивает присланную подпись с вычисленной за постоянное время
func VerifySignature(secret, orderID, paymentID, signature string) bool {
	expected := Signature(secret, orderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifySignature проверяет подпись подтверждения платежа секретом клиента
func (c *Client) VerifySignature(orderID, paymentID, signature string) bool {
	return VerifySignature(c.keySecret, orderID, paymentID, signature)
}
