// Package transfer предоставляет клиент внешней системы переводов средств.
package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
)

// ErrTransferRejected возвращается, если внешняя система отклонила перевод.
var ErrTransferRejected = errors.New("transfer rejected by ledger")

const idempotencyHeader = "Idempotency-Key"

// Client инкапсулирует HTTP-взаимодействие с системой переводов.
type Client struct {
	baseURL    string
	httpClient *retryablehttp.Client
}

type transferRequest struct {
	Recipient string `json:"recipient"`
	Amount    int64  `json:"amount"`
}

// NewClient создаёт клиент системы переводов по указанному адресу.
// Временные ошибки (сеть, 5xx, 429) повторяются с тем же ключом идемпотентности.
func NewClient(baseURL string) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.Logger = nil
	rc.HTTPClient.Timeout = 5 * time.Second

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: rc,
	}
}

// Transfer переводит amount получателю recipient. key передаётся в заголовке
// Idempotency-Key и должен совпадать у всех попыток одного перевода.
// Пустой key заменяется случайным.
func (c *Client) Transfer(ctx context.Context, key, recipient string, amount int64) error {
	if c == nil || c.baseURL == "" {
		return fmt.Errorf("transfer client not configured")
	}

	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	body, err := json.Marshal(transferRequest{Recipient: recipient, Amount: amount})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, base+"/api/transfers", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if key == "" {
		key = uuid.NewString()
	}
	req.Header.Set(idempotencyHeader, key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return nil
	case http.StatusConflict:
		// Перевод с этим ключом уже выполнен предыдущей попыткой.
		return nil
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%w: status %d: %s", ErrTransferRejected, resp.StatusCode, strings.TrimSpace(string(msg)))
}
