package notification

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labelforge/orderdesk/internal/types/notification"
	"github.com/labelforge/orderdesk/internal/types/order"
)

// Mailer hands a delivery off to the external mail service. Template
// rendering and SMTP live on the other side of this boundary.
type Mailer interface {
	Send(ctx context.Context, emailType notification.EmailType, o *order.Order) error
}

type mailRequest struct {
	OrderNumber string  `json:"order_number"`
	Email       string  `json:"email"`
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	TotalPrice  float64 `json:"total_price"`
}

type HTTPMailClient struct {
	Client      *http.Client
	MailAddress string
	SigningKey  string
}

func (c *HTTPMailClient) Send(ctx context.Context, emailType notification.EmailType, o *order.Order) error {
	body, err := json.Marshal(mailRequest{
		OrderNumber: o.Number,
		Email:       o.CustomerEmail,
		Name:        o.CustomerName,
		Type:        string(emailType),
		TotalPrice:  o.TotalPrice,
	})
	if err != nil {
		return fmt.Errorf("marshal mail request: %w", err)
	}

	url := fmt.Sprintf("%s/api/send", c.MailAddress)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.SigningKey != "" {
		mac := hmac.New(sha256.New, []byte(c.SigningKey))
		mac.Write(body)
		req.Header.Set("HashSHA256", hex.EncodeToString(mac.Sum(nil)))
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	return nil
}
