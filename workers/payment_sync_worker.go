package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"daily-challenge-system/services"
	"daily-challenge-system/utils"
)

// ConfirmedPurchase matches the payment service's JSON for one settled
// coin-package checkout.
type ConfirmedPurchase struct {
	Reference   string    `json:"reference"`
	Email       string    `json:"email"`
	Package     string    `json:"package"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

// PaymentSyncClient polls the payment service for settled coin purchases.
// The webhook on /payment/confirm is the fast path; this poller is the
// backstop for confirmations the webhook missed. Both funnel into
// EconomyService.CreditPurchase, whose transaction-reference unique index
// makes the overlap harmless.
type PaymentSyncClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	Economy    *services.EconomyService
}

func NewPaymentSyncClient(economy *services.EconomyService) *PaymentSyncClient {
	baseURL := os.Getenv("PAYMENT_SERVICE_URL")
	if baseURL == "" {
		log.Fatal("PAYMENT_SERVICE_URL environment variable is required")
	}
	token := os.Getenv("CHALLENGE_SERVICE_TOKEN")
	if token == "" {
		log.Fatal("CHALLENGE_SERVICE_TOKEN environment variable is required for payment sync")
	}

	return &PaymentSyncClient{
		BaseURL:    baseURL,
		Token:      token,
		Economy:    economy,
		HTTPClient: utils.HTTPClient,
	}
}

func (c *PaymentSyncClient) GetConfirmedPurchases(ctx context.Context, since time.Time) ([]ConfirmedPurchase, error) {
	since = since.UTC()

	u, err := url.Parse(fmt.Sprintf("%s/api/v1/public/coin-purchases", c.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	q := u.Query()
	q.Set("since", since.Format(time.RFC3339))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call payment service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("payment service returned status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Purchases []ConfirmedPurchase `json:"purchases"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode payment service response: %w", err)
	}

	return response.Purchases, nil
}

// PollPayments credits any confirmed purchases the webhook missed.
func PollPayments(ctx context.Context, client *PaymentSyncClient, pollInterval time.Duration) {
	log.Println("Starting payment polling (webhook backstop)...")
	lastSyncTime := time.Now().UTC().Add(-24 * time.Hour)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Payment polling stopped.")
			return
		case <-ticker.C:
			tickTime := time.Now().UTC()

			purchases, err := client.GetConfirmedPurchases(ctx, lastSyncTime)
			if err != nil {
				log.Printf("❌ Error polling payments: %v", err)
				continue
			}

			if len(purchases) == 0 {
				lastSyncTime = tickTime
				continue
			}
			log.Printf("📥 Received %d confirmed purchase(s) from payment service.", len(purchases))

			failed := false
			for _, purchase := range purchases {
				credited, err := client.Economy.CreditPurchase(purchase.Reference, purchase.Email, purchase.Package)
				if err != nil {
					log.Printf("❌ Failed to credit purchase %s: %v", purchase.Reference, err)
					failed = true
					continue
				}
				if credited {
					log.Printf("✅ Credited purchase %s for %s", purchase.Reference, purchase.Email)
				}
			}

			// Do NOT advance the cursor past a failed batch — retry same window next tick
			if !failed {
				lastSyncTime = tickTime
			}
		}
	}
}
