package email

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mudassarbajwa49/eRoyal-sub000/internal/config"
)

// RedisSender implements the Sender interface by storing emails in Redis.
// Used by end-to-end tests to assert on outgoing notifications without an
// SMTP server.
type RedisSender struct {
	client *redis.Client
	cfg    *config.Config
}

// NewRedisSender creates a new RedisSender.
func NewRedisSender(client *redis.Client, cfg *config.Config) Sender {
	return &RedisSender{
		client: client,
		cfg:    cfg,
	}
}

// Send stores a representation of the email in Redis instead of sending it.
// The key encodes the notification kind, inferred from the subject.
func (s *RedisSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	kind := "unknown"
	switch {
	case strings.Contains(subject, "Bill Issued"):
		kind = "bill_issued"
	case strings.Contains(subject, "Payment Verified"):
		kind = "payment_verified"
	case strings.Contains(subject, "Payment Rejected"):
		kind = "payment_rejected"
	case strings.Contains(subject, "Overdue"):
		kind = "bill_overdue"
	}

	payload, err := json.Marshal(map[string]interface{}{
		"to":      to,
		"subject": subject,
		"body":    string(rawMessage),
		"sent_at": time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal mock email: %w", err)
	}

	for _, addr := range to {
		key := fmt.Sprintf("mockemail:%s:%s", addr, kind)
		if err := s.client.Set(ctx, key, payload, 10*time.Minute).Err(); err != nil {
			return fmt.Errorf("failed to store mock email %s: %w", key, err)
		}
	}
	log.Printf("Mock email stored in Redis for %v (kind: %s)", to, kind)
	return nil
}
