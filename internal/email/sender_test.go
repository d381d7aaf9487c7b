package email

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mudassarbajwa49/eRoyal-sub000/internal/config"
)

func TestBuildMessage(t *testing.T) {
	msg := string(BuildMessage("noreply@eroyal.example.com", "asif@test.local", "Bill Issued for 2025-08", "Amount due: 5500.00"))

	assert.True(t, strings.HasPrefix(msg, "From: noreply@eroyal.example.com\r\n"))
	assert.Contains(t, msg, "To: asif@test.local\r\n")
	assert.Contains(t, msg, "Subject: Bill Issued for 2025-08\r\n")
	assert.Contains(t, msg, "\r\n\r\nAmount due: 5500.00")
}

func TestNewSMTPSender_FallsBackWithoutHost(t *testing.T) {
	sender := NewSMTPSender(&config.Config{})
	_, ok := sender.(*LoggingSender)
	assert.True(t, ok)

	// The logging sender never fails.
	err := sender.Send(context.Background(), []string{"a@b.c"}, "subj", []byte("body"))
	assert.NoError(t, err)
}
