package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicfix/civicfix-server/internal/auth"
)

func TestSignWebhookFromStdin(t *testing.T) {
	body := `{"session_id":"cs_1","type":"subscription","email":"a@example.com","amount":100}`
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader(body))
	cmd.SetArgs([]string{"sign-webhook", "--file", "-", "--secret", "s3cret"})

	require.NoError(t, cmd.Execute())
	signature := strings.TrimSpace(out.String())
	assert.Equal(t, auth.SignPayload([]byte("s3cret"), []byte(body)), signature)
	assert.NoError(t, auth.VerifyPayload([]byte("s3cret"), []byte(body), signature))
}

func TestSignWebhookRequiresSecret(t *testing.T) {
	t.Setenv("PAYMENT_WEBHOOK_SECRET", "")
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader("{}"))
	cmd.SetArgs([]string{"sign-webhook", "--file", "-"})
	assert.Error(t, cmd.Execute())
}

func TestPromoteRequiresFlags(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"promote", "--email", "a@example.com"})
	assert.Error(t, cmd.Execute())
}
