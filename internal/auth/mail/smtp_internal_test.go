package mail

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnvelopeAddress(t *testing.T) {
	require.Equal(t, "noreply@example.com", envelopeAddress("Congregation <noreply@example.com>"))
	require.Equal(t, "noreply@example.com", envelopeAddress("noreply@example.com"))
}

func TestBuildMessage(t *testing.T) {
	raw := string(buildMessage(Message{
		From:    "Congregation <noreply@example.com>",
		To:      "a@example.com",
		Subject: "Olá",
		HTML:    "<p>hi</p>\n<p>there</p>",
	}))

	require.Contains(t, raw, "To: a@example.com\r\n")
	require.Contains(t, raw, "Subject: =?utf-8?q?Ol=C3=A1?=\r\n")
	require.Contains(t, raw, "Content-Type: text/html")
	require.True(t, strings.HasSuffix(raw, "<p>hi</p>\r\n<p>there</p>"))
}
