package tools

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func b64(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func textPart(mime, content string) gmailPayload {
	p := gmailPayload{MimeType: mime}
	p.Body.Data = b64(content)
	p.Body.Size = len(content)
	return p
}

func TestBuildRawMessage(t *testing.T) {
	raw := buildRawMessage("bob@example.com", "Hello", "How are you?")

	decoded, err := base64.RawURLEncoding.DecodeString(raw)
	require.NoError(t, err)

	msg := string(decoded)
	assert.Contains(t, msg, "To: bob@example.com\r\n")
	assert.Contains(t, msg, "Subject: Hello\r\n")
	assert.True(t, strings.HasSuffix(msg, "\r\nHow are you?"))
}

func TestDecodeBody_RepairsPaddingAndAlphabet(t *testing.T) {
	// Standard alphabet with padding; senders are not consistent about
	// either.
	padded := base64.StdEncoding.EncodeToString([]byte("hello world?>"))
	decoded, err := decodeBody(padded)
	require.NoError(t, err)
	assert.Equal(t, "hello world?>", decoded)

	unpadded := base64.RawURLEncoding.EncodeToString([]byte("plain"))
	decoded, err = decodeBody(unpadded)
	require.NoError(t, err)
	assert.Equal(t, "plain", decoded)
}

func TestDecodeBody_Malformed(t *testing.T) {
	_, err := decodeBody("not valid base64 !!!")
	assert.Error(t, err)
}

func TestExtractAllText_PlainMessage(t *testing.T) {
	payload := textPart("text/plain", "just a simple body")
	assert.Equal(t, "just a simple body", extractAllText(payload))
}

func TestExtractAllText_LongestCandidateWins(t *testing.T) {
	// Multipart message with a stub plain part next to the real content.
	long := strings.Repeat("the actual newsletter content. ", 20)
	root := gmailPayload{
		MimeType: "multipart/alternative",
		Parts: []gmailPayload{
			textPart("text/plain", "View this email in your browser."),
			textPart("text/plain", long),
		},
	}

	assert.Equal(t, strings.TrimSpace(long), extractAllText(root))
}

func TestExtractAllText_NestedParts(t *testing.T) {
	inner := gmailPayload{
		MimeType: "multipart/alternative",
		Parts: []gmailPayload{
			textPart("text/plain", "deeply nested body text"),
		},
	}
	root := gmailPayload{
		MimeType: "multipart/mixed",
		Parts:    []gmailPayload{inner},
	}

	assert.Equal(t, "deeply nested body text", extractAllText(root))
}

func TestExtractAllText_HTMLOnly(t *testing.T) {
	html := "<html><body><p>Hello from <b>HTML</b> land</p></body></html>"
	root := gmailPayload{
		MimeType: "multipart/alternative",
		Parts: []gmailPayload{
			textPart("text/html", html),
		},
	}

	text := extractAllText(root)
	assert.Contains(t, text, "Hello from")
	assert.NotContains(t, text, "<p>")
}

func TestExtractAllText_SkipsAttachments(t *testing.T) {
	root := gmailPayload{
		MimeType: "multipart/mixed",
		Parts: []gmailPayload{
			textPart("text/plain", "the message"),
			textPart("application/pdf", "%PDF-1.4 binary junk"),
		},
	}

	assert.Equal(t, "the message", extractAllText(root))
}

func TestExtractAllText_Empty(t *testing.T) {
	root := gmailPayload{MimeType: "multipart/mixed"}
	assert.Empty(t, extractAllText(root))
}

func TestLooksLikeQuery(t *testing.T) {
	assert.False(t, looksLikeQuery("1989d94f2c0a1b7e"))
	assert.True(t, looksLikeQuery("from:alice subject:invoice"))
	assert.True(t, looksLikeQuery("the invoice email"))
	assert.True(t, looksLikeQuery("alice@example.com"))
}

func TestHeaderValue(t *testing.T) {
	headers := []gmailHeader{
		{Name: "From", Value: "alice@example.com"},
		{Name: "Subject", Value: "Lunch"},
	}

	assert.Equal(t, "alice@example.com", headerValue(headers, "from"))
	assert.Equal(t, "Lunch", headerValue(headers, "Subject"))
	assert.Empty(t, headerValue(headers, "Cc"))
}
