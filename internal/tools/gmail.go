package tools

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"github.com/udaysagarm/GentAI/internal/gapi"
	"github.com/udaysagarm/GentAI/internal/logger"
)

const gmailBase = "https://gmail.googleapis.com/gmail/v1/users/me"

// gmailHeader is one RFC822 header in the API's message payload.
type gmailHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// gmailPayload is the (possibly nested) MIME structure of a message.
type gmailPayload struct {
	MimeType string        `json:"mimeType"`
	Headers  []gmailHeader `json:"headers"`
	Body     struct {
		Data string `json:"data"`
		Size int    `json:"size"`
	} `json:"body"`
	Parts []gmailPayload `json:"parts"`
}

type gmailMessage struct {
	ID      string       `json:"id"`
	Snippet string       `json:"snippet"`
	Payload gmailPayload `json:"payload"`
}

// buildRawMessage assembles an RFC822 message and encodes it the way the
// Gmail API expects (unpadded base64url).
func buildRawMessage(to, subject, body string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return base64.RawURLEncoding.EncodeToString([]byte(b.String()))
}

// decodeBody decodes a base64url MIME body. Some senders emit data with
// missing padding or standard-alphabet characters; both are repaired before
// decoding.
func decodeBody(data string) (string, error) {
	data = strings.ReplaceAll(data, "+", "-")
	data = strings.ReplaceAll(data, "/", "_")
	data = strings.TrimRight(data, "=")

	decoded, err := base64.RawURLEncoding.DecodeString(data)
	if err != nil {
		return "", fmt.Errorf("failed to decode message body: %w", err)
	}
	return string(decoded), nil
}

var collapseWhitespace = regexp.MustCompile(`\n{3,}`)

// htmlToText renders an HTML message part as markdown so links and
// structure survive into the observation.
func htmlToText(html string) string {
	converter := md.NewConverter("", true, &md.Options{
		HeadingStyle:    "atx",
		CodeBlockStyle:  "fenced",
		EmDelimiter:     "*",
		StrongDelimiter: "**",
	})
	converter.AddRules(md.Rule{
		Filter: []string{"script", "style", "head"},
		Replacement: func(content string, selec *goquery.Selection, opt *md.Options) *string {
			empty := ""
			return &empty
		},
	})

	text, err := converter.ConvertString(html)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(collapseWhitespace.ReplaceAllString(text, "\n\n"))
}

// extractAllText walks the full MIME tree iteratively and collects every
// decodable text candidate. The longest candidate wins: multipart messages
// often carry a stub plain part next to the real content.
func extractAllText(payload gmailPayload) string {
	var best string

	work := []gmailPayload{payload}
	for len(work) > 0 {
		part := work[0]
		work = work[1:]
		work = append(work, part.Parts...)

		if part.Body.Data == "" {
			continue
		}
		decoded, err := decodeBody(part.Body.Data)
		if err != nil {
			continue
		}

		var candidate string
		switch {
		case strings.HasPrefix(part.MimeType, "text/plain"):
			candidate = strings.TrimSpace(decoded)
		case strings.HasPrefix(part.MimeType, "text/html"):
			candidate = htmlToText(decoded)
		default:
			continue
		}

		if len(candidate) > len(best) {
			best = candidate
		}
	}

	return best
}

func headerValue(headers []gmailHeader, name string) string {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// SendGmailTool sends an email immediately. The dispatch prompt instructs
// the model to prefer create_gmail_draft unless the user explicitly asks to
// send.
type SendGmailTool struct {
	client *gapi.Client
	logger *logger.Logger
}

// NewSendGmailTool creates the send_gmail_message tool.
func NewSendGmailTool(client *gapi.Client, log *logger.Logger) *SendGmailTool {
	return &SendGmailTool{client: client, logger: log}
}

func (t *SendGmailTool) Name() string {
	return "send_gmail_message"
}

func (t *SendGmailTool) Description() string {
	return "Sends an email immediately from the user's Gmail account. Only use this when the user explicitly asks to send; otherwise prefer create_gmail_draft."
}

func (t *SendGmailTool) Parameters() map[string]any {
	return gmailComposeParameters()
}

func (t *SendGmailTool) Execute(ctx context.Context, args string) (string, error) {
	to, subject, body, err := parseComposeArgs(args)
	if err != nil {
		return "", err
	}

	var resp struct {
		ID string `json:"id"`
	}
	payload := map[string]string{"raw": buildRawMessage(to, subject, body)}
	if err := t.client.PostJSON(ctx, gmailBase+"/messages/send", payload, &resp); err != nil {
		return "", fmt.Errorf("failed to send email: %w", err)
	}

	t.logger.InfoCtx(ctx, "Email sent",
		logger.Field{Key: "to", Value: to},
		logger.Field{Key: "message_id", Value: resp.ID})
	return fmt.Sprintf("Email sent to %s (message id %s).", to, resp.ID), nil
}

// DraftGmailTool creates a draft without sending it.
type DraftGmailTool struct {
	client *gapi.Client
	logger *logger.Logger
}

// NewDraftGmailTool creates the create_gmail_draft tool.
func NewDraftGmailTool(client *gapi.Client, log *logger.Logger) *DraftGmailTool {
	return &DraftGmailTool{client: client, logger: log}
}

func (t *DraftGmailTool) Name() string {
	return "create_gmail_draft"
}

func (t *DraftGmailTool) Description() string {
	return "Creates a draft email in the user's Gmail account without sending it. This is the default way to write an email."
}

func (t *DraftGmailTool) Parameters() map[string]any {
	return gmailComposeParameters()
}

func (t *DraftGmailTool) Execute(ctx context.Context, args string) (string, error) {
	to, subject, body, err := parseComposeArgs(args)
	if err != nil {
		return "", err
	}

	var resp struct {
		ID string `json:"id"`
	}
	payload := map[string]any{
		"message": map[string]string{"raw": buildRawMessage(to, subject, body)},
	}
	if err := t.client.PostJSON(ctx, gmailBase+"/drafts", payload, &resp); err != nil {
		return "", fmt.Errorf("failed to create draft: %w", err)
	}

	t.logger.InfoCtx(ctx, "Draft created",
		logger.Field{Key: "to", Value: to},
		logger.Field{Key: "draft_id", Value: resp.ID})
	return fmt.Sprintf("Draft to %s created (draft id %s). It has not been sent.", to, resp.ID), nil
}

func gmailComposeParameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"to": map[string]any{
				"type":        "string",
				"description": "Recipient email address.",
			},
			"subject": map[string]any{
				"type":        "string",
				"description": "Email subject line.",
			},
			"body": map[string]any{
				"type":        "string",
				"description": "Plain-text email body.",
			},
		},
		"required": []string{"to", "subject", "body"},
	}
}

func parseComposeArgs(args string) (to, subject, body string, err error) {
	var params struct {
		To      string `json:"to"`
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}
	if err := json.Unmarshal([]byte(args), &params); err != nil {
		return "", "", "", fmt.Errorf("invalid arguments: %w", err)
	}
	if params.To == "" {
		return "", "", "", fmt.Errorf("to is required")
	}
	return params.To, params.Subject, params.Body, nil
}

// ReadRecentEmailsTool lists the newest inbox messages with their sender,
// subject, and snippet.
type ReadRecentEmailsTool struct {
	client *gapi.Client
}

// NewReadRecentEmailsTool creates the read_recent_emails tool.
func NewReadRecentEmailsTool(client *gapi.Client) *ReadRecentEmailsTool {
	return &ReadRecentEmailsTool{client: client}
}

func (t *ReadRecentEmailsTool) Name() string {
	return "read_recent_emails"
}

func (t *ReadRecentEmailsTool) Description() string {
	return "Lists the most recent emails in the user's inbox with message id, sender, subject, and a short snippet. Use read_email_content with a message id to read a full email."
}

func (t *ReadRecentEmailsTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"max_results": map[string]any{
				"type":        "integer",
				"description": "How many emails to list (default 5, max 20).",
			},
		},
	}
}

func (t *ReadRecentEmailsTool) Execute(ctx context.Context, args string) (string, error) {
	var params struct {
		MaxResults int `json:"max_results"`
	}
	if args != "" {
		if err := json.Unmarshal([]byte(args), &params); err != nil {
			return "", fmt.Errorf("invalid arguments: %w", err)
		}
	}
	if params.MaxResults <= 0 {
		params.MaxResults = 5
	}
	if params.MaxResults > 20 {
		params.MaxResults = 20
	}

	var list struct {
		Messages []struct {
			ID string `json:"id"`
		} `json:"messages"`
	}
	listURL := fmt.Sprintf("%s/messages?labelIds=INBOX&maxResults=%d", gmailBase, params.MaxResults)
	if err := t.client.GetJSON(ctx, listURL, &list); err != nil {
		return "", fmt.Errorf("failed to list emails: %w", err)
	}
	if len(list.Messages) == 0 {
		return "The inbox is empty.", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d recent email(s):\n", len(list.Messages))
	for _, m := range list.Messages {
		var msg gmailMessage
		msgURL := fmt.Sprintf("%s/messages/%s?format=metadata&metadataHeaders=From&metadataHeaders=Subject",
			gmailBase, url.PathEscape(m.ID))
		if err := t.client.GetJSON(ctx, msgURL, &msg); err != nil {
			fmt.Fprintf(&b, "- [%s] (failed to load: %v)\n", m.ID, err)
			continue
		}
		fmt.Fprintf(&b, "- [%s] From: %s, Subject: %s\n  %s\n",
			msg.ID,
			headerValue(msg.Payload.Headers, "From"),
			headerValue(msg.Payload.Headers, "Subject"),
			msg.Snippet)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// ReadEmailContentTool fetches one email and extracts its readable body
// from the MIME tree.
type ReadEmailContentTool struct {
	client *gapi.Client
}

// NewReadEmailContentTool creates the read_email_content tool.
func NewReadEmailContentTool(client *gapi.Client) *ReadEmailContentTool {
	return &ReadEmailContentTool{client: client}
}

func (t *ReadEmailContentTool) Name() string {
	return "read_email_content"
}

func (t *ReadEmailContentTool) Description() string {
	return "Reads the full text content of one email. Pass a message id from read_recent_emails, or a search phrase like 'from:alice subject:invoice' to read the newest matching email."
}

func (t *ReadEmailContentTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message_id": map[string]any{
				"type":        "string",
				"description": "A Gmail message id, or a search phrase to locate the email.",
			},
		},
		"required": []string{"message_id"},
	}
}

// looksLikeQuery reports whether the identifier is a search phrase rather
// than a raw message id. Message ids are single opaque hex-ish tokens.
func looksLikeQuery(s string) bool {
	return strings.ContainsAny(s, " \t:@")
}

func (t *ReadEmailContentTool) Execute(ctx context.Context, args string) (string, error) {
	var params struct {
		MessageID string `json:"message_id"`
	}
	if err := json.Unmarshal([]byte(args), &params); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	params.MessageID = strings.TrimSpace(params.MessageID)
	if params.MessageID == "" {
		return "", fmt.Errorf("message_id is required")
	}

	id := params.MessageID
	if looksLikeQuery(id) {
		var list struct {
			Messages []struct {
				ID string `json:"id"`
			} `json:"messages"`
		}
		searchURL := fmt.Sprintf("%s/messages?maxResults=1&q=%s", gmailBase, url.QueryEscape(id))
		if err := t.client.GetJSON(ctx, searchURL, &list); err != nil {
			return "", fmt.Errorf("failed to search emails: %w", err)
		}
		if len(list.Messages) == 0 {
			return fmt.Sprintf("No email found matching %q.", id), nil
		}
		id = list.Messages[0].ID
	}

	var msg gmailMessage
	msgURL := fmt.Sprintf("%s/messages/%s?format=full", gmailBase, url.PathEscape(id))
	if err := t.client.GetJSON(ctx, msgURL, &msg); err != nil {
		return "", fmt.Errorf("failed to fetch email: %w", err)
	}

	text := extractAllText(msg.Payload)
	if text == "" {
		if msg.Snippet != "" {
			return fmt.Sprintf("No readable body found; snippet: %s", msg.Snippet), nil
		}
		return "The email has no readable text content.", nil
	}

	from := headerValue(msg.Payload.Headers, "From")
	subject := headerValue(msg.Payload.Headers, "Subject")
	return fmt.Sprintf("From: %s\nSubject: %s\n\n%s", from, subject, text), nil
}
