package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

const (
	fetchTimeout   = 20 * time.Second
	fetchMaxBytes  = 1 << 20 // 1 MiB
	fetchUserAgent = "GentAI/1.0"
)

// FetchWebpageTool downloads a page and returns it as markdown so the
// model can read a specific URL the user mentions.
type FetchWebpageTool struct {
	http *http.Client
}

// NewFetchWebpageTool creates the fetch_webpage tool.
func NewFetchWebpageTool() *FetchWebpageTool {
	return &FetchWebpageTool{
		http: &http.Client{Timeout: fetchTimeout},
	}
}

func (t *FetchWebpageTool) Name() string {
	return "fetch_webpage"
}

func (t *FetchWebpageTool) Description() string {
	return "Fetches a web page by URL and returns its readable content as markdown. Use this when the user gives a specific link to read."
}

func (t *FetchWebpageTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "The URL to fetch. Must start with http:// or https://",
			},
		},
		"required": []string{"url"},
	}
}

func (t *FetchWebpageTool) Execute(ctx context.Context, args string) (string, error) {
	var params struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal([]byte(args), &params); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if !strings.HasPrefix(params.URL, "http://") && !strings.HasPrefix(params.URL, "https://") {
		return "", fmt.Errorf("url must start with http:// or https://")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, params.URL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", fetchUserAgent)
	req.Header.Set("Accept", "*/*")

	resp, err := t.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetch failed: %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, fetchMaxBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	content := string(body)
	if strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		content = pageToMarkdown(content)
	}
	if content == "" {
		return "The page has no readable content.", nil
	}
	return content, nil
}

func pageToMarkdown(html string) string {
	converter := md.NewConverter("", true, &md.Options{
		HeadingStyle:    "atx",
		CodeBlockStyle:  "fenced",
		EmDelimiter:     "*",
		StrongDelimiter: "**",
	})
	converter.AddRules(md.Rule{
		Filter: []string{"nav", "footer", "aside", "script", "style"},
		Replacement: func(content string, selec *goquery.Selection, opt *md.Options) *string {
			empty := ""
			return &empty
		},
	})

	markdown, err := converter.ConvertString(html)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(collapseWhitespace.ReplaceAllString(markdown, "\n\n"))
}
