package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/udaysagarm/GentAI/internal/gapi"
)

const youtubeBase = "https://www.googleapis.com/youtube/v3/search"

// SearchYouTubeTool searches YouTube for videos.
type SearchYouTubeTool struct {
	client *gapi.Client
}

// NewSearchYouTubeTool creates the search_youtube_videos tool.
func NewSearchYouTubeTool(client *gapi.Client) *SearchYouTubeTool {
	return &SearchYouTubeTool{client: client}
}

func (t *SearchYouTubeTool) Name() string {
	return "search_youtube_videos"
}

func (t *SearchYouTubeTool) Description() string {
	return "Searches YouTube for videos matching the query and returns titles, channels, and links."
}

func (t *SearchYouTubeTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "What to search for.",
			},
			"max_results": map[string]any{
				"type":        "integer",
				"description": "How many videos to list (default 5, max 10).",
			},
		},
		"required": []string{"query"},
	}
}

func (t *SearchYouTubeTool) Execute(ctx context.Context, args string) (string, error) {
	var params struct {
		Query      string `json:"query"`
		MaxResults int    `json:"max_results"`
	}
	if err := json.Unmarshal([]byte(args), &params); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if params.Query == "" {
		return "", fmt.Errorf("query is required")
	}
	if params.MaxResults <= 0 {
		params.MaxResults = 5
	}
	if params.MaxResults > 10 {
		params.MaxResults = 10
	}

	query := url.Values{}
	query.Set("part", "snippet")
	query.Set("type", "video")
	query.Set("q", params.Query)
	query.Set("maxResults", fmt.Sprintf("%d", params.MaxResults))

	var resp struct {
		Items []struct {
			ID struct {
				VideoID string `json:"videoId"`
			} `json:"id"`
			Snippet struct {
				Title        string `json:"title"`
				ChannelTitle string `json:"channelTitle"`
				PublishedAt  string `json:"publishedAt"`
			} `json:"snippet"`
		} `json:"items"`
	}
	if err := t.client.GetJSON(ctx, youtubeBase+"?"+query.Encode(), &resp); err != nil {
		return "", fmt.Errorf("failed to search youtube: %w", err)
	}
	if len(resp.Items) == 0 {
		return fmt.Sprintf("No videos found for %q.", params.Query), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d video(s) for %q:\n", len(resp.Items), params.Query)
	for _, item := range resp.Items {
		fmt.Fprintf(&b, "- %s (%s) https://www.youtube.com/watch?v=%s\n",
			item.Snippet.Title, item.Snippet.ChannelTitle, item.ID.VideoID)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
