package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/udaysagarm/GentAI/internal/gapi"
)

const driveBase = "https://www.googleapis.com/drive/v3/files"

// SearchDriveTool finds files in the user's Google Drive by name.
type SearchDriveTool struct {
	client *gapi.Client
}

// NewSearchDriveTool creates the search_drive_files tool.
func NewSearchDriveTool(client *gapi.Client) *SearchDriveTool {
	return &SearchDriveTool{client: client}
}

func (t *SearchDriveTool) Name() string {
	return "search_drive_files"
}

func (t *SearchDriveTool) Description() string {
	return "Searches the user's Google Drive for files whose name contains the query. Returns file ids usable with read_google_doc."
}

func (t *SearchDriveTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Text to match against file names.",
			},
			"max_results": map[string]any{
				"type":        "integer",
				"description": "How many files to list (default 10, max 25).",
			},
			"folder": map[string]any{
				"type":        "string",
				"description": "Optional folder name. When given, only files inside that folder are returned.",
			},
		},
		"required": []string{"query"},
	}
}

// findFolderID resolves a folder name to its Drive id, newest match first.
func (t *SearchDriveTool) findFolderID(ctx context.Context, name string) (string, error) {
	escaped := strings.ReplaceAll(name, `'`, `\'`)
	query := url.Values{}
	query.Set("q", fmt.Sprintf("name contains '%s' and mimeType = 'application/vnd.google-apps.folder' and trashed = false", escaped))
	query.Set("pageSize", "1")
	query.Set("fields", "files(id,name)")
	query.Set("orderBy", "modifiedTime desc")

	var resp struct {
		Files []struct {
			ID string `json:"id"`
		} `json:"files"`
	}
	if err := t.client.GetJSON(ctx, driveBase+"?"+query.Encode(), &resp); err != nil {
		return "", fmt.Errorf("failed to look up folder: %w", err)
	}
	if len(resp.Files) == 0 {
		return "", fmt.Errorf("no folder named %q found", name)
	}
	return resp.Files[0].ID, nil
}

func (t *SearchDriveTool) Execute(ctx context.Context, args string) (string, error) {
	var params struct {
		Query      string `json:"query"`
		MaxResults int    `json:"max_results"`
		Folder     string `json:"folder"`
	}
	if err := json.Unmarshal([]byte(args), &params); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if params.Query == "" {
		return "", fmt.Errorf("query is required")
	}
	if params.MaxResults <= 0 {
		params.MaxResults = 10
	}
	if params.MaxResults > 25 {
		params.MaxResults = 25
	}

	// Single quotes in the name filter are escaped per the Drive query syntax.
	escaped := strings.ReplaceAll(params.Query, `'`, `\'`)
	filter := fmt.Sprintf("name contains '%s' and trashed = false", escaped)
	if params.Folder != "" {
		folderID, err := t.findFolderID(ctx, params.Folder)
		if err != nil {
			return "", err
		}
		filter += fmt.Sprintf(" and '%s' in parents", folderID)
	}
	query := url.Values{}
	query.Set("q", filter)
	query.Set("pageSize", fmt.Sprintf("%d", params.MaxResults))
	query.Set("fields", "files(id,name,mimeType,modifiedTime)")
	query.Set("orderBy", "modifiedTime desc")

	var resp struct {
		Files []struct {
			ID           string `json:"id"`
			Name         string `json:"name"`
			MimeType     string `json:"mimeType"`
			ModifiedTime string `json:"modifiedTime"`
		} `json:"files"`
	}
	if err := t.client.GetJSON(ctx, driveBase+"?"+query.Encode(), &resp); err != nil {
		return "", fmt.Errorf("failed to search drive: %w", err)
	}
	if len(resp.Files) == 0 {
		return fmt.Sprintf("No files found matching %q.", params.Query), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d file(s) matching %q:\n", len(resp.Files), params.Query)
	for _, f := range resp.Files {
		fmt.Fprintf(&b, "- [%s] %s (%s, modified %s)\n", f.ID, f.Name, f.MimeType, f.ModifiedTime)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
