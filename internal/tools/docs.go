package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/udaysagarm/GentAI/internal/gapi"
	"github.com/udaysagarm/GentAI/internal/logger"
)

const docsBase = "https://docs.googleapis.com/v1/documents"

// docElement is one structural element of a document body. Paragraphs and
// tables nest arbitrarily, so extraction walks a worklist rather than
// recursing on a fixed shape.
type docElement struct {
	Paragraph *struct {
		Elements []struct {
			TextRun *struct {
				Content string `json:"content"`
			} `json:"textRun"`
		} `json:"elements"`
	} `json:"paragraph"`
	Table *struct {
		TableRows []struct {
			TableCells []struct {
				Content []docElement `json:"content"`
			} `json:"tableCells"`
		} `json:"tableRows"`
	} `json:"table"`
}

type docBody struct {
	Content []docElement `json:"content"`
}

// flattenDoc extracts the document text in reading order.
func flattenDoc(body docBody) string {
	var b strings.Builder

	work := make([]docElement, len(body.Content))
	copy(work, body.Content)

	for len(work) > 0 {
		el := work[0]
		work = work[1:]

		if el.Paragraph != nil {
			for _, pe := range el.Paragraph.Elements {
				if pe.TextRun != nil {
					b.WriteString(pe.TextRun.Content)
				}
			}
		}
		if el.Table != nil {
			for _, row := range el.Table.TableRows {
				for _, cell := range row.TableCells {
					work = append(work, cell.Content...)
				}
			}
		}
	}

	return strings.TrimSpace(b.String())
}

// ReadDocTool reads the full text of a Google Doc.
type ReadDocTool struct {
	client *gapi.Client
}

// NewReadDocTool creates the read_google_doc tool.
func NewReadDocTool(client *gapi.Client) *ReadDocTool {
	return &ReadDocTool{client: client}
}

func (t *ReadDocTool) Name() string {
	return "read_google_doc"
}

func (t *ReadDocTool) Description() string {
	return "Reads the full text content of a Google Doc by its document id. Find document ids with search_drive_files."
}

func (t *ReadDocTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"document_id": map[string]any{
				"type":        "string",
				"description": "The Google Doc id to read.",
			},
		},
		"required": []string{"document_id"},
	}
}

func (t *ReadDocTool) Execute(ctx context.Context, args string) (string, error) {
	var params struct {
		DocumentID string `json:"document_id"`
	}
	if err := json.Unmarshal([]byte(args), &params); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if params.DocumentID == "" {
		return "", fmt.Errorf("document_id is required")
	}

	var doc struct {
		Title string  `json:"title"`
		Body  docBody `json:"body"`
	}
	docURL := fmt.Sprintf("%s/%s", docsBase, url.PathEscape(params.DocumentID))
	if err := t.client.GetJSON(ctx, docURL, &doc); err != nil {
		return "", fmt.Errorf("failed to read document: %w", err)
	}

	text := flattenDoc(doc.Body)
	if text == "" {
		return fmt.Sprintf("Document %q is empty.", doc.Title), nil
	}
	return fmt.Sprintf("Document: %s\n\n%s", doc.Title, text), nil
}

// AppendDocTool appends text to the end of a Google Doc.
type AppendDocTool struct {
	client *gapi.Client
	logger *logger.Logger
}

// NewAppendDocTool creates the append_to_google_doc tool.
func NewAppendDocTool(client *gapi.Client, log *logger.Logger) *AppendDocTool {
	return &AppendDocTool{client: client, logger: log}
}

func (t *AppendDocTool) Name() string {
	return "append_to_google_doc"
}

func (t *AppendDocTool) Description() string {
	return "Appends text to the end of a Google Doc by its document id."
}

func (t *AppendDocTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"document_id": map[string]any{
				"type":        "string",
				"description": "The Google Doc id to append to.",
			},
			"text": map[string]any{
				"type":        "string",
				"description": "The text to append.",
			},
		},
		"required": []string{"document_id", "text"},
	}
}

func (t *AppendDocTool) Execute(ctx context.Context, args string) (string, error) {
	var params struct {
		DocumentID string `json:"document_id"`
		Text       string `json:"text"`
	}
	if err := json.Unmarshal([]byte(args), &params); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if params.DocumentID == "" || params.Text == "" {
		return "", fmt.Errorf("document_id and text are required")
	}

	text := params.Text
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}

	body := map[string]any{
		"requests": []map[string]any{
			{
				"insertText": map[string]any{
					"endOfSegmentLocation": map[string]any{},
					"text":                 text,
				},
			},
		},
	}
	updateURL := fmt.Sprintf("%s/%s:batchUpdate", docsBase, url.PathEscape(params.DocumentID))
	if err := t.client.PostJSON(ctx, updateURL, body, nil); err != nil {
		return "", fmt.Errorf("failed to append to document: %w", err)
	}

	t.logger.InfoCtx(ctx, "Appended to document",
		logger.Field{Key: "document_id", Value: params.DocumentID},
		logger.Field{Key: "chars", Value: len(params.Text)})
	return fmt.Sprintf("Appended %d characters to document %s.", len(params.Text), params.DocumentID), nil
}
