package wiki

import (
	"context"
	"errors"
	"net/url"
	"sort"

	"github.com/olgasafonova/mediawiki-export/tracing"
)

// revisionsResponse is the prop=revisions reply with rvslots=main
type revisionsResponse struct {
	Query *struct {
		Pages map[string]struct {
			Title     string `json:"title"`
			Revisions []struct {
				Slots map[string]struct {
					Star    *string `json:"*"`
					Content *string `json:"content"`
				} `json:"slots"`
			} `json:"revisions"`
		} `json:"pages"`
	} `json:"query"`
}

// FetchContent returns the main-slot wikitext of the latest revision of title.
// It returns an empty string when the page cannot be fetched or has no revision;
// failures are logged and never abort the caller.
func (c *Client) FetchContent(ctx context.Context, title string) string {
	ctx, span := tracing.StartSpan(ctx, "wiki.fetch_content")
	defer span.End()
	tracing.AddWikiAttributes(span, ActionRevisions, title)

	params := url.Values{}
	params.Set("action", "query")
	params.Set("prop", "revisions")
	params.Set("rvprop", "content")
	params.Set("rvslots", "main")
	params.Set("titles", title)

	resp, err := c.apiRequest(ctx, ActionRevisions, params)
	if err != nil {
		tracing.RecordError(span, err)
		c.logger.Warn("Failed to fetch page", "title", title, "error", err)
		return ""
	}

	var result revisionsResponse
	if err := decode(ActionRevisions, title, resp, &result); err != nil {
		tracing.RecordError(span, err)
		if errors.Is(err, ErrUnexpectedShape) {
			c.logger.Warn("Unexpected revisions layout", "title", title, "error", err)
			return ""
		}
		c.logger.Warn("Failed to parse JSON for page",
			"title", title,
			"status", resp.StatusCode,
			"snippet", snippet(resp.Body))
		return ""
	}

	if result.Query == nil || result.Query.Pages == nil {
		return ""
	}

	// Page IDs are map keys; sort them so "first page" is stable.
	ids := make([]string, 0, len(result.Query.Pages))
	for id := range result.Query.Pages {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		page := result.Query.Pages[id]
		if len(page.Revisions) == 0 {
			continue
		}
		slot, ok := page.Revisions[0].Slots["main"]
		if !ok {
			return ""
		}
		// formatversion=1 puts the text under "*", formatversion=2 under "content"
		if slot.Star != nil {
			return *slot.Star
		}
		if slot.Content != nil {
			return *slot.Content
		}
		return ""
	}

	return ""
}
