package wiki

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/olgasafonova/mediawiki-export/tracing"
)

// allPagesResponse is the list=allpages reply. A nil AllPages means the container
// was absent, as opposed to present and empty.
type allPagesResponse struct {
	Query *struct {
		AllPages []struct {
			PageID int    `json:"pageid"`
			Title  string `json:"title"`
		} `json:"allpages"`
	} `json:"query"`
	Continue *struct {
		APContinue string `json:"apcontinue"`
	} `json:"continue"`
	Error *apiError `json:"error"`
}

// ListAllTitles follows the allpages continuation cursor until it is exhausted and
// returns every title in the order the API delivered them.
//
// A response that is not valid JSON aborts enumeration with a *ResponseParseError.
// Valid JSON without a usable query.allpages container ends enumeration without error.
func (c *Client) ListAllTitles(ctx context.Context) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "wiki.list_titles")
	defer span.End()
	tracing.AddWikiAttributes(span, ActionAllPages, "")

	titles := []string{}
	seen := make(map[string]struct{})
	cursor := ""

	for batch := 1; ; batch++ {
		resp, err := c.listPage(ctx, cursor)
		if err != nil {
			tracing.RecordError(span, err)
			return nil, err
		}

		if resp.Query == nil || resp.Query.AllPages == nil {
			attrs := []any{"batch", batch, "titles_so_far", len(titles)}
			if resp.Error != nil {
				attrs = append(attrs, "api_error", resp.Error.Code, "info", resp.Error.Info)
			}
			c.logger.Warn("Listing response has no allpages container, ending enumeration", attrs...)
			break
		}

		added := 0
		for _, p := range resp.Query.AllPages {
			if _, dup := seen[p.Title]; dup {
				c.logger.Debug("Skipping duplicate title", "title", p.Title)
				continue
			}
			seen[p.Title] = struct{}{}
			titles = append(titles, p.Title)
			added++
		}
		c.logger.Debug("Fetched title batch",
			"batch", batch,
			"cursor", cursor,
			"titles", added)

		if resp.Continue == nil || resp.Continue.APContinue == "" {
			break
		}

		next := resp.Continue.APContinue
		if next == cursor {
			err := fmt.Errorf("%w: apcontinue=%q", ErrCursorLoop, next)
			tracing.RecordError(span, err)
			return nil, err
		}
		cursor = next

		if err := c.pacer.Wait(ctx); err != nil {
			tracing.RecordError(span, err)
			return nil, err
		}
	}

	return titles, nil
}

// listPage fetches one page of the allpages listing starting at cursor
func (c *Client) listPage(ctx context.Context, cursor string) (*allPagesResponse, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "allpages")
	params.Set("aplimit", strconv.Itoa(c.config.PageLimit))
	if cursor != "" {
		params.Set("apcontinue", cursor)
	}

	resp, err := c.apiRequest(ctx, ActionAllPages, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}

	var result allPagesResponse
	err = decode(ActionAllPages, "", resp, &result)
	if errors.Is(err, ErrUnexpectedShape) {
		c.logger.Debug("Listing response did not match allpages layout", "error", err)
		return &allPagesResponse{}, nil
	}
	if err != nil {
		c.logger.Error("Failed to parse JSON for page titles",
			"status", resp.StatusCode,
			"snippet", snippet(resp.Body))
		return nil, err
	}
	return &result, nil
}
