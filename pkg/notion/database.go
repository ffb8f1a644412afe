package notion

import (
	"context"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
)

// QueryAll fetches all pages from a Notion database, following cursors.
// Rate limiting is enforced by the Client.
func QueryAll(ctx context.Context, c Client, dbID string, base *notionapi.DatabaseQueryRequest) ([]notionapi.Page, error) {
	var all []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{StartCursor: cursor}
		if base != nil {
			req.Filter = base.Filter
			req.Sorts = base.Sorts
			req.PageSize = base.PageSize
		}

		resp, err := c.QueryDatabase(ctx, dbID, req)
		if err != nil {
			return nil, eris.Wrap(err, "notion: query all page")
		}
		all = append(all, resp.Results...)

		if !resp.HasMore || resp.NextCursor == "" {
			return all, nil
		}
		cursor = resp.NextCursor
	}
}

// QuerySorted fetches all pages ordered by the given property ascending.
func QuerySorted(ctx context.Context, c Client, dbID, property string) ([]notionapi.Page, error) {
	req := &notionapi.DatabaseQueryRequest{
		Sorts: []notionapi.SortObject{
			{Property: property, Direction: notionapi.SortOrderASC},
		},
		PageSize: 100,
	}
	pages, err := QueryAll(ctx, c, dbID, req)
	if err != nil {
		return nil, eris.Wrapf(err, "notion: query %s sorted by %s", dbID, property)
	}
	return pages, nil
}

// PropertyText returns the plain text of a title, rich text, select or
// status property, or "" when the property is missing or of another type.
func PropertyText(props notionapi.Properties, name string) string {
	p, ok := props[name]
	if !ok {
		return ""
	}
	switch v := p.(type) {
	case *notionapi.TitleProperty:
		return joinRichText(v.Title)
	case notionapi.TitleProperty:
		return joinRichText(v.Title)
	case *notionapi.RichTextProperty:
		return joinRichText(v.RichText)
	case notionapi.RichTextProperty:
		return joinRichText(v.RichText)
	case *notionapi.SelectProperty:
		return strings.TrimSpace(v.Select.Name)
	case notionapi.SelectProperty:
		return strings.TrimSpace(v.Select.Name)
	case *notionapi.StatusProperty:
		return strings.TrimSpace(v.Status.Name)
	case notionapi.StatusProperty:
		return strings.TrimSpace(v.Status.Name)
	}
	return ""
}

func joinRichText(rt []notionapi.RichText) string {
	var b strings.Builder
	for _, r := range rt {
		b.WriteString(r.PlainText)
	}
	return strings.TrimSpace(b.String())
}
