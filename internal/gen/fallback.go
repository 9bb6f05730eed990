package gen

import (
	"fmt"

	"ai-content-boost/internal/domain/model"
)

// Fallback synthesizes a deterministic placeholder payload matching the
// mode's schema, one element per input item. It never fails and never calls
// out; reviewers see a clearly marked draft instead of a dead job.
func Fallback(mode model.Mode, items []model.ContentItem) map[string]any {
	out := make([]any, 0, len(items))
	for _, it := range items {
		title := it.Title
		if title == "" {
			title = it.ContentID
		}
		switch mode.Canonical() {
		case model.ModeMetaRefresh:
			out = append(out, map[string]any{
				"content_id":       it.ContentID,
				"meta_title":       truncate(title, 60),
				"meta_description": truncate(placeholderBody(it), 160),
			})
		case model.ModeFullRewrite:
			out = append(out, map[string]any{
				"content_id": it.ContentID,
				"title":      title,
				"body":       placeholderBody(it),
				"summary":    fmt.Sprintf("Draft pending review for %s.", it.ContentID),
			})
		default:
			out = append(out, map[string]any{
				"content_id": it.ContentID,
				"title":      title,
				"body":       placeholderBody(it),
			})
		}
	}
	return map[string]any{"items": out}
}

func placeholderBody(it model.ContentItem) string {
	if it.Excerpt != "" {
		return it.Excerpt
	}
	return fmt.Sprintf("Placeholder draft for %s/%s %s.", it.SourceSystem, it.ContentType, it.ContentID)
}
