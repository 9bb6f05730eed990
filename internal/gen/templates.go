// Package gen builds the prompts and shape contracts handed to generation
// backends, and synthesizes placeholder results when no backend output is
// available. Template wording is versioned through the schema name.
package gen

import (
	"fmt"
	"strings"

	"ai-content-boost/internal/domain/model"
	"ai-content-boost/internal/domain/ports/adapter"
)

var schemas = map[model.Mode]adapter.Schema{
	model.ModeQuickBoost: {
		Name:       "quick_boost_v1",
		ItemFields: []string{"content_id", "title", "body"},
	},
	model.ModeFullRewrite: {
		Name:       "full_rewrite_v1",
		ItemFields: []string{"content_id", "title", "body", "summary"},
	},
	model.ModeMetaRefresh: {
		Name:       "meta_refresh_v1",
		ItemFields: []string{"content_id", "meta_title", "meta_description"},
	},
}

// SchemaFor resolves the shape contract for a mode. Legacy aliases resolve
// to their canonical schema.
func SchemaFor(mode model.Mode) (adapter.Schema, error) {
	s, ok := schemas[mode.Canonical()]
	if !ok {
		return adapter.Schema{}, fmt.Errorf("no schema for mode %q", mode)
	}
	return s, nil
}

var modeInstructions = map[model.Mode]string{
	model.ModeQuickBoost:  "Improve each item's title and body for clarity and appeal. Keep the original meaning and language.",
	model.ModeFullRewrite: "Rewrite each item's title and body from scratch and add a two-sentence summary. Keep the original language.",
	model.ModeMetaRefresh: "Write a search-optimized meta_title (max 60 chars) and meta_description (max 160 chars) for each item, in the item's language.",
}

// BuildPrompt renders the single-turn instruction for a job. The response
// contract is embedded in the prompt; adapters validate the returned JSON
// against the same schema.
func BuildPrompt(mode model.Mode, items []model.ContentItem) (string, adapter.Schema, error) {
	schema, err := SchemaFor(mode)
	if err != nil {
		return "", adapter.Schema{}, err
	}

	var b strings.Builder
	b.WriteString(modeInstructions[mode.Canonical()])
	b.WriteString("\n\nRespond with a single JSON object and nothing else: ")
	fmt.Fprintf(&b, "{\"items\": [{...}]} where every element has the fields %s. ", strings.Join(quoteAll(schema.ItemFields), ", "))
	fmt.Fprintf(&b, "Return exactly %d element(s), one per input item, keeping each content_id unchanged.\n\nInput items:\n", len(items))
	for i, it := range items {
		fmt.Fprintf(&b, "%d. content_id=%s language=%s", i+1, it.ContentID, it.Language)
		if it.Title != "" {
			fmt.Fprintf(&b, " title=%q", it.Title)
		}
		if it.Excerpt != "" {
			fmt.Fprintf(&b, " excerpt=%q", truncate(it.Excerpt, 500))
		}
		b.WriteString("\n")
	}
	return b.String(), schema, nil
}

func quoteAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = fmt.Sprintf("%q", s)
	}
	return out
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
