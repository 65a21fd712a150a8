// Package render turns a stored comment body into sanitized HTML for display.
package render

import (
	"bytes"
	"discussion/pkg/mention"
	"net/url"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

const ProfilePathPrefix = "/profile/"

type Renderer struct {
	markdown goldmark.Markdown
	policy   *bluemonday.Policy
}

func NewRenderer() *Renderer {
	policy := bluemonday.UGCPolicy()
	policy.AddTargetBlankToFullyQualifiedLinks(true)
	policy.RequireNoReferrerOnLinks(true)

	return &Renderer{
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(
				html.WithHardWraps(),
				html.WithXHTML(),
			),
		),
		policy: policy,
	}
}

// Body renders body as HTML. Mentions of usernames for which known returns true
// become links to the user's profile; all other mentions render as plain
// "@Display Name" text.
func (r *Renderer) Body(body string, known func(username string) bool) string {
	source := RewriteMentions(body, known)

	var buf bytes.Buffer
	if err := r.markdown.Convert([]byte(source), &buf); err != nil {
		return r.policy.Sanitize(source)
	}
	return string(r.policy.SanitizeBytes(buf.Bytes()))
}

// RewriteMentions replaces mention markup with markdown: a profile link for
// known users and plain text otherwise.
func RewriteMentions(body string, known func(username string) bool) string {
	return mention.Rewrite(body, func(m mention.Mention) string {
		if known != nil && known(m.Username) {
			return "[@" + m.DisplayName + "](" + ProfilePathPrefix + url.PathEscape(m.Username) + ")"
		}
		return "@" + m.DisplayName
	})
}
