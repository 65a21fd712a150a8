// Package mention suggests users to mention while composing a comment and
// reads and writes the inline mention markup @[Display Name](username).
package mention

import (
	"regexp"
	"strings"
)

const MaxSuggestions = 10

var (
	markupPattern   = regexp.MustCompile(`@\[([^\[\]\n]+)\]\(([^()\s]+)\)`)
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,64}$`)
)

type Candidate struct {
	ID       string `json:"id"`
	Display  string `json:"display"`
	Username string `json:"username"`
	// Markup is what a client inserts when the suggestion is picked.
	Markup string `json:"markup,omitempty"`
}

type Mention struct {
	DisplayName string `json:"displayName"`
	Username    string `json:"username"`
	Start       int    `json:"-"`
	End         int    `json:"-"`
}

// Suggest returns the candidates whose username or display name contains the
// query, ignoring case, in their original order and capped at MaxSuggestions.
// A blank query yields no suggestions.
func Suggest(query string, candidates []Candidate) []Candidate {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return []Candidate{}
	}

	matches := make([]Candidate, 0, min(len(candidates), MaxSuggestions))
	for _, candidate := range candidates {
		if !strings.Contains(strings.ToLower(candidate.Username), needle) &&
			!strings.Contains(strings.ToLower(candidate.Display), needle) {
			continue
		}
		matches = append(matches, candidate)
		if len(matches) == MaxSuggestions {
			break
		}
	}
	return matches
}

// Commit renders the canonical markup for a mention. Brackets and line breaks
// are stripped from the display name so the result always parses back. It
// reports false when username cannot appear in a mention.
func Commit(displayName, username string) (string, bool) {
	if !ValidUsername(username) {
		return "", false
	}

	display := strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', '\n', '\r':
			return -1
		}
		return r
	}, displayName)
	display = strings.TrimSpace(display)
	if display == "" {
		display = username
	}
	return "@[" + display + "](" + username + ")", true
}

// ValidUsername reports whether s can appear as the username of a mention.
func ValidUsername(s string) bool {
	return usernamePattern.MatchString(s)
}

// Parse extracts every well-formed mention from body. Occurrences that do not
// match the full markup, or that carry an invalid username, are not mentions.
func Parse(body string) []Mention {
	found := make([]Mention, 0)
	for _, loc := range markupPattern.FindAllStringSubmatchIndex(body, -1) {
		username := body[loc[4]:loc[5]]
		if !ValidUsername(username) {
			continue
		}
		found = append(found, Mention{
			DisplayName: body[loc[2]:loc[3]],
			Username:    username,
			Start:       loc[0],
			End:         loc[1],
		})
	}
	return found
}

// Usernames returns the distinct usernames mentioned in body in order of first
// appearance.
func Usernames(body string) []string {
	seen := make(map[string]bool)
	names := make([]string, 0)
	for _, m := range Parse(body) {
		if seen[m.Username] {
			continue
		}
		seen[m.Username] = true
		names = append(names, m.Username)
	}
	return names
}

// Rewrite replaces each well-formed mention in body with replace(m). Malformed
// occurrences are left untouched.
func Rewrite(body string, replace func(m Mention) string) string {
	mentions := Parse(body)
	if len(mentions) == 0 {
		return body
	}

	var b strings.Builder
	last := 0
	for _, m := range mentions {
		b.WriteString(body[last:m.Start])
		b.WriteString(replace(m))
		last = m.End
	}
	b.WriteString(body[last:])
	return b.String()
}
