// Package htmltext renders the HTML fragments Calibre stores as book comments
// into plain text for terminals and text-only clients.
package htmltext

import (
	"strings"

	"golang.org/x/net/html"
)

// blockTags end a line when they close. <br> is handled as a start tag.
var blockTags = map[string]bool{
	"p": true, "div": true, "li": true, "tr": true, "blockquote": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"ul": true, "ol": true, "table": true, "pre": true,
}

// ToText strips tags, decodes entities, and keeps paragraph breaks as
// newlines. Script and style contents are dropped.
func ToText(fragment string) string {
	if fragment == "" {
		return ""
	}

	var sb strings.Builder
	z := html.NewTokenizer(strings.NewReader(fragment))
	skip := 0

	for {
		switch z.Next() {
		case html.ErrorToken:
			return normalize(sb.String())

		case html.TextToken:
			if skip == 0 {
				sb.Write(z.Text())
			}

		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			switch tag := string(name); {
			case tag == "script" || tag == "style":
				skip++
			case tag == "br":
				sb.WriteByte('\n')
			case tag == "li":
				sb.WriteString("\n- ")
			case blockTags[tag]:
				sb.WriteByte('\n')
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			switch tag := string(name); {
			case tag == "script" || tag == "style":
				if skip > 0 {
					skip--
				}
			case blockTags[tag]:
				sb.WriteByte('\n')
			}
		}
	}
}

// normalize collapses runs of whitespace inside lines and drops blank lines.
func normalize(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
