package api

import (
	"html/template"
	"io"
)

// commentsPage wraps a book's stored comments in a minimal page that follows
// the reader's light or dark preference. Comments come from the user's own
// library and are rendered as HTML.
var commentsPage = template.Must(template.New("comments").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
:root { color-scheme: light dark; }
body { font-family: -apple-system, system-ui, sans-serif; font-size: 14px; line-height: 1.45; margin: 12px; color: #1d1d1f; background: #ffffff; }
a { color: #0066cc; }
@media (prefers-color-scheme: dark) {
  body { color: #f5f5f7; background: #1e1e1e; }
  a { color: #4da3ff; }
}
</style>
</head>
<body>
{{.Comments}}
</body>
</html>
`))

func renderComments(w io.Writer, title, comments string) error {
	return commentsPage.Execute(w, struct {
		Title    string
		Comments template.HTML
	}{Title: title, Comments: template.HTML(comments)})
}
