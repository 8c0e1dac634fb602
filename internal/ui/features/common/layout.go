package common

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
	"github.com/leapstack-labs/regionmap/internal/ui/resources"
)

// Script and style locations loaded by every page.
const (
	LeafletCSS  = "https://unpkg.com/leaflet@1.9.4/dist/leaflet.css"
	LeafletJS   = "https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"
	DatastarJS  = "https://cdn.jsdelivr.net/gh/starfederation/datastar@v1.0.0/bundles/datastar.js"
	AppTitle    = "Regionmap"
	HomeLinkTxt = "Back to the map"
)

// Page wraps body in the HTML document shared by all pages.
func Page(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>%s - %s</title>
<link rel="stylesheet" href="%s">
<link rel="stylesheet" href="%s">
<script type="module" src="%s"></script>
</head>
<body>
<nav class="top"><a href="/">%s</a></nav>
<main>
`, templ.EscapeString(title), AppTitle, LeafletCSS, resources.StaticPath("app.css"), DatastarJS, AppTitle); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := fmt.Fprint(w, "</main>\n</body>\n</html>\n")
		return err
	})
}

// Message renders a heading, a paragraph and a link back to the map. Used for
// the empty and not-found states.
func Message(heading, text string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<section class="message">
<h1>%s</h1>
<p>%s</p>
<a class="back" href="/">&larr; %s</a>
</section>
`, templ.EscapeString(heading), templ.EscapeString(text), HomeLinkTxt)
		return err
	})
}
