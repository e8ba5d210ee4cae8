package web

import (
	"context"
	"html"
	"io"

	"github.com/a-h/templ"
)

type BoardGame struct {
	Title    string
	YesVotes int
}

type BoardColumn struct {
	Status string
	Label  string
	Games  []BoardGame
}

// Board renders the read-only status board: one column per lifecycle
// state, proposed through completed.
func Board(columns []BoardColumn) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>CoopLyst</title>
    <link rel="stylesheet" href="/static/styles.css"/>
  </head>
  <body>
    <main class="shell">
      <header class="hero">
        <span class="tag">CoopLyst</span>
        <h1>Pick together. Play together.</h1>
      </header>
      <section class="board">
`); err != nil {
			return err
		}
		for _, column := range columns {
			if _, err := io.WriteString(w, `        <div class="column column-`+html.EscapeString(column.Status)+`">
          <h2>`+html.EscapeString(column.Label)+`</h2>
          <ul>
`); err != nil {
				return err
			}
			for _, game := range column.Games {
				entry := html.EscapeString(game.Title)
				if column.Status == "proposed" || column.Status == "voting" {
					entry += ` <span class="votes">` + itoa(game.YesVotes) + `</span>`
				}
				if _, err := io.WriteString(w, `            <li>`+entry+`</li>
`); err != nil {
					return err
				}
			}
			if _, err := io.WriteString(w, `          </ul>
        </div>
`); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `      </section>
    </main>
  </body>
</html>
`)
		return err
	})
}
