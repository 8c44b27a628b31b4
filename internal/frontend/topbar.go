package frontend

import (
	"fmt"

	"github.com/janpfeifer/MemoryPairs/internal/game"
	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

type TopBar struct {
	app.Compo
}

func (t *TopBar) onBannerClick(ctx app.Context, e app.Event) {
	ctx.Navigate("/")
}

func (t *TopBar) Render() app.UI {
	var status app.UI
	switch {
	case State.Conn == nil:
		status = app.Span().Class("offline").Text("Offline")
	case State.Scoreboard != nil:
		sb := State.Scoreboard
		best := "-"
		if sb.Wins > 0 {
			best = game.FormatClock(sb.BestSeconds)
		}
		status = app.Span().Text(fmt.Sprintf("🏆 %d · 💀 %d · ⏱ %s", sb.Wins, sb.Losses, best))
	default:
		status = app.Span().Aria("busy", "true").Text("Loading scores...")
	}

	actions := []app.UI{app.Li().Body(status)}
	if State.Error != "" {
		actions = append(actions, app.Li().Body(app.Span().Style("color", "red").Text(State.Error)))
	}

	return app.Nav().Body(
		app.Ul().Body(
			app.Li().Body(
				app.Strong().
					Style("cursor", "pointer").
					OnClick(t.onBannerClick).
					Text("Memory Pairs"),
			),
		),
		app.Ul().Body(actions...),
	)
}
