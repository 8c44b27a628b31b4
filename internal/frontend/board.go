package frontend

import (
	"fmt"

	"github.com/janpfeifer/MemoryPairs/internal/config"
	"github.com/janpfeifer/MemoryPairs/internal/game"
	"github.com/maxence-charriere/go-app/v10/pkg/app"
	"k8s.io/klog/v2"
)

// Board is the page with the cards, the countdown and the outcome modal.
type Board struct {
	app.Compo
	game  *game.Game
	Error string

	onUpdate func()
}

// gameEnv collects the game settings the server forwarded to the browser.
func gameEnv() map[string]string {
	env := make(map[string]string)
	for _, key := range []string{config.EnvRoundSeconds, config.EnvFlipDelay, config.EnvSymbols} {
		if v := app.Getenv(key); v != "" {
			env[key] = v
		}
	}
	return env
}

func (b *Board) OnMount(ctx app.Context) {
	klog.Infof("Board component: OnMount called")
	if app.IsServer {
		return
	}

	settings, err := config.LoadGame(gameEnv())
	if err != nil {
		klog.Errorf("Board component: %v, using defaults", err)
		settings = config.DefaultGame()
	}
	opts := settings.Options()
	opts.Dispatch = func(fn func()) {
		ctx.Dispatch(func(ctx app.Context) { fn() })
	}
	opts.OnOutcome = func(result game.Result) {
		go State.SendResult(result)
	}

	g, err := game.NewGame(opts)
	if err != nil {
		b.Error = fmt.Sprintf("Invalid game settings: %v", err)
		klog.Errorf("Board component: %s", b.Error)
		return
	}
	b.game = g
	b.game.StartNewGame()

	b.onUpdate = func() {
		ctx.Dispatch(func(ctx app.Context) {})
	}
	State.Listeners["board"] = b.onUpdate

	ctx.Async(func() {
		if err := State.ConnectWS(); err != nil {
			klog.Warningf("Board component: Playing offline: %v", err)
		}
	})
}

func (b *Board) OnDismount() {
	klog.Infof("Board component: OnDismount called")
	delete(State.Listeners, "board")
	if b.game != nil {
		b.game.Stop()
	}
}

func (b *Board) OnAppUpdate(ctx app.Context) {
	klog.Infof("Board component: App update available, not reloading not to interrupt the game...")
}

func (b *Board) onCardClick(index int) app.EventHandler {
	return func(ctx app.Context, e app.Event) {
		e.PreventDefault()
		b.game.Click(index)
	}
}

func (b *Board) onPlayAgain(ctx app.Context, e app.Event) {
	e.PreventDefault()
	b.game.PlayAgain()
}

func (b *Board) renderCard(c game.CardView) app.UI {
	classes := []string{"card"}
	if c.Flipped {
		classes = append(classes, "card_opened")
	}
	backClasses := []string{"card__side", "card__side_back"}
	switch c.Mark {
	case game.MarkWrong:
		backClasses = append(backClasses, "card_opened_wrong")
	case game.MarkRight:
		backClasses = append(backClasses, "card_opened_right")
	}

	return app.Div().
		Class(classes...).
		DataSet("card-id", c.Index).
		OnClick(b.onCardClick(c.Index)).
		Body(
			app.Div().Class("card__side", "card__side_front"),
			app.Div().Class(backClasses...).Text(c.Value),
		)
}

func (b *Board) renderModal(s game.Snapshot) app.UI {
	if !s.ModalVisible {
		return app.Text("")
	}

	var scores app.UI = app.Text("")
	if sb := State.Scoreboard; sb != nil {
		best := "-"
		if sb.Wins > 0 {
			best = game.FormatClock(sb.BestSeconds)
		}
		scores = app.P().Class("modal-scores").Text(
			fmt.Sprintf("Wins: %d · Losses: %d · Best time: %s", sb.Wins, sb.Losses, best))
	}

	return app.Div().Class("modal-wrapper").Style("display", "block").Body(
		app.Div().Class("modal").Body(
			app.H2().Class("modal-header").Text(s.Outcome.Header()),
			app.P().Text(fmt.Sprintf("%d pairs found in %d moves.", s.Matches, s.Moves)),
			scores,
			app.Button().
				Class("play-again-btn").
				Text(s.Outcome.ButtonLabel()).
				OnClick(b.onPlayAgain),
		),
	)
}

func (b *Board) Render() app.UI {
	if b.Error != "" {
		return app.Main().Class("container").Body(
			app.Article().Body(
				app.H2().Text("Game Error"),
				app.P().Style("color", "red").Text(b.Error),
			),
		)
	}

	if b.game == nil {
		return app.Main().Class("container").Body(
			&TopBar{},
			app.Div().Aria("busy", "true").Text("Shuffling cards..."),
		)
	}

	s := b.game.Snapshot()
	cards := make([]app.UI, 0, len(s.Cards))
	for _, c := range s.Cards {
		cards = append(cards, b.renderCard(c))
	}

	timerDisplay := "none"
	if s.TimerVisible {
		timerDisplay = "block"
	}

	return app.Main().Class("container").Body(
		&TopBar{},
		app.Div().Class("timer").Style("display", timerDisplay).Text(s.Clock),
		app.Div().Class("cards").Body(cards...),
		b.renderModal(s),
	)
}
