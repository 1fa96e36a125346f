package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hammamikhairi/snapcook/internal/conversation"
	"github.com/hammamikhairi/snapcook/internal/display"
	"github.com/hammamikhairi/snapcook/internal/domain"
	"github.com/hammamikhairi/snapcook/internal/engine"
)

var chatCmd = &cobra.Command{
	Use:     "chat",
	GroupID: "generate",
	Short:   "Talk through what you have, then /cook it into recipes",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd)
		defer cancel()

		var a *app
		ui := display.NewUI(func() display.Status { return chatStatus(a) })

		a, err := newApp(ctx, loadedCfg, ui.Printf)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireModel(); err != nil {
			return err
		}
		if err := a.requireSession(); err != nil {
			return err
		}

		defer a.startRefresh(ctx)()

		s := &chatSession{
			app:       a,
			ui:        ui,
			allergies: a.cfg.Allergies,
			chat:      conversation.NewChat(a.agent.Client(), a.log, conversation.WithAllergies(a.cfg.Allergies)),
		}

		fmt.Println(display.RenderBanner(display.TermWidth()))
		fmt.Println(display.BannerStyle.Render("  Tell me what's in your kitchen. /cook when you're ready, /help for more."))
		fmt.Println()

		go func() {
			ui.WaitReady()
			s.run(ctx)
			ui.Quit()
		}()

		// Bubble Tea owns the terminal until quit.
		if err := ui.Run(); err != nil {
			a.log.Error("display: %v", err)
		}
		cancel()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func chatStatus(a *app) display.Status {
	if a == nil || a.gen == nil {
		return display.Status{}
	}
	st := a.gen.State()
	s := display.Status{
		Busy:    st.Phase == engine.PhaseRequesting,
		Recipes: len(a.store.Recipes(a.session.UserID)),
	}
	if s.Busy && st.Request != nil {
		s.Since = st.Request.StartedAt
	}
	if err := a.store.LastError(); err != nil {
		s.SyncErr = "offline"
	}
	return s
}

type chatSession struct {
	app       *app
	ui        *display.UI
	chat      *conversation.Chat
	allergies string
}

func (s *chatSession) run(ctx context.Context) {
	states, unsubscribe := s.app.gen.Subscribe()
	defer unsubscribe()
	go s.showResults(ctx, states)

	input := s.ui.InputChan()
	for {
		var line string
		select {
		case <-ctx.Done():
			return
		case <-s.ui.QuitChan():
			return
		case line = <-input:
		}

		cmd := conversation.ParseCommand(line)
		s.app.log.Debug("chat: %s (payload=%q)", cmd.Type, cmd.Payload)
		if cmd.Type == conversation.CommandQuit {
			return
		}
		s.handle(ctx, cmd)
	}
}

func (s *chatSession) handle(ctx context.Context, cmd conversation.Command) {
	switch cmd.Type {
	case conversation.CommandSay:
		if cmd.Payload == "" {
			return
		}
		s.ui.PrintHint("thinking...")
		reply, err := s.chat.Send(ctx, cmd.Payload)
		if err != nil {
			s.app.log.Error("chat: %v", err)
			s.ui.PrintUrgent(engine.Describe(err))
			return
		}
		s.ui.PrintChat(reply)

	case conversation.CommandCook:
		list := cmd.Payload
		if list == "" {
			list = s.chat.Ingredients()
		}
		s.start(ctx, engine.IngredientInput{
			Ingredients: engine.SplitIngredients(list),
			Allergies:   s.allergies,
		})

	case conversation.CommandHealthy:
		s.start(ctx, engine.HealthyInput{Preferences: cmd.Payload})

	case conversation.CommandRecipes:
		s.ui.Println(display.RenderRecipeList(s.app.store.Recipes(s.app.session.UserID)))

	case conversation.CommandAllergies:
		if cmd.Payload == "" {
			if s.allergies == "" {
				s.ui.PrintHint("No allergies set. Use /allergies peanuts, shellfish")
			} else {
				s.ui.PrintHint("Avoiding: " + s.allergies)
			}
			return
		}
		s.allergies = cmd.Payload
		s.chat = conversation.NewChat(s.app.agent.Client(), s.app.log, conversation.WithAllergies(s.allergies))
		s.ui.PrintHint("Avoiding " + s.allergies + ". The chat has been restarted.")

	case conversation.CommandReset:
		s.chat.Reset()
		s.ui.PrintHint("Chat cleared.")

	case conversation.CommandHelp:
		for _, line := range strings.Split(conversation.HelpText, "\n") {
			s.ui.PrintHint(line)
		}
	}
}

func (s *chatSession) start(ctx context.Context, in engine.Input) {
	err := s.app.gen.Start(ctx, in)
	switch {
	case err == nil:
		s.ui.PrintHint("Cooking up recipes...")
	case errors.Is(err, domain.ErrBusy):
		s.ui.PrintHint(engine.Describe(err))
	default:
		s.ui.PrintUrgent(engine.Describe(err))
	}
}

// showResults prints each successful generation as a recipe list.
func (s *chatSession) showResults(ctx context.Context, states <-chan engine.State) {
	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-states:
			if !ok {
				return
			}
			if st.Phase == engine.PhaseSucceeded {
				s.ui.Println(display.RenderRecipeList(st.LastResult))
			}
		}
	}
}
