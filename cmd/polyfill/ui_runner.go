package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tunnelvisionlabs/language-types/internal/diag"
	"github.com/tunnelvisionlabs/language-types/internal/gen"
	"github.com/tunnelvisionlabs/language-types/internal/ui"
)

type genOutcome struct {
	outcomes []unitOutcome
	bag      *diag.Bag
	err      error
}

func runGenerateWithUI(ctx context.Context, title string, units []string, req genRequest) ([]unitOutcome, *diag.Bag, error) {
	events := make(chan gen.Event, 256)
	outcomeCh := make(chan genOutcome, 1)

	go func() {
		outcomes, bag, err := runGenerate(ctx, req, gen.ChannelSink{Ch: events})
		outcomeCh <- genOutcome{outcomes: outcomes, bag: bag, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, units, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	// keep the generator unblocked if the UI exited early
	go func() {
		for range events {
		}
	}()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.outcomes, outcome.bag, uiErr
	}
	return outcome.outcomes, outcome.bag, outcome.err
}
