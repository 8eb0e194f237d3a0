package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"polylab/internal/driver"
	"polylab/internal/ui"
)

type processOutcome struct {
	results []driver.Result
	err     error
}

// processWithUI runs the requests while a progress view fed by phase events
// draws on stderr.
func processWithUI(ctx context.Context, title string, d *driver.Driver, reqs []driver.Request, jobs int) ([]driver.Result, error) {
	events := make(chan driver.PhaseEvent, 256)
	outcomeCh := make(chan processOutcome, 1)

	files := make([]string, len(reqs))
	for i, req := range reqs {
		files[i] = req.Path
	}

	go func() {
		observed := d.WithObserver(func(ev driver.PhaseEvent) { events <- ev })
		results, err := observed.ProcessAll(ctx, reqs, jobs)
		close(events)
		outcomeCh <- processOutcome{results: results, err: err}
	}()

	model := ui.NewProgressModel(title, files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stderr), tea.WithInput(nil))
	_, uiErr := program.Run()
	if uiErr != nil {
		// the model stopped reading; keep the workers from blocking
		go func() {
			for range events {
			}
		}()
	}
	outcome := <-outcomeCh
	if uiErr != nil && outcome.err == nil {
		return outcome.results, uiErr
	}
	return outcome.results, outcome.err
}
