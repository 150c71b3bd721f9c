package deploy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrUnknownTag is returned for a tag no routine carries.
var ErrUnknownTag = errors.New("deploy: unknown tag")

// Select returns the routines carrying any of tags, preserving execution
// order. No tags selects everything.
func Select(routines []Routine, tags []string) ([]Routine, error) {
	if len(tags) == 0 {
		tags = []string{TagAll}
	}

	known := make(map[string]bool)
	for _, r := range routines {
		for _, t := range r.Tags {
			known[t] = true
		}
	}
	want := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if !known[t] {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTag, t)
		}
		want[t] = true
	}

	var out []Routine
	for _, r := range routines {
		for _, t := range r.Tags {
			if want[t] {
				out = append(out, r)
				break
			}
		}
	}
	return out, nil
}

// Runner executes routines against one environment.
type Runner struct {
	env      *Env
	routines []Routine
}

// NewRunner creates a runner over the standard routines.
func NewRunner(env *Env) *Runner {
	return &Runner{env: env, routines: Routines()}
}

// Run executes the routines selected by tags in order, stopping at the first
// failure.
func (r *Runner) Run(ctx context.Context, tags []string) error {
	selected, err := Select(r.routines, tags)
	if err != nil {
		return err
	}

	logger := r.env.logger()
	for i, routine := range selected {
		logger.Info("running deploy routine",
			slog.String("routine", routine.Name),
			slog.String("network", r.env.Network.Name),
			slog.Int("step", i+1),
			slog.Int("steps", len(selected)),
		)
		if err := routine.Run(ctx, r.env); err != nil {
			return fmt.Errorf("routine %s failed: %w", routine.Name, err)
		}
	}
	return nil
}
