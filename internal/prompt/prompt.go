// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package prompt asks the operator questions using huh forms.
package prompt

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"

	"github.com/wneessen/easyfatt-export/internal/geocode"
	"github.com/wneessen/easyfatt-export/internal/i18n"
)

// none is the value of the option that picks nothing.
const none = -1

var ErrNotInteractive = errors.New("standard input is not a terminal")

// Prompter reads answers from in and writes questions to out.
type Prompter struct {
	in          io.Reader
	out         io.Writer
	loc         *i18n.Localizer
	interactive bool
	accessible  bool
}

// New returns a Prompter on arbitrary streams. It always counts as interactive and asks
// its questions line by line.
func New(in io.Reader, out io.Writer, loc *i18n.Localizer) *Prompter {
	return &Prompter{
		in:          in,
		out:         out,
		loc:         loc,
		interactive: true,
		accessible:  true,
	}
}

// NewTerminal returns a Prompter on stdin and stdout. It is interactive only if stdin is a
// terminal. Setting ACCESSIBLE in the environment replaces the menus with numbered lists.
func NewTerminal(loc *i18n.Localizer) *Prompter {
	fd := os.Stdin.Fd()
	p := New(os.Stdin, os.Stdout, loc)
	p.interactive = isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	p.accessible = os.Getenv("ACCESSIBLE") != ""
	return p
}

func (p *Prompter) Interactive() bool {
	return p.interactive
}

// Select lists items followed by an option labeled none. It returns the index into items,
// or -1 if none was picked or the operator aborted.
func (p *Prompter) Select(title string, items []string, noneLabel string) (int, error) {
	if !p.interactive {
		return none, ErrNotInteractive
	}
	options := make([]huh.Option[int], 0, len(items)+1)
	for i, item := range items {
		options = append(options, huh.NewOption(item, i))
	}
	options = append(options, huh.NewOption(noneLabel, none))

	choice := none
	field := huh.NewSelect[int]().
		Title(title).
		Options(options...).
		Value(&choice)
	if err := p.run(field); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return none, nil
		}
		return none, err
	}
	return choice, nil
}

// Confirm asks a yes or no question. Aborting means no.
func (p *Prompter) Confirm(question string) (bool, error) {
	if !p.interactive {
		return false, ErrNotInteractive
	}
	var answer bool
	field := huh.NewConfirm().
		Title(question).
		Affirmative(p.loc.Get("Yes")).
		Negative(p.loc.Get("No")).
		Value(&answer)
	if err := p.run(field); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, err
	}
	return answer, nil
}

// Choose lets the operator pick one of several geocoding candidates.
func (p *Prompter) Choose(address string, candidates []geocode.Location) (geocode.Location, bool, error) {
	items := make([]string, len(candidates))
	for i, candidate := range candidates {
		items[i] = candidate.String()
	}
	choice, err := p.Select(p.loc.Getf("Several locations were found for %q:", address), items,
		p.loc.Get("None of these"))
	if err != nil {
		return geocode.Location{}, false, err
	}
	if choice < 0 {
		return geocode.Location{}, false, nil
	}
	return candidates[choice], true, nil
}

// Println writes a line for the operator.
func (p *Prompter) Println(line string) {
	_, _ = fmt.Fprintln(p.out, line)
}

func (p *Prompter) run(field huh.Field) error {
	form := huh.NewForm(huh.NewGroup(field)).
		WithAccessible(p.accessible).
		WithInput(p.in).
		WithOutput(p.out).
		WithShowHelp(!p.accessible)
	if err := form.Run(); err != nil {
		return fmt.Errorf("failed to read answer: %w", err)
	}
	return nil
}
