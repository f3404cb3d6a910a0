// Package prompt abstracts the operator dialogue away from the
// reconciliation engine: the engine consumes answers, never a terminal.
// Production sessions run charmbracelet huh forms; tests use Scripted.
package prompt

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/voxlane/asrctl/internal/firewall"
)

// Session supplies the operator inputs the firewall flow needs. Invalid
// input is the implementation's problem: every method returns an already
// validated answer (terminal implementations re-prompt, scripted ones
// fail the test).
type Session interface {
	// HostAddress asks for a dotted-quad IPv4 address.
	HostAddress(title string) (string, error)

	// Description asks for a free-text label for an address.
	Description(title string) (string, error)

	// Confirm asks a yes/no question with the given default answer.
	Confirm(question string, def bool) (bool, error)

	// Selection asks for an index selection string ("1,3" or "all") over
	// a list the caller has already displayed.
	Selection(title string) (string, error)
}

// Terminal is the interactive Session used in production.
type Terminal struct{}

// NewTerminal returns the interactive session.
func NewTerminal() *Terminal { return &Terminal{} }

func (t *Terminal) HostAddress(title string) (string, error) {
	var value string
	err := huh.NewInput().
		Title(title).
		Placeholder("203.0.113.5").
		Validate(func(s string) error {
			if !firewall.ValidHost(s) {
				return errors.New("enter a dotted-quad IPv4 address")
			}
			return nil
		}).
		Value(&value).
		Run()
	if err != nil {
		return "", fmt.Errorf("read address: %w", err)
	}
	return value, nil
}

func (t *Terminal) Description(title string) (string, error) {
	var value string
	err := huh.NewInput().
		Title(title).
		Placeholder("Office").
		Validate(func(s string) error {
			if s == "" {
				return errors.New("description must not be empty")
			}
			return nil
		}).
		Value(&value).
		Run()
	if err != nil {
		return "", fmt.Errorf("read description: %w", err)
	}
	return value, nil
}

func (t *Terminal) Confirm(question string, def bool) (bool, error) {
	value := def
	err := huh.NewConfirm().
		Title(question).
		Affirmative("Yes").
		Negative("No").
		Value(&value).
		Run()
	if err != nil {
		return false, fmt.Errorf("read confirmation: %w", err)
	}
	return value, nil
}

func (t *Terminal) Selection(title string) (string, error) {
	var value string
	err := huh.NewInput().
		Title(title).
		Placeholder(`1,3 or "all"`).
		Value(&value).
		Run()
	if err != nil {
		return "", fmt.Errorf("read selection: %w", err)
	}
	return value, nil
}

// Scripted is a Session that replays canned answers in order. It satisfies
// the same contract as Terminal without any terminal I/O, so engine and
// command flows are testable end to end.
type Scripted struct {
	Addresses    []string
	Descriptions []string
	Confirms     []bool
	Selections   []string

	addrIdx, descIdx, confirmIdx, selIdx int
}

func (s *Scripted) HostAddress(string) (string, error) {
	if s.addrIdx >= len(s.Addresses) {
		return "", errors.New("scripted session: no more addresses")
	}
	v := s.Addresses[s.addrIdx]
	s.addrIdx++
	return v, nil
}

func (s *Scripted) Description(string) (string, error) {
	if s.descIdx >= len(s.Descriptions) {
		return "", errors.New("scripted session: no more descriptions")
	}
	v := s.Descriptions[s.descIdx]
	s.descIdx++
	return v, nil
}

func (s *Scripted) Confirm(_ string, def bool) (bool, error) {
	if s.confirmIdx >= len(s.Confirms) {
		return def, nil
	}
	v := s.Confirms[s.confirmIdx]
	s.confirmIdx++
	return v, nil
}

func (s *Scripted) Selection(string) (string, error) {
	if s.selIdx >= len(s.Selections) {
		return "", errors.New("scripted session: no more selections")
	}
	v := s.Selections[s.selIdx]
	s.selIdx++
	return v, nil
}
