package peoplesoft

import (
	"strings"

	"github.com/kballard/go-shellquote"

	"github.com/teranos/psq/errors"
)

// Prompt is one query prompt: the unique prompt name and the value to bind.
type Prompt struct {
	Name  string `json:"name" toml:"name" yaml:"name"`
	Value string `json:"value" toml:"value" yaml:"value"`
}

// Prompts is an ordered prompt list.
//
// PeopleSoft aligns prompt_uniquepromptname and prompt_fieldvalue by
// position, so order is part of the request. Never build this from a map.
type Prompts []Prompt

// Names returns prompt names in order.
func (p Prompts) Names() []string {
	names := make([]string, len(p))
	for i, prompt := range p {
		names[i] = prompt.Name
	}
	return names
}

// Values returns prompt values in the same order as Names.
// Empty values keep their slot.
func (p Prompts) Values() []string {
	values := make([]string, len(p))
	for i, prompt := range p {
		values[i] = prompt.Value
	}
	return values
}

// Set replaces the value of an existing prompt in place, or appends a new one.
func (p Prompts) Set(name, value string) Prompts {
	for i := range p {
		if p[i].Name == name {
			p[i].Value = value
			return p
		}
	}
	return append(p, Prompt{Name: name, Value: value})
}

// ParsePrompts builds Prompts from NAME=VALUE pairs, keeping argument order.
// "NAME=" binds an empty value. A repeated name overwrites the earlier value
// without moving it.
func ParsePrompts(pairs []string) (Prompts, error) {
	var prompts Prompts
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, errors.WithHint(
				errors.Newf("invalid prompt %q: expected NAME=VALUE", pair),
				"use NAME= for an empty prompt value",
			)
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, errors.Newf("invalid prompt %q: empty name", pair)
		}
		prompts = prompts.Set(name, value)
	}
	return prompts, nil
}

// ParsePromptString splits a shell-quoted list such as
//
//	VENDOR_STATUS=I VENDOR_ID_OFFSET='' "DESCR=Office Supplies"
//
// and parses each word with ParsePrompts.
func ParsePromptString(s string) (Prompts, error) {
	words, err := shellquote.Split(s)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid prompt list %q", s)
	}
	return ParsePrompts(words)
}
