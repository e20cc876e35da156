// Package command defines the closed set of blueprint edits.
package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Kind identifies a command variant.
type Kind string

const (
	KindAddPage    Kind = "ADD_PAGE"
	KindRenamePage Kind = "RENAME_PAGE"
	KindDeletePage Kind = "DELETE_PAGE"
)

// Command is a structured, executable edit instruction. AddPage, RenamePage
// and DeletePage are the only implementations.
type Command interface {
	Kind() Kind
	// String renders the canonical text form of the command.
	String() string
	// Validate reports missing page names.
	Validate() error
	sealed()
}

// notBlank rejects strings that are empty after trimming.
var notBlank = validation.By(func(v any) error {
	if s, _ := v.(string); strings.TrimSpace(s) == "" {
		return errors.New("cannot be blank")
	}
	return nil
})

// AddPage appends a new page.
type AddPage struct {
	PageName string `json:"pageName"`
}

func (AddPage) Kind() Kind       { return KindAddPage }
func (c AddPage) String() string { return "add page " + c.PageName }
func (AddPage) sealed()          {}

func (c AddPage) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.PageName, notBlank),
	)
}

// RenamePage renames the first page matching OldName.
type RenamePage struct {
	OldName string `json:"oldName"`
	NewName string `json:"newName"`
}

func (RenamePage) Kind() Kind { return KindRenamePage }
func (c RenamePage) String() string {
	return "rename page " + c.OldName + " to " + c.NewName
}
func (RenamePage) sealed() {}

func (c RenamePage) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.OldName, notBlank),
		validation.Field(&c.NewName, notBlank),
	)
}

// DeletePage removes the first page matching PageName.
type DeletePage struct {
	PageName string `json:"pageName"`
}

func (DeletePage) Kind() Kind       { return KindDeletePage }
func (c DeletePage) String() string { return "delete page " + c.PageName }
func (DeletePage) sealed()          {}

func (c DeletePage) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.PageName, notBlank),
	)
}

func NewAddPage(name string) Command { return AddPage{PageName: name} }

func NewRenamePage(oldName, newName string) Command {
	return RenamePage{OldName: oldName, NewName: newName}
}

func NewDeletePage(name string) Command { return DeletePage{PageName: name} }

// envelope is the wire shape: {"type": "ADD_PAGE", "payload": {...}}.
type envelope struct {
	Type    Kind            `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Marshal encodes c in its tagged wire form.
func Marshal(c Command) ([]byte, error) {
	payload, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Type: c.Kind(), Payload: payload})
}

// Unmarshal decodes the tagged wire form back into a Command.
func Unmarshal(data []byte) (Command, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("command: decode envelope: %w", err)
	}
	var (
		cmd Command
		err error
	)
	switch env.Type {
	case KindAddPage:
		var c AddPage
		err = json.Unmarshal(env.Payload, &c)
		cmd = c
	case KindRenamePage:
		var c RenamePage
		err = json.Unmarshal(env.Payload, &c)
		cmd = c
	case KindDeletePage:
		var c DeletePage
		err = json.Unmarshal(env.Payload, &c)
		cmd = c
	default:
		return nil, fmt.Errorf("command: unknown type %q", env.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("command: decode %s payload: %w", env.Type, err)
	}
	return cmd, nil
}

// List is a slice of commands that encodes each element in wire form.
type List []Command

// MarshalJSON implements json.Marshaler.
func (l List) MarshalJSON() ([]byte, error) {
	out := make([]json.RawMessage, 0, len(l))
	for _, c := range l {
		data, err := Marshal(c)
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *List) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(List, 0, len(raw))
	for _, r := range raw {
		c, err := Unmarshal(r)
		if err != nil {
			return err
		}
		out = append(out, c)
	}
	*l = out
	return nil
}
