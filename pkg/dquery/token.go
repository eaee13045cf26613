package dquery

import (
	"fmt"
	"strings"
)

// Command is the filter kind introduced by a clause marker.
type Command int

// Command constants.
const (
	None Command = iota // no marker: block type filter
	Hash                // '#': free-text filter
	At                  // '@': span-presence filter
)

// DefaultTextMode is the match mode of a '#' clause without colon or quote.
const DefaultTextMode = "contains"

// Marker returns the clause marker for the command ("" for None).
func (c Command) Marker() string {
	switch c {
	case Hash:
		return "#"
	case At:
		return "@"
	default:
		return ""
	}
}

func (c Command) String() string {
	switch c {
	case None:
		return "NONE"
	case Hash:
		return "HASH"
	case At:
		return "AT"
	default:
		return fmt.Sprintf("Command(%d)", int(c))
	}
}

// MarshalText encodes the command by name.
func (c Command) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes a command name.
func (c *Command) UnmarshalText(b []byte) error {
	switch strings.ToUpper(string(b)) {
	case "NONE", "":
		*c = None
	case "HASH":
		*c = Hash
	case "AT":
		*c = At
	default:
		return fmt.Errorf("unknown dquery command %q", string(b))
	}
	return nil
}

// Token is one filter clause. A nil Modifier or Content means absent;
// a pointer to "" means present but empty.
type Token struct {
	Command  Command `json:"command"`
	Modifier *string `json:"modifier,omitempty"`
	Content  *string `json:"content,omitempty"`
}

func (t Token) String() string {
	return fmt.Sprintf("(%s, %s, %s)", t.Command, QuoteOptional(t.Modifier), QuoteOptional(t.Content))
}

// QuoteOptional renders an optional token part: "-" when absent, Go-quoted otherwise.
func QuoteOptional(s *string) string {
	if s == nil {
		return "-"
	}
	return fmt.Sprintf("%q", *s)
}

func ptr(s string) *string { return &s }
