// SPDX-License-Identifier: MIT

// Package textui provides the small set of human-facing text
// formatting helpers cmd/neograph-demo needs: a locale-aware printer
// and a "start-end of total" viewport-position renderer, in the same spirit
// as the teacher's lib/textui/text.go.
package textui

import (
	"fmt"
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var printer = message.NewPrinter(language.English)

// Fprintf is like fmt.Fprintf but understands message.Printer's
// extensions (thousands separators, etc).
func Fprintf(w io.Writer, key string, a ...any) (n int, err error) {
	return printer.Fprintf(w, key, a...)
}

// Sprintf is like fmt.Sprintf but understands message.Printer's
// extensions.
func Sprintf(key string, a ...any) string {
	return printer.Sprintf(key, a...)
}

// Window renders a viewport position as "offset-(offset+count) of
// total", with every number rendered using thousands separators so a 10^5+ node dataset
// (spec §1's target scale) stays readable on a terminal.
type Window struct {
	Offset, Count, Total int
}

var _ fmt.Stringer = Window{}

func (w Window) String() string {
	return printer.Sprintf("%v-%v of %v", number.Decimal(w.Offset), number.Decimal(w.Offset+w.Count), number.Decimal(w.Total))
}
