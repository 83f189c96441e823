package storage

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/pixil98/go-clocktower/internal"
)

const (
	defaultSelectorRowLength = 80
	defaultSelectorRowCount  = 5
)

type validatingSelectable interface {
	ValidatingSpec
	Selector() string
}

// SelectableStorer presents the records of a store as a numbered menu.
type SelectableStorer[T validatingSelectable] struct {
	Storer[T]

	options []option[T]
	output  []string
}

type option[T validatingSelectable] struct {
	id  string
	val T
}

func NewSelectableStorer[T validatingSelectable](st Storer[T]) *SelectableStorer[T] {
	s := &SelectableStorer[T]{Storer: st}

	for id, val := range s.GetAll() {
		s.options = append(s.options, option[T]{id: id, val: val})
	}
	slices.SortFunc(s.options, func(a, b option[T]) int {
		return cmp.Or(cmp.Compare(a.val.Selector(), b.val.Selector()), cmp.Compare(a.id, b.id))
	})
	s.build()

	return s
}

// build lays the options out in columns, filling each column top to bottom.
func (s *SelectableStorer[T]) build() {
	colWidth := 1
	for _, v := range s.options {
		// Room for "nn. " and two spaces of padding.
		if l := len(v.val.Selector()) + 7; l > colWidth {
			colWidth = l
		}
	}

	numCols := max(defaultSelectorRowLength/colWidth, 1)
	numRows := max(len(s.options)/numCols, defaultSelectorRowCount)

	rows := make([]string, numRows)
	for i, v := range s.options {
		rows[i%numRows] += fmt.Sprintf("%2d. %-*s  ", i+1, colWidth-5, v.val.Selector())
	}

	s.output = rows
}

// Len returns the number of options.
func (s *SelectableStorer[T]) Len() int {
	return len(s.options)
}

// Prompt shows the menu and returns the id of the chosen record.
func (s *SelectableStorer[T]) Prompt(ctx context.Context, w io.Writer, r internal.LineReader, prompt string) (string, error) {
	if _, err := fmt.Fprintf(w, "%s\n", prompt); err != nil {
		return "", err
	}

	for _, row := range s.output {
		if row == "" {
			continue
		}
		if _, err := fmt.Fprintf(w, "%s\n", row); err != nil {
			return "", err
		}
	}

	selection, err := internal.Prompt(ctx, w, r, "Make your selection: ", internal.WithValidator(
		func(str string) (bool, string) {
			i, err := strconv.Atoi(str)
			if err != nil || s.Select(i) == "" {
				return false, "Invalid selection!\n"
			}
			return true, ""
		},
	))
	if err != nil {
		return "", err
	}

	i, err := strconv.Atoi(selection)
	if err != nil {
		return "", err
	}

	return s.Select(i), nil
}

// Select returns the id of the 1-based option i, or "" when out of range.
func (s *SelectableStorer[T]) Select(i int) string {
	if i < 1 || i > len(s.options) {
		return ""
	}
	return s.options[i-1].id
}
