package internal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrTooManyTries is returned when a validated prompt runs out of attempts.
var ErrTooManyTries = errors.New("too many tries")

// LineReader yields one line of input at a time.
type LineReader interface {
	ReadLine(ctx context.Context) (string, error)
}

// Validator accepts or rejects an answer. The message is shown on rejection.
type Validator func(string) (bool, string)

type promptConfig struct {
	tries     int
	validator Validator
}

type PromptOption func(*promptConfig)

func WithValidator(v Validator) PromptOption {
	return func(cfg *promptConfig) {
		cfg.validator = v
	}
}

func WithMaxTries(i int) PromptOption {
	return func(cfg *promptConfig) {
		cfg.tries = i
	}
}

// Prompt writes prompt and reads answers until one passes validation.
func Prompt(ctx context.Context, w io.Writer, r LineReader, prompt string, opts ...PromptOption) (string, error) {
	config := &promptConfig{}
	for _, opt := range opts {
		opt(config)
	}

	tries := 0
	for {
		if _, err := io.WriteString(w, prompt); err != nil {
			return "", err
		}

		input, err := r.ReadLine(ctx)
		if err != nil {
			return "", err
		}
		input = strings.TrimSpace(input)

		if config.validator != nil {
			ok, msg := config.validator(input)
			if !ok {
				if _, err := io.WriteString(w, msg); err != nil {
					return "", err
				}

				tries++
				if config.tries > 0 && config.tries == tries {
					return "", ErrTooManyTries
				}
				continue
			}
		}

		return input, nil
	}
}

// PromptYN asks a yes or no question.
func PromptYN(ctx context.Context, w io.Writer, r LineReader, prompt string) (bool, error) {
	str, err := Prompt(ctx, w, r, prompt, WithValidator(
		func(str string) (bool, string) {
			switch strings.ToLower(str) {
			case "y", "yes", "n", "no":
				return true, ""
			default:
				return false, "enter 'yes' or 'no'\n"
			}
		},
	))
	if err != nil {
		return false, err
	}

	switch strings.ToLower(str) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

type scanReader struct {
	sc *bufio.Scanner
}

// NewLineReader reads lines from r synchronously. Cancellation is only
// observed between lines.
func NewLineReader(r io.Reader) LineReader {
	return &scanReader{sc: bufio.NewScanner(r)}
}

func (s *scanReader) ReadLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !s.sc.Scan() {
		if err := s.sc.Err(); err != nil {
			return "", fmt.Errorf("reading line: %w", err)
		}
		return "", io.EOF
	}
	return s.sc.Text(), nil
}
