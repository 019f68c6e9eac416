package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
)

// Prompter obtains one line of operator input
type Prompter interface {
	ReadLine(ctx context.Context, prompt string) (string, error)
}

// linePrompter prints the prompt and reads up to the next newline
type linePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newLinePrompter(in io.Reader, out io.Writer) *linePrompter {
	return &linePrompter{in: bufio.NewReader(in), out: out}
}

func (p *linePrompter) ReadLine(ctx context.Context, prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)

	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := p.in.ReadString('\n')
		ch <- result{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		// a final line without trailing newline still counts
		if r.err != nil && !(errors.Is(r.err, io.EOF) && r.line != "") {
			return "", r.err
		}
		return strings.TrimRight(r.line, "\r\n"), nil
	}
}

// formPrompter asks for the same single line through a huh text input
type formPrompter struct {
	out io.Writer
}

func (p formPrompter) ReadLine(ctx context.Context, prompt string) (string, error) {
	var value string
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(strings.TrimSpace(prompt)).
				Value(&value),
		),
	).RunWithContext(ctx)
	if err != nil {
		return "", err
	}
	fmt.Fprintf(p.out, "%s %s\n", strings.TrimSpace(prompt), value)
	return value, nil
}

// newPrompter reads plain lines from stdin. The huh input is used only when
// interactive is set and stdin is a terminal.
func newPrompter(interactive bool, out io.Writer) Prompter {
	fd := os.Stdin.Fd()
	if interactive && (isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)) {
		return formPrompter{out: out}
	}
	return newLinePrompter(os.Stdin, out)
}
