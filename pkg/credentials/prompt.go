package credentials

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter reads values from an interactive user.
type Prompter interface {
	Ask(label string) (string, error)
	Secret(label string) (string, error)
}

// TermPrompter prompts on a terminal. Secret disables echo when In is a
// terminal and falls back to a plain line read otherwise.
type TermPrompter struct {
	out    io.Writer
	reader *bufio.Reader
	fd     int
	isTerm func(fd int) bool
	readPw func(fd int) ([]byte, error)
}

// NewTermPrompter prompts on stderr and reads from stdin.
func NewTermPrompter() *TermPrompter {
	return &TermPrompter{
		out:    os.Stderr,
		reader: bufio.NewReader(os.Stdin),
		fd:     int(os.Stdin.Fd()),
		isTerm: term.IsTerminal,
		readPw: term.ReadPassword,
	}
}

// Ask prints label and reads one line with surrounding space trimmed.
func (p *TermPrompter) Ask(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	line, err := p.readLine()
	return strings.TrimSpace(line), err
}

// Secret prints label and reads one line without echo. Only the line
// terminator is stripped; other whitespace is part of the secret.
func (p *TermPrompter) Secret(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	if !p.isTerm(p.fd) {
		return p.readLine()
	}
	b, err := p.readPw(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(b), "\r\n"), nil
}

func (p *TermPrompter) readLine() (string, error) {
	line, err := p.reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
