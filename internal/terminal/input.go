package terminal

import (
	"bufio"
	"io"
	"strings"

	"github.com/manifoldco/promptui"
)

// LineReader reads user input one line at a time
type LineReader struct {
	r *bufio.Reader
}

// NewLineReader wraps in
func NewLineReader(in io.Reader) *LineReader {
	return &LineReader{r: bufio.NewReader(in)}
}

// ReadLine returns the next line without its line ending. A final line
// without a newline is returned before io.EOF.
func (l *LineReader) ReadLine() (string, error) {
	line, err := l.r.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Command is a parsed slash command
type Command struct {
	Name string
	Arg  string
}

// ParseCommand recognises "/name arg" lines and the bare words exit and
// quit. Anything else is a chat message.
func ParseCommand(line string) (Command, bool) {
	trimmed := strings.TrimSpace(line)
	switch strings.ToLower(trimmed) {
	case "exit", "quit":
		return Command{Name: "exit"}, true
	}
	if !strings.HasPrefix(trimmed, "/") || len(trimmed) == 1 {
		return Command{}, false
	}

	name, arg, _ := strings.Cut(trimmed[1:], " ")
	name = strings.ToLower(name)
	if name == "quit" {
		name = "exit"
	}
	return Command{Name: name, Arg: strings.TrimSpace(arg)}, true
}

// PromptConfirm asks a yes/no question on the terminal
func PromptConfirm(label string) bool {
	p := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}
	_, err := p.Run()
	return err == nil
}
