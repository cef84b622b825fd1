package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// readPassword is swapped in tests so they never touch the terminal.
var readPassword = term.ReadPassword

var errNotJSON = errors.New("document is not valid JSON")

// readLine returns the next line without its line ending. A last line
// without a newline is returned as is; io.EOF is only reported once
// nothing is left.
func (a *App) readLine() (string, error) {
	line, err := a.reader.ReadString('\n')
	if errors.Is(err, io.EOF) && line != "" {
		err = nil
	}
	return strings.TrimRight(line, "\r\n"), err
}

// ask prints "prompt [def]: " and returns the trimmed answer, or def when
// the answer is empty.
func (a *App) ask(prompt, def string) (string, error) {
	if def != "" {
		prompt += " [" + def + "]"
	}
	if _, err := fmt.Fprint(a.out, prompt+": "); err != nil {
		return "", err
	}
	line, err := a.readLine()
	if err != nil {
		return "", err
	}
	if line = strings.TrimSpace(line); line == "" {
		return def, nil
	}
	return line, nil
}

// askSecret reads a line from the terminal without echo.
func (a *App) askSecret(prompt string) (string, error) {
	if _, err := fmt.Fprint(a.out, prompt+": "); err != nil {
		return "", err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(a.out)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(prompt), err)
	}
	return string(pw), nil
}

// askDocument reads a JSON document spread over several lines. Input ends
// at the first empty line or at end of input.
func (a *App) askDocument(prompt string) (string, error) {
	fmt.Fprintf(a.out, "%s, finish with an empty line:\n", prompt)

	var b strings.Builder
	for {
		line, err := a.readLine()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(line) == "" {
			break
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
	}

	doc := strings.TrimSpace(b.String())
	if !json.Valid([]byte(doc)) {
		return "", fmt.Errorf("%w: %.40q", errNotJSON, doc)
	}
	return doc, nil
}
