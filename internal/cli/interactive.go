package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/gusdev/gus/pkg/gus/output"
)

// ReadPassphrase reads a passphrase from stdin. On a terminal the input is
// not echoed and has to be entered twice; otherwise the first line is used,
// which lets scripts pipe it in.
func (c *CLI) ReadPassphrase(prompt string) (string, *output.Error) {
	if f, ok := c.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return readPassphraseFromTTY(f, prompt, c.output.Stderr())
	}
	line, err := bufio.NewReader(c.stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", output.NewErrorf(output.CodeInvalidInput, "failed to read passphrase: %v", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func readPassphraseFromTTY(tty *os.File, prompt string, stderr io.Writer) (string, *output.Error) {
	fd := int(tty.Fd())
	read := func(p string) (string, *output.Error) {
		_, _ = fmt.Fprint(stderr, p)
		b, err := term.ReadPassword(fd)
		_, _ = fmt.Fprintln(stderr)
		if err != nil {
			return "", output.NewErrorf(output.CodeInvalidInput, "failed to read passphrase: %v", err)
		}
		return string(b), nil
	}

	first, e := read(prompt)
	if e != nil {
		return "", e
	}
	second, e := read("Confirm passphrase: ")
	if e != nil {
		return "", e
	}
	if first != second {
		return "", output.NewError(output.CodeInvalidInput, "passphrases do not match")
	}
	return first, nil
}

// PromptConfirm asks the user for a y/n confirmation.
// It opens /dev/tty directly so confirmation works even when stdin is piped.
func PromptConfirm(prompt string, stderr io.Writer) (bool, *output.Error) {
	tty, err := os.Open("/dev/tty")
	if err != nil {
		return false, output.NewError(output.CodeUsageError, "no terminal available for confirmation; pass --yes to skip it")
	}
	defer func() { _ = tty.Close() }()

	fd := int(tty.Fd())
	if !term.IsTerminal(fd) {
		return false, output.NewError(output.CodeUsageError, "no terminal available for confirmation; pass --yes to skip it")
	}

	_, _ = fmt.Fprintf(stderr, "%s [y/N]: ", prompt)

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return false, output.NewErrorf(output.CodeGeneralError, "failed to set raw mode: %v", err)
	}
	defer func() { _ = term.Restore(fd, oldState) }()

	buf := make([]byte, 1)
	for {
		if _, err := tty.Read(buf); err != nil {
			_, _ = fmt.Fprintf(stderr, "\r\n")
			return false, output.NewErrorf(output.CodeGeneralError, "failed to read input: %v", err)
		}

		switch buf[0] {
		case 'y', 'Y':
			_, _ = fmt.Fprintf(stderr, "y\r\n")
			return true, nil
		case 'n', 'N', '\r', '\n':
			_, _ = fmt.Fprintf(stderr, "n\r\n")
			return false, nil
		case 3, 27: // Ctrl-C or Escape
			_, _ = fmt.Fprintf(stderr, "\r\nCancelled.\r\n")
			return false, output.NewError(output.CodeGeneralError, "cancelled by user")
		}
	}
}
