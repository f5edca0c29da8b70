package console

import (
	"io"
	"os"

	"golang.org/x/term"

	"telnetd/util"
)

// Open attaches a Console to in and out.  When in is a terminal it is
// switched to raw mode and read through a line editor; the returned
// restore func puts the terminal back and must be called once the
// console is done.  For any other input restore does nothing.
func Open(op Operator, in *os.File, out io.Writer, logger *util.Logger) (*Console, func(), error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return New(op, in, out, logger), func() {}, nil
	}

	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, nil, err
	}
	t := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{in, out}, "")

	c := &Console{
		op:     op,
		lines:  termReader{t},
		out:    t,
		logger: logger.Named("console"),
	}
	restore := func() {
		if err := term.Restore(fd, state); err != nil {
			logger.Warn("restoring terminal: %v", err)
		}
	}
	return c, restore, nil
}

// termReader reads lines through an x/term line editor.  Ctrl-D on an
// empty line ends the input.
type termReader struct {
	t *term.Terminal
}

func (r termReader) readLine(prompt string) (string, error) {
	r.t.SetPrompt(prompt)
	return r.t.ReadLine()
}
