// Package console implements the operator menu that runs on the
// server's own stdin.  It drives an Operator, which the server
// satisfies, and prints the status strings the operator actions return.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"telnetd/util"
)

// Operator is the set of actions the console can invoke.
type Operator interface {
	List() string
	Kill(id string) string
	KillAll() string
	Shutdown() string
	Stats() string
}

// Menu is printed before each choice is read.
const Menu = "1. List all active clients\n" +
	"2. Disconnect a single client\n" +
	"3. Disconnect all clients\n" +
	"4. Shutdown server and quit\n" +
	"5. Show server statistics\n"

const (
	menuPrompt    = "> "
	idPrompt      = "|____ Please enter the connection id to disconnect: "
	confirmPrompt = "****** This action will disconnect all connected clients and shutdown the server, do you want to continue (y/n)? "
)

// lineReader reads one line of operator input after showing prompt.
type lineReader interface {
	readLine(prompt string) (string, error)
}

// Console is an interactive operator menu.
type Console struct {
	op     Operator
	lines  lineReader
	out    io.Writer
	logger *util.Logger
}

// New returns a Console reading plain lines from in and writing to out.
func New(op Operator, in io.Reader, out io.Writer, logger *util.Logger) *Console {
	return &Console{
		op:     op,
		lines:  &plainReader{sc: bufio.NewScanner(in), out: out},
		out:    out,
		logger: logger.Named("console"),
	}
}

// Run shows the menu and executes choices until the operator confirms
// a shutdown, the input ends, or ctx is done.  Only a read failure
// other than end of input is returned.
func (c *Console) Run(ctx context.Context) error {
	for ctx.Err() == nil {
		fmt.Fprint(c.out, Menu)
		choice, err := c.lines.readLine(menuPrompt)
		if err != nil {
			return c.finish(err)
		}

		switch choice = strings.TrimSpace(choice); choice {
		case "1":
			fmt.Fprint(c.out, "Active connections are as follows;\n\n")
			fmt.Fprintln(c.out, c.op.List())
		case "2":
			id, err := c.lines.readLine(idPrompt)
			if err != nil {
				return c.finish(err)
			}
			fmt.Fprintln(c.out, c.op.Kill(id))
		case "3":
			fmt.Fprintln(c.out, c.op.KillAll())
		case "4":
			answer, err := c.lines.readLine(confirmPrompt)
			if err != nil {
				return c.finish(err)
			}
			if strings.EqualFold(strings.TrimSpace(answer), "y") {
				fmt.Fprintln(c.out, "......"+c.op.Shutdown())
				return nil
			}
			fmt.Fprintln(c.out, "......Action Aborted!")
		case "5":
			fmt.Fprintln(c.out, c.op.Stats())
		default:
			fmt.Fprintf(c.out, "Option '%s' is invalid, try again!\n\n", choice)
		}
	}
	return nil
}

func (c *Console) finish(err error) error {
	if err == io.EOF {
		c.logger.Verbose("operator input closed; console stopped")
		return nil
	}
	return fmt.Errorf("console: %w", err)
}

// plainReader reads newline-terminated input from a non-terminal.
type plainReader struct {
	sc  *bufio.Scanner
	out io.Writer
}

func (p *plainReader) readLine(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	if !p.sc.Scan() {
		if err := p.sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimRight(p.sc.Text(), "\r"), nil
}
