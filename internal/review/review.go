// Package review asks a human at the terminal for a verdict on a pending
// action.
package review

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/ppiankov/pagegate/internal/model"
)

// Prompter reads verdicts from in and writes prompts to out.
type Prompter struct {
	in          *bufio.Reader
	out         io.Writer
	interactive bool
}

// IsInteractive reports whether stdin is a terminal.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// NewTerminal prompts on stderr and reads stdin.
func NewTerminal() *Prompter {
	return New(os.Stdin, os.Stderr, IsInteractive())
}

// New creates a prompter. When interactive is false, Ask denies without
// prompting.
func New(in io.Reader, out io.Writer, interactive bool) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out, interactive: interactive}
}

// Ask shows rec and returns the reviewer's verdict. Unrecognized answers are
// asked again; a non-interactive prompter or unreadable input is a denial.
func (p *Prompter) Ask(rec model.ActionRecord) model.Verdict {
	if !p.interactive {
		return model.Deny
	}

	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, "APPROVAL REQUIRED")
	fmt.Fprintln(p.out)
	fmt.Fprintf(p.out, "Action:  %s %s\n", rec.Kind, rec.Target)
	if rec.Goal != "" {
		fmt.Fprintf(p.out, "Goal:    %s\n", rec.Goal)
	}
	fmt.Fprintf(p.out, "Risk:    %.1f/10 (%s)\n", rec.RiskScore, rec.Level())
	fmt.Fprintf(p.out, "Reason:  %s\n", rec.Explanation)
	if rec.ThreatContext {
		fmt.Fprintln(p.out, "Warning: the page shows signs of prompt injection or deceptive UI")
	}
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, "  [a] Approve - let the agent perform this action")
	fmt.Fprintln(p.out, "  [d] Deny - block this action")
	fmt.Fprintln(p.out)

	for {
		fmt.Fprint(p.out, "Your choice [a/d]: ")
		input, err := p.in.ReadString('\n')
		if v, ok := model.ParseVerdict(input); ok {
			return v
		}
		if err != nil {
			return model.Deny
		}
		fmt.Fprintln(p.out, "Invalid input. Please enter 'a' to approve or 'd' to deny.")
	}
}
