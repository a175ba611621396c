// Package term provides interactive acquisition of the Chatwork session
// from a terminal.
package term

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
	"golang.org/x/xerrors"

	"github.com/HMasataka/chatwork-log-exporter/internal/domain"
)

// Prompt reads the session token and user id interactively. The token is
// read without echo; both values can be copied from the Chatwork page
// context (window.ACCESS_TOKEN and window.MYID).
type Prompt struct {
	in      *bufio.Reader
	out     io.Writer
	stdinfd int
}

// NewPrompt creates a Prompt bound to the process terminal.
func NewPrompt() *Prompt {
	return &Prompt{
		in:      bufio.NewReader(os.Stdin),
		out:     os.Stdout,
		stdinfd: int(os.Stdin.Fd()),
	}
}

// Session prompts for the missing parts of base and returns a complete
// session. Values already present in base are kept and not asked for.
func (p *Prompt) Session(base domain.Session) (domain.Session, error) {
	s := base

	if s.MyID == "" {
		fmt.Fprint(p.out, "Chatwork user id (window.MYID): ")
		line, err := p.in.ReadString('\n')
		if err != nil {
			return domain.Session{}, xerrors.Errorf("read user id: %w", err)
		}
		s.MyID = strings.TrimSpace(line)
	}

	if s.Token == "" {
		fmt.Fprint(p.out, "Chatwork access token (window.ACCESS_TOKEN): ")
		byteToken, err := term.ReadPassword(p.stdinfd)
		if err != nil {
			return domain.Session{}, xerrors.Errorf("read access token: %w", err)
		}
		fmt.Fprintln(p.out)
		s.Token = strings.TrimSpace(string(byteToken))
	}

	if err := s.Validate(); err != nil {
		return domain.Session{}, err
	}
	return s, nil
}
