package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/AaroAskala/Suomidle-sub000/internal/persistence/save"
)

// stdinPrompter asks about the era reset on the terminal. Anything but an
// explicit yes declines.
func stdinPrompter(in *bufio.Reader, out io.Writer) save.Prompter {
	return save.PrompterFunc(func(from, to int) bool {
		_, _ = fmt.Fprintf(out, "This save is from era %d; the game is now on era %d.\n", from, to)
		_, _ = fmt.Fprint(out, "Start over in the new era with a permanent +1 era multiplier? Maailma progress is kept. [y/N] ")
		line, err := in.ReadString('\n')
		if err != nil && line == "" {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes", "k", "kyllä":
			return true
		}
		return false
	})
}
