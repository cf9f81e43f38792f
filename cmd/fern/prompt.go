package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Ramsey-B/fern/pkg/models"
)

// promptDecision asks until it gets a usable answer. End of input aborts.
func promptDecision(in io.Reader, out io.Writer, matches []models.MatchResult) models.Decision {
	reader := bufio.NewReader(in)

	for {
		answer, ok := ask(reader, out, "[s]ave as new, [r]eplace, [m]erge or [a]bort? ")
		if !ok {
			return models.Abort()
		}

		switch answer {
		case "s", "save":
			return models.SaveAsNew()
		case "a", "abort":
			return models.Abort()
		case "r", "replace", "m", "merge":
			target, ok := askTarget(reader, out, matches)
			if !ok {
				return models.Abort()
			}
			if strings.HasPrefix(answer, "r") {
				return models.Replace(target)
			}
			return models.Merge(target)
		default:
			fmt.Fprintf(out, "Unknown choice %q\n", answer)
		}
	}
}

// askTarget accepts a row number or a contact id, the best match by default
func askTarget(reader *bufio.Reader, out io.Writer, matches []models.MatchResult) (string, bool) {
	for {
		answer, ok := ask(reader, out, "Target # or id [1]: ")
		if !ok {
			return "", false
		}
		if answer == "" {
			return matches[0].Contact.ID, true
		}
		if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(matches) {
			return matches[n-1].Contact.ID, true
		}
		for _, m := range matches {
			if m.Contact.ID == answer {
				return answer, true
			}
		}
		fmt.Fprintf(out, "%q is not one of the matches\n", answer)
	}
}

func ask(reader *bufio.Reader, out io.Writer, question string) (string, bool) {
	fmt.Fprint(out, question)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(out)
		return "", false
	}
	return strings.ToLower(strings.TrimSpace(line)), true
}
