package app

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// PasswordEnv holds the password for non-interactive logins.
const PasswordEnv = "SHINOMONTAZ_PASSWORD"

// ResolvePassword picks the password from the flag, the environment or
// an interactive prompt, in that order of preference. The flag and the
// environment may not both be requested.
func ResolvePassword(flagValue string, fromEnv bool, in *os.File, out io.Writer) (string, error) {
	if flagValue != "" && fromEnv {
		return "", errors.New("choose one of -password or -password-env")
	}
	if fromEnv {
		v := os.Getenv(PasswordEnv)
		if v == "" {
			return "", errors.New(PasswordEnv + " is empty")
		}
		return v, nil
	}
	if flagValue != "" {
		return flagValue, nil
	}
	return promptPassword(in, out, "Password")
}

func promptPassword(in *os.File, out io.Writer, label string) (string, error) {
	fd := int(in.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprintf(out, "%s: ", label)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		if len(b) == 0 {
			return "", errors.New("password cannot be empty")
		}
		return string(b), nil
	}

	// Piped input; echo cannot be suppressed.
	fmt.Fprintf(out, "%s: ", label)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("password cannot be empty")
	}
	return line, nil
}
