package authctl

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

var ErrPasswordMismatch = errors.New("passwords do not match")

// GetPassword prints prompt to w and reads a password from the terminal
// without echo. The caller should wipe the returned slice.
func GetPassword(w io.Writer, prompt string) ([]byte, error) {
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return nil, err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return nil, err
	}
	return pw, nil
}

// GetNewPassword asks twice and requires both entries to match and to be at
// least minLen bytes long.
func GetNewPassword(w io.Writer, minLen int) ([]byte, error) {
	pw, err := GetPassword(w, "Enter password: ")
	if err != nil {
		return nil, err
	}
	if len(pw) < minLen {
		wipe(pw)
		return nil, fmt.Errorf("password must be at least %d characters long", minLen)
	}

	confirm, err := GetPassword(w, "Repeat password: ")
	if err != nil {
		wipe(pw)
		return nil, err
	}
	defer wipe(confirm)

	if !bytes.Equal(pw, confirm) {
		wipe(pw)
		return nil, ErrPasswordMismatch
	}
	return pw, nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
