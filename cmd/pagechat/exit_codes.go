package main

import (
	"errors"

	pcerrors "github.com/odvcencio/pagechat/pkg/errors"
)

const (
	exitOK          = 0
	exitFailure     = 1
	exitUsage       = 2
	exitNoReply     = 3
	exitInterrupted = 130
)

type exitCoder interface {
	ExitCode() int
}

type exitError struct {
	code int
	err  error
}

func (e exitError) Error() string {
	if e.err == nil {
		return ""
	}
	return e.err.Error()
}

func (e exitError) Unwrap() error {
	return e.err
}

func (e exitError) ExitCode() int {
	if e.code == 0 {
		return exitFailure
	}
	return e.code
}

func withExitCode(err error, code int) error {
	if err == nil {
		return nil
	}
	return exitError{code: code, err: err}
}

// exitCodeForError prefers an explicit exit code, then falls back to the
// error's pagechat code.
func exitCodeForError(err error) int {
	if err == nil {
		return exitOK
	}
	var coded exitCoder
	if errors.As(err, &coded) {
		return coded.ExitCode()
	}
	switch pcerrors.GetCode(err) {
	case pcerrors.ErrCodeConfigLoad, pcerrors.ErrCodeConfigParse, pcerrors.ErrCodeConfigInvalid, pcerrors.ErrCodeInvalidInput:
		return exitUsage
	case pcerrors.ErrCodeNoCandidate, pcerrors.ErrCodeExtractEmpty, pcerrors.ErrCodePageUnavailable:
		return exitNoReply
	case pcerrors.ErrCodeTurnAborted:
		return exitInterrupted
	}
	return exitFailure
}
