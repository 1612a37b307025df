package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

func invalidf(format string, args ...any) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf(format, args...))
}

func duplicatef(format string, args ...any) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeAlreadyExists).
		WithMsg(fmt.Sprintf(format, args...))
}

func notFoundf(format string, args ...any) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeNotFound).
		WithMsg(fmt.Sprintf(format, args...))
}

func ambiguousf(format string, args ...any) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg(fmt.Sprintf(format, args...))
}

// wrapf prefixes a nested error's message while keeping its code.
func wrapf(err error, format string, args ...any) error {
	code := errbuilder.CodeOf(err)
	switch code {
	case errbuilder.CodeAlreadyExists, errbuilder.CodeNotFound, errbuilder.CodeFailedPrecondition, errbuilder.CodeInternal:
	default:
		code = errbuilder.CodeInvalidArgument
	}
	return errbuilder.New().
		WithCode(code).
		WithMsg(fmt.Sprintf(format, args...) + ": " + errorMessage(err)).
		WithCause(err)
}

func errorMessage(err error) string {
	var builder *errbuilder.ErrBuilder
	if errors.As(err, &builder) && strings.TrimSpace(builder.Msg) != "" {
		return builder.Msg
	}
	return err.Error()
}
