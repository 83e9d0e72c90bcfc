// Package errors classifies filesystem failures into the small set of kinds
// the catalog reports to its callers.
//
// Mutation commands return *Error values so a presentation layer can show
// Reason() to the user and branch on Kind without parsing messages:
//
//	if err := m.RenameFile(ctx, path, "new.txt"); err != nil {
//	    if errors.Is(err, errors.ErrAlreadyExists) {
//	        // ask for another name
//	    }
//	    fmt.Println(errors.KindOf(err), err)
//	}
package errors

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"strings"
	"syscall"
)

// Kind is the coarse classification of a failure.
type Kind string

const (
	KindNotFound      Kind = "not_found"
	KindAccessDenied  Kind = "access_denied"
	KindCorrupt       Kind = "corrupt"
	KindAlreadyExists Kind = "already_exists"
	KindInvalid       Kind = "invalid"
	KindUnknown       Kind = "unknown"
)

// Sentinels matched by errors.Is against an *Error of the same kind.
var (
	ErrNotFound      = stderrors.New("not found")
	ErrAccessDenied  = stderrors.New("access denied")
	ErrCorrupt       = stderrors.New("corrupt or unsupported image")
	ErrAlreadyExists = stderrors.New("already exists")
	ErrInvalid       = stderrors.New("invalid argument")
	ErrUnknown       = stderrors.New("unknown failure")
)

var sentinels = map[Kind]error{
	KindNotFound:      ErrNotFound,
	KindAccessDenied:  ErrAccessDenied,
	KindCorrupt:       ErrCorrupt,
	KindAlreadyExists: ErrAlreadyExists,
	KindInvalid:       ErrInvalid,
	KindUnknown:       ErrUnknown,
}

// Error is a classified failure of one operation on one path.
type Error struct {
	Op   string // "create", "rename", "delete", "thumbnail", ...
	Path string
	Kind Kind
	Err  error
}

// New wraps err with op and path, classifying it.
func New(op, path string, err error) *Error {
	return &Error{Op: op, Path: path, Kind: Classify(err), Err: err}
}

// Newf builds an *Error of a known kind from a formatted message.
func Newf(kind Kind, op, path, format string, args ...any) *Error {
	return &Error{Op: op, Path: path, Kind: kind, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	return sentinels[e.Kind] == target
}

// Reason returns a short human-readable explanation suitable for a status bar.
func (e *Error) Reason() string {
	switch e.Kind {
	case KindNotFound:
		return "The file or folder no longer exists."
	case KindAccessDenied:
		return "You do not have permission to change this item."
	case KindCorrupt:
		return "The image could not be read."
	case KindAlreadyExists:
		return "A file with this name already exists."
	case KindInvalid:
		if e.Err != nil {
			return capitalize(e.Err.Error()) + "."
		}
		return "The request was not valid."
	default:
		if e.Err != nil {
			return capitalize(e.Err.Error())
		}
		return "Something went wrong."
	}
}

// KindOf returns the kind of err, classifying plain errors on the fly.
// A nil error has no kind and returns "".
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return Classify(err)
}

// Classify maps an arbitrary error to a Kind. Typed checks come first; the
// message matcher catches errors that lost their type on the way up.
func Classify(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	switch {
	case stderrors.Is(err, fs.ErrNotExist), stderrors.Is(err, syscall.ENOENT):
		return KindNotFound
	case stderrors.Is(err, fs.ErrPermission), stderrors.Is(err, syscall.EACCES), stderrors.Is(err, syscall.EPERM):
		return KindAccessDenied
	case stderrors.Is(err, fs.ErrExist):
		return KindAlreadyExists
	case stderrors.Is(err, fs.ErrInvalid):
		return KindInvalid
	}
	return defaultMatcher.Match(err.Error())
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Is and As re-export the standard helpers so callers need one import.
func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target any) bool { return stderrors.As(err, target) }
