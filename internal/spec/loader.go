package spec

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/gladgen/internal/opener"
)

// ErrorCode categorizes loader errors for clearer handling and messaging.
type ErrorCode string

const (
	InputError      ErrorCode = "InputError"
	NetworkError    ErrorCode = "NetworkError"
	ParseError      ErrorCode = "ParseError"
	ValidationError ErrorCode = "ValidationError"
)

// SpecError is a structured error with an optional location.
type SpecError struct {
	Code     ErrorCode
	Message  string
	Location string // file path or URL
	Cause    error
}

func (e *SpecError) Error() string { return e.Message }
func (e *SpecError) Unwrap() error { return e.Cause }

// Settings configures loader behavior.
type Settings struct {
	// Name of the registry; derived from the input file name when empty.
	Name    string
	Profile string
	Opener  opener.Opener
}

// Option mutates Settings.
type Option func(*Settings)

func WithName(name string) Option       { return func(s *Settings) { s.Name = name } }
func WithProfile(p string) Option       { return func(s *Settings) { s.Profile = p } }
func WithOpener(o opener.Opener) Option { return func(s *Settings) { s.Opener = o } }

// Load reads and parses a registry. input may be a filesystem path or an
// http/https URL; an empty input with a known name downloads the upstream
// registry.
func Load(ctx context.Context, input string, opts ...Option) (*Specification, error) {
	var settings Settings
	for _, opt := range opts {
		opt(&settings)
	}
	if settings.Opener == nil {
		settings.Opener = opener.Default()
	}

	input = strings.TrimSpace(input)
	if input == "" {
		u, ok := URL(settings.Name)
		if !ok {
			return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("spec: unknown specification %q", settings.Name)}
		}
		input = u
	}
	if settings.Name == "" {
		settings.Name = nameFromInput(input)
	}
	if settings.Profile != "" && settings.Name != GL {
		// only the gl registry has profiles
		settings.Profile = ""
	}

	u, uerr := url.Parse(input)
	isURL := uerr == nil && u.Scheme != "" && u.Host != ""
	if isURL {
		scheme := strings.ToLower(u.Scheme)
		if scheme != "http" && scheme != "https" {
			return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("spec: unsupported URL scheme %q (only http/https allowed)", scheme), Location: input}
		}
		body, err := settings.Opener.Open(ctx, input)
		if err != nil {
			return nil, &SpecError{Code: NetworkError, Message: fmt.Sprintf("fetch %s: %v", input, err), Location: input, Cause: err}
		}
		defer body.Close()
		s, err := Parse(body, settings.Name, settings.Profile)
		return s, withLocation(err, input)
	}

	abs, err := filepath.Abs(input)
	if err != nil {
		return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("resolve path: %v", err), Location: input, Cause: err}
	}
	f, err := os.Open(abs)
	if err != nil {
		return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("read file %s: %v", abs, err), Location: abs, Cause: err}
	}
	defer f.Close()
	s, err := Parse(f, settings.Name, settings.Profile)
	return s, withLocation(err, abs)
}

func withLocation(err error, location string) error {
	if err == nil {
		return nil
	}
	if se, ok := err.(*SpecError); ok {
		se.Location = location
		return se
	}
	return &SpecError{Code: ParseError, Message: err.Error(), Location: location, Cause: err}
}

// nameFromInput turns ".../gl.xml" into "gl".
func nameFromInput(input string) string {
	base := input
	if u, err := url.Parse(input); err == nil && u.Path != "" {
		base = u.Path
	}
	base = filepath.Base(base)
	return strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
}
