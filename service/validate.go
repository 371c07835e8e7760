package service

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

var DefaultExtensions = []string{"png", "jpg", "jpeg", "bmp"}

// Validator accepts filenames by extension.
type Validator struct {
	allowed map[string]struct{}
}

func NewValidator(extensions []string) *Validator {
	allowed := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			allowed[ext] = struct{}{}
		}
	}
	return &Validator{allowed: allowed}
}

// Allowed reports whether filename has a '.' and its final extension,
// lowercased, is in the allowed set.
func (v *Validator) Allowed(filename string) bool {
	i := strings.LastIndexByte(filename, '.')
	if i < 0 {
		return false
	}
	_, ok := v.allowed[strings.ToLower(filename[i+1:])]
	return ok
}

var defaultValidator = NewValidator(DefaultExtensions)

func IsAllowed(filename string) bool {
	return defaultValidator.Allowed(filename)
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SecureFilename reduces a client-supplied name to a flat ASCII filename.
// The result may be empty.
func SecureFilename(name string) string {
	name = norm.NFKD.String(name)
	var b strings.Builder
	for _, r := range name {
		if r < 0x80 {
			b.WriteRune(r)
		}
	}
	name = b.String()
	name = strings.NewReplacer("/", " ", `\`, " ").Replace(name)
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	return strings.Trim(name, "._")
}

// TempPath returns a path in dir that no other request will use.
func TempPath(dir, filename string) string {
	name := uuid.NewString()
	if safe := SecureFilename(filename); safe != "" {
		name += "_" + safe
	}
	return filepath.Join(dir, name)
}
