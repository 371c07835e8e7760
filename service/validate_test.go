package service

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsAllowed(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     bool
	}{
		{"png", "print.png", true},
		{"jpg", "print.jpg", true},
		{"jpeg", "print.jpeg", true},
		{"bmp", "print.bmp", true},
		{"upper case", "PRINT.PNG", true},
		{"mixed case", "print.JpEg", true},
		{"last extension wins", "archive.tar.bmp", true},
		{"no dot", "png", false},
		{"empty", "", false},
		{"text file", "x.txt", false},
		{"trailing dot", "print.", false},
		{"gif", "print.gif", false},
		{"allowed then disallowed", "print.png.exe", false},
		{"webp not in default set", "print.webp", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAllowed(tt.filename))
		})
	}
}

func TestValidator_Custom(t *testing.T) {
	v := NewValidator([]string{".WEBP", " avif ", ""})

	assert.True(t, v.Allowed("a.webp"))
	assert.True(t, v.Allowed("a.AVIF"))
	assert.False(t, v.Allowed("a.png"))
	assert.False(t, v.Allowed("a."))
}

func TestSecureFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"My cool movie.mov", "My_cool_movie.mov"},
		{"../../../etc/passwd", "etc_passwd"},
		{`..\..\windows\win.ini`, "windows_win.ini"},
		{"i contain cool \xfcml\xe4uts.txt", "i_contain_cool_mluts.txt"},
		{"i contain cool ümläuts.txt", "i_contain_cool_umlauts.txt"},
		{"finger$print (1).png", "fingerprint_1.png"},
		{"___.png", "png"},
		{"../", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SecureFilename(tt.in))
		})
	}
}

func TestTempPath(t *testing.T) {
	dir := t.TempDir()

	t.Run("stays inside dir", func(t *testing.T) {
		p := TempPath(dir, "../../evil.png")

		assert.Equal(t, dir, filepath.Dir(p))
		assert.True(t, strings.HasSuffix(p, "_evil.png"))
	})

	t.Run("unique per call", func(t *testing.T) {
		a := TempPath(dir, "print.png")
		b := TempPath(dir, "print.png")

		assert.NotEqual(t, a, b)
	})

	t.Run("empty sanitized name", func(t *testing.T) {
		p := TempPath(dir, "../")

		assert.Equal(t, dir, filepath.Dir(p))
		assert.NotContains(t, filepath.Base(p), "_")
	})
}
