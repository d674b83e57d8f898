package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{".jpg", ".jpg"},
		{"JPG", ".jpg"},
		{"  .Mp4 ", ".mp4"},
		{"", ""},
		{".", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), "Normalize(%q)", tt.in)
	}
}

func TestNormalizeAllDedupesAndSorts(t *testing.T) {
	got := NormalizeAll([]string{".mp4", "JPG", ".jpg", " ", "mov"})
	assert.Equal(t, []string{".jpg", ".mov", ".mp4"}, got)
}

func TestMatch(t *testing.T) {
	exts := NewExtensions([]string{".jpg", ".mp4"})

	tests := []struct {
		name string
		want bool
	}{
		{"IMG_0001.jpg", true},
		{"IMG_0001.JPG", true},
		{"clip.Mp4", true},
		{"notes.txt", false},
		{"jpg", false},
		{"archive.jpg.zip", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, exts.Match(tt.name), "Match(%q)", tt.name)
	}
}

func TestEmptyExtensionsMatchNothing(t *testing.T) {
	var nilExts *Extensions
	assert.False(t, nilExts.Match("a.jpg"))
	assert.True(t, nilExts.Empty())
	assert.True(t, NewExtensions([]string{" "}).Empty())
	assert.False(t, NewExtensions(nil).Match("a.jpg"))
}
