package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int { return &i }

func baseRecord() Record {
	return Record{
		Username:          "philippe",
		Password:          "secret",
		LocalDirectory:    "/srv/photos",
		RemoteHost:        "192.168.0.11",
		Port:              2121,
		RemoteDirectories: []string{"/Pictures", "/DCIM"},
		Extensions:        []string{".jpg", ".mp4"},
	}
}

func TestApplyScalars(t *testing.T) {
	got := Update{RemoteHost: strPtr("10.0.0.5"), Port: intPtr(21)}.Apply(baseRecord())

	assert.Equal(t, "10.0.0.5", got.RemoteHost)
	assert.Equal(t, 21, got.Port)
	assert.Equal(t, "philippe", got.Username)
	assert.Equal(t, "secret", got.Password)
}

func TestApplyDirectoryOps(t *testing.T) {
	tests := []struct {
		name   string
		update Update
		want   []string
	}{
		{"unset leaves list", Update{}, []string{"/Pictures", "/DCIM"}},
		{"set replaces", Update{SetDirectories: []string{"/Movies", "/Movies"}}, []string{"/Movies"}},
		{"add appends missing in order", Update{AddDirectories: []string{"/DCIM", "/Telegram"}}, []string{"/Pictures", "/DCIM", "/Telegram"}},
		{"remove drops", Update{RemoveDirectories: []string{"/Pictures"}}, []string{"/DCIM"}},
		{"set then add", Update{SetDirectories: []string{"/A"}, AddDirectories: []string{"/B"}}, []string{"/A", "/B"}},
		{"set empty clears", Update{SetDirectories: []string{}}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.update.Apply(baseRecord())
			assert.Equal(t, tt.want, got.RemoteDirectories)
		})
	}
}

func TestApplyExtensionOps(t *testing.T) {
	tests := []struct {
		name   string
		update Update
		want   []string
	}{
		{"unset leaves set", Update{}, []string{".jpg", ".mp4"}},
		{"add normalizes and sorts", Update{AddExtensions: []string{"MOV", ".JPG"}}, []string{".jpg", ".mov", ".mp4"}},
		{"remove normalizes", Update{RemoveExtensions: []string{"MP4"}}, []string{".jpg"}},
		{"set replaces", Update{SetExtensions: []string{"heic"}}, []string{".heic"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.update.Apply(baseRecord())
			assert.Equal(t, tt.want, got.Extensions)
		})
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	rec := baseRecord()
	_ = Update{AddDirectories: []string{"/X"}, RemoveExtensions: []string{".jpg"}}.Apply(rec)

	assert.Equal(t, []string{"/Pictures", "/DCIM"}, rec.RemoteDirectories)
	assert.Equal(t, []string{".jpg", ".mp4"}, rec.Extensions)
}

func TestUpdateIsEmpty(t *testing.T) {
	assert.True(t, Update{}.IsEmpty())
	assert.False(t, Update{Port: intPtr(1)}.IsEmpty())
	assert.False(t, Update{SetDirectories: []string{}}.IsEmpty())
}
