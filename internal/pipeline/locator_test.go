package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600))
	}
}

func TestLocateArtifact(t *testing.T) {
	tests := []struct {
		name     string
		files    []string
		reported string
		want     string
		found    bool
	}{
		{
			name:     "renamed path wins",
			files:    []string{"downloaded_audio.opus", "downloaded_audio.webm"},
			reported: "downloaded_audio.webm",
			want:     "downloaded_audio.opus",
			found:    true,
		},
		{
			name:     "falls back to requested name",
			files:    []string{"downloaded_audio.webm"},
			reported: "downloaded_audio.webm",
			want:     "downloaded_audio.webm",
			found:    true,
		},
		{
			name:  "requested name without report",
			files: []string{"downloaded_audio.webm"},
			want:  "downloaded_audio.webm",
			found: true,
		},
		{
			name:  "prefix scan",
			files: []string{"notes.txt", "downloaded_audio.f251.opus"},
			want:  "downloaded_audio.f251.opus",
			found: true,
		},
		{
			name:  "prefix scan ignores other extensions",
			files: []string{"downloaded_audio.m4a", "downloaded_audio.webm.part"},
			found: false,
		},
		{
			name:  "empty directory",
			found: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			touch(t, dir, tt.files...)

			var res *ExtractResult
			if tt.reported != "" {
				res = &ExtractResult{FilePath: filepath.Join(dir, tt.reported)}
			}

			got, ok := LocateArtifact(dir, res)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, filepath.Join(dir, tt.want), got)
			} else {
				assert.Empty(t, got)
			}
		})
	}
}

func TestLocateArtifact_RenamedRuleIgnoresDirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "downloaded_audio.opus"), 0o700))

	_, ok := LocateArtifact(dir, &ExtractResult{FilePath: filepath.Join(dir, "downloaded_audio.webm")})
	assert.False(t, ok)
}

func TestJoinTranscript(t *testing.T) {
	results := []RecognitionResult{
		{Alternatives: []Alternative{{Transcript: "first"}, {Transcript: "ignored"}}},
		{},
		{Alternatives: []Alternative{{Transcript: "second"}}},
	}
	assert.Equal(t, "first second", JoinTranscript(results))
	assert.Equal(t, "", JoinTranscript(nil))
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("the transcript")
	assert.Equal(t,
		"Please summarize the following transcript from a YouTube video. "+
			"Provide a concise and informative summary highlighting the key points and main topics discussed:"+
			"\n\nTranscript:\nthe transcript\n\nSummary:",
		prompt)
}

func TestNormalizeRequestID(t *testing.T) {
	assert.Equal(t, "abc-123_X", NormalizeRequestID("abc-123_X"))

	for _, unsafe := range []string{"", "../x", "a/b", "a b", string(make([]byte, 200))} {
		id := NormalizeRequestID(unsafe)
		assert.NotEqual(t, unsafe, id)
		assert.Len(t, id, 36)
	}
}
