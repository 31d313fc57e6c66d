package media

import (
	"context"
	"errors"
	"testing"

	"brevio/internal/pipeline"

	"github.com/lrstanley/go-ytdlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testOpts = pipeline.ExtractOptions{
	Format:     "bestaudio[ext=webm]/bestaudio",
	AudioCodec: "opus",
	NoPlaylist: true,
	OutputPath: "/work/req-1/downloaded_audio.webm",
}

// stubRun records the command it is given and returns a canned result.
func stubRun(seen **ytdlp.Command, res *ytdlp.Result, err error) runFunc {
	return func(_ context.Context, cmd *ytdlp.Command, _ string) (*ytdlp.Result, error) {
		if seen != nil {
			*seen = cmd
		}
		return res, err
	}
}

func containsSeq(args []string, seq ...string) bool {
	for i := 0; i+len(seq) <= len(args); i++ {
		match := true
		for j := range seq {
			if args[i+j] != seq[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func TestCommand_Flags(t *testing.T) {
	y := NewYtDlp("/opt/bin/yt-dlp")
	args := y.command(testOpts).BuildCommand(context.Background(), "https://youtu.be/abc").Args

	assert.True(t, containsSeq(args, "--format", "bestaudio[ext=webm]/bestaudio"), args)
	assert.True(t, containsSeq(args, "--audio-format", "opus"), args)
	assert.True(t, containsSeq(args, "--output", "/work/req-1/downloaded_audio.webm"), args)
	for _, flag := range []string{"--no-playlist", "--extract-audio", "--dump-json", "--no-simulate", "--no-progress"} {
		assert.Contains(t, args, flag)
	}
	assert.Equal(t, "https://youtu.be/abc", args[len(args)-1])
}

func TestCommand_OmitsUnsetOptions(t *testing.T) {
	args := NewYtDlp("").command(pipeline.ExtractOptions{}).BuildCommand(context.Background(), "u").Args

	assert.NotContains(t, args, "--format")
	assert.NotContains(t, args, "--no-playlist")
	assert.NotContains(t, args, "--extract-audio")
	assert.Contains(t, args, "--dump-json")
}

func TestExtract_Success(t *testing.T) {
	y := NewYtDlp("")
	var seen *ytdlp.Command
	y.run = stubRun(&seen, &ytdlp.Result{
		Stdout: "[youtube] abc: Downloading webpage\n" +
			`{"id":"abc","duration":212.5,"ext":"webm","_filename":"/work/req-1/downloaded_audio.webm"}` + "\n",
	}, nil)

	res, err := y.Extract(context.Background(), "https://youtu.be/abc", testOpts)
	require.NoError(t, err)
	assert.Equal(t, "/work/req-1/downloaded_audio.webm", res.FilePath)
	assert.Equal(t, 212.5, res.DurationSeconds)
	assert.Equal(t, "webm", res.ContainerExt)
	require.NotNil(t, seen)
}

func TestExtract_FilenameFallback(t *testing.T) {
	res, err := parseInfo(`{"duration":10,"ext":"m4a","filename":"/tmp/a.m4a"}`)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/a.m4a", res.FilePath)
}

func TestExtract_MissingDuration(t *testing.T) {
	res, err := parseInfo(`{"ext":"webm","_filename":"/tmp/a.webm"}`)
	require.NoError(t, err)
	assert.Zero(t, res.DurationSeconds)
}

func TestExtract_CommandFailure(t *testing.T) {
	runErr := errors.New("exit status 1")
	y := NewYtDlp("/usr/local/bin/yt-dlp")
	y.run = stubRun(nil, &ytdlp.Result{
		ExitCode: 1,
		Stderr:   "WARNING: something\nERROR: [youtube] abc: Video unavailable\n",
	}, runErr)

	_, err := y.Extract(context.Background(), "https://youtu.be/abc", testOpts)
	require.Error(t, err)
	assert.Equal(t, "ERROR: [youtube] abc: Video unavailable", err.Error())

	var extractErr *ExtractError
	require.True(t, errors.As(err, &extractErr))
	assert.ErrorIs(t, err, runErr)
}

func TestExtract_NoInfo(t *testing.T) {
	y := NewYtDlp("")
	y.run = stubRun(nil, &ytdlp.Result{Stdout: "[download] done\n"}, nil)

	_, err := y.Extract(context.Background(), "https://youtu.be/abc", testOpts)
	assert.EqualError(t, err, "yt-dlp produced no info")
}

func TestErrorMessage(t *testing.T) {
	plain := errors.New("plain")
	assert.Equal(t, "plain", errorMessage(nil, plain))
	assert.Equal(t, "plain", errorMessage(&ytdlp.Result{Stderr: "  \n"}, plain))
	assert.Equal(t, "last line", errorMessage(&ytdlp.Result{Stderr: "first line\nlast line"}, errors.New("exit status 2")))
}
