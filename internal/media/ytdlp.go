package media

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"brevio/internal/pipeline"
	"brevio/pkg/logger"

	"github.com/lrstanley/go-ytdlp"
	"go.uber.org/zap"
)

const DefaultBinary = "yt-dlp"

// ExtractError carries the message yt-dlp reported for a failed download.
type ExtractError struct {
	Message string
	Err     error
}

func (e *ExtractError) Error() string {
	return e.Message
}

func (e *ExtractError) Unwrap() error {
	return e.Err
}

// info is the subset of the yt-dlp info JSON the pipeline needs.
type info struct {
	Duration float64 `json:"duration"`
	Ext      string  `json:"ext"`
	Filename string  `json:"_filename"`
	Fallback string  `json:"filename"`
}

// runFunc executes a prepared yt-dlp command against url.
type runFunc func(ctx context.Context, cmd *ytdlp.Command, url string) (*ytdlp.Result, error)

func runCommand(ctx context.Context, cmd *ytdlp.Command, url string) (*ytdlp.Result, error) {
	return cmd.Run(ctx, url)
}

// YtDlp extracts audio through go-ytdlp.
type YtDlp struct {
	binary string
	run    runFunc
}

// NewYtDlp creates an extractor. An empty binary means yt-dlp from PATH.
func NewYtDlp(binary string) *YtDlp {
	if binary == "" {
		binary = DefaultBinary
	}
	return &YtDlp{binary: binary, run: runCommand}
}

// Extract downloads a single item and post-processes it to opts.AudioCodec.
func (y *YtDlp) Extract(ctx context.Context, url string, opts pipeline.ExtractOptions) (*pipeline.ExtractResult, error) {
	cmd := y.command(opts)

	logger.Debug("Running yt-dlp",
		zap.String("binary", y.binary),
		zap.String("output", opts.OutputPath),
		zap.String("url", url))

	res, err := y.run(ctx, cmd, url)
	if err != nil {
		return nil, &ExtractError{Message: errorMessage(res, err), Err: err}
	}

	out, err := parseInfo(res.Stdout)
	if err != nil {
		return nil, &ExtractError{Message: err.Error(), Err: err}
	}
	return out, nil
}

func (y *YtDlp) command(opts pipeline.ExtractOptions) *ytdlp.Command {
	cmd := ytdlp.New().SetExecutable(y.binary)
	if opts.Format != "" {
		cmd.Format(opts.Format)
	}
	if opts.NoPlaylist {
		cmd.NoPlaylist()
	}
	if opts.AudioCodec != "" {
		cmd.ExtractAudio().AudioFormat(opts.AudioCodec)
	}
	if opts.OutputPath != "" {
		cmd.Output(opts.OutputPath)
	}
	// --dump-json alone implies --simulate.
	return cmd.DumpJSON().NoSimulate().NoProgress()
}

func parseInfo(out string) (*pipeline.ExtractResult, error) {
	scanner := bufio.NewScanner(strings.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "{") {
			continue
		}

		var meta info
		if err := json.Unmarshal([]byte(line), &meta); err != nil {
			return nil, fmt.Errorf("failed to parse yt-dlp info: %w", err)
		}

		path := meta.Filename
		if path == "" {
			path = meta.Fallback
		}
		return &pipeline.ExtractResult{
			FilePath:        path,
			DurationSeconds: meta.Duration,
			ContainerExt:    meta.Ext,
		}, nil
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read yt-dlp output: %w", err)
	}
	return nil, fmt.Errorf("yt-dlp produced no info")
}

// errorMessage prefers yt-dlp's own ERROR line over the exit status.
func errorMessage(res *ytdlp.Result, err error) string {
	if res == nil || strings.TrimSpace(res.Stderr) == "" {
		return err.Error()
	}
	lines := strings.Split(strings.TrimSpace(res.Stderr), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if strings.HasPrefix(line, "ERROR:") {
			return line
		}
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
