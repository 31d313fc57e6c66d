package pipeline

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	// AudioBaseName is the fixed stem of the downloaded artifact.
	AudioBaseName = "downloaded_audio"
	// AudioFileName is the output name requested from the extractor.
	AudioFileName = AudioBaseName + ".webm"

	renamedExt = ".opus"
)

var acceptedAudioExts = []string{".webm", ".opus"}

type locateRule func(dir string, res *ExtractResult) (string, bool)

// locateRules run in order; the first hit wins.
var locateRules = []locateRule{
	locateRenamed,
	locateRequested,
	locateByPrefix,
}

// LocateArtifact finds the audio file the extractor left in dir.
func LocateArtifact(dir string, res *ExtractResult) (string, bool) {
	for _, rule := range locateRules {
		if path, ok := rule(dir, res); ok {
			return path, true
		}
	}
	return "", false
}

// locateRenamed checks where post-processing should have moved the file.
func locateRenamed(_ string, res *ExtractResult) (string, bool) {
	if res == nil || res.FilePath == "" {
		return "", false
	}
	path := strings.TrimSuffix(res.FilePath, filepath.Ext(res.FilePath)) + renamedExt
	if !strings.HasSuffix(path, renamedExt) || !isFile(path) {
		return "", false
	}
	return path, true
}

func locateRequested(dir string, _ *ExtractResult) (string, bool) {
	path := filepath.Join(dir, AudioFileName)
	if !isFile(path) {
		return "", false
	}
	return path, true
}

func locateByPrefix(dir string, _ *ExtractResult) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, AudioBaseName) && hasAcceptedExt(name) {
			return filepath.Join(dir, name), true
		}
	}
	return "", false
}

func hasAcceptedExt(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, accepted := range acceptedAudioExts {
		if ext == accepted {
			return true
		}
	}
	return false
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
