package pipeline

import (
	"fmt"
	"strings"
)

const summaryPromptTemplate = "Please summarize the following transcript from a YouTube video. " +
	"Provide a concise and informative summary highlighting the key points and main topics discussed:" +
	"\n\nTranscript:\n%s\n\nSummary:"

// JoinTranscript keeps the top alternative of every result that has one.
func JoinTranscript(results []RecognitionResult) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		if len(r.Alternatives) == 0 {
			continue
		}
		parts = append(parts, r.Alternatives[0].Transcript)
	}
	return strings.Join(parts, " ")
}

// BuildPrompt embeds the transcript verbatim into the summarization prompt.
func BuildPrompt(transcript string) string {
	return fmt.Sprintf(summaryPromptTemplate, transcript)
}
