package transcript

import (
	"fmt"
	"io"
	"time"
)

// Output formats for final transcripts.
const (
	FormatJSON = "json"
	FormatText = "text"
	FormatSRT  = "srt"
	FormatVTT  = "vtt"
)

// ValidFormat reports whether the format name is one we can write.
func ValidFormat(format string) bool {
	switch format {
	case FormatJSON, FormatText, FormatSRT, FormatVTT:
		return true
	}
	return false
}

// Write serializes the transcript in the requested format.
func (t *FinalTranscript) Write(w io.Writer, format string) error {
	switch format {
	case FormatJSON:
		return t.WriteJSON(w)
	case FormatText:
		return t.WriteText(w)
	case FormatSRT:
		return t.WriteSRT(w)
	case FormatVTT:
		return t.WriteVTT(w)
	}
	return fmt.Errorf("unknown transcript format %q", format)
}

// WriteText writes "[HH:MM:SS.mmm --> HH:MM:SS.mmm] [Speaker] Text" lines.
func (t *FinalTranscript) WriteText(w io.Writer) error {
	for _, s := range t.Segments {
		_, err := fmt.Fprintf(w, "[%s --> %s] [%s] %s\n",
			formatTimestamp(s.Start), formatTimestamp(s.End), s.Speaker, s.Text)
		if err != nil {
			return err
		}
	}
	return nil
}

// WriteSRT writes numbered SubRip cues with the speaker prefixed to the text.
func (t *FinalTranscript) WriteSRT(w io.Writer) error {
	for i, s := range t.Segments {
		_, err := fmt.Fprintf(w, "%d\n%s --> %s\n[%s] %s\n\n",
			i+1, formatTimestampSrt(s.Start), formatTimestampSrt(s.End), s.Speaker, s.Text)
		if err != nil {
			return err
		}
	}
	return nil
}

// WriteVTT writes WebVTT cues with the speaker prefixed to the text.
func (t *FinalTranscript) WriteVTT(w io.Writer) error {
	if _, err := fmt.Fprint(w, "WEBVTT\n\n"); err != nil {
		return err
	}
	for _, s := range t.Segments {
		_, err := fmt.Fprintf(w, "%s --> %s\n[%s] %s\n\n",
			formatTimestamp(s.Start), formatTimestamp(s.End), s.Speaker, s.Text)
		if err != nil {
			return err
		}
	}
	return nil
}

// formatTimestamp formats as HH:MM:SS.mmm
func formatTimestamp(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second))
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	ms := d / time.Millisecond
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}

// formatTimestampSrt formats as HH:MM:SS,mmm (SRT uses comma)
func formatTimestampSrt(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second))
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	ms := d / time.Millisecond
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
