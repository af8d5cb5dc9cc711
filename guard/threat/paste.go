package threat

import (
	"context"
	"regexp"

	"github.com/diu-mct/access-guard/models"
)

// pastePattern pairs a detection pattern with the label recorded in the
// audit event. The clipboard content itself is never logged, only its
// length and the matching label.
type pastePattern struct {
	label   string
	pattern *regexp.Regexp
}

var suspiciousPastePatterns = []pastePattern{
	{label: "admin", pattern: regexp.MustCompile(`(?i)admin`)},
	{label: "password", pattern: regexp.MustCompile(`(?i)password`)},
	{label: "secret", pattern: regexp.MustCompile(`(?i)secret`)},
}

// InspectPaste checks pasted clipboard text for credential-like
// substrings and records a suspicious-paste event on a match.
func (d *Detector) InspectPaste(ctx context.Context, subject models.Subject, content string) bool {
	var matched []string
	for _, p := range suspiciousPastePatterns {
		if p.pattern.MatchString(content) {
			matched = append(matched, p.label)
		}
	}
	if len(matched) == 0 {
		return false
	}

	d.record(ctx, models.EventSuspiciousPasteDetected, subject, map[string]interface{}{
		"content_length": len(content),
		"matched":        matched,
	})
	return true
}
