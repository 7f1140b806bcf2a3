// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package bot

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/paperbot/pkg/types"
)

var (
	pagesPattern    = regexp.MustCompile(`(?i)\b(\d{1,2})\s*(?:pages?|pp)\b`)
	deadlinePattern = regexp.MustCompile(`(?i)\bby\s+(\d{4}-\d{2}-\d{2})\b`)
	hashtagPattern  = regexp.MustCompile(`#([\p{L}\d_-]+)`)
)

// parseIntake assembles a paper request from the buffered inputs. Free-form
// hints are recognized in passing: a citation style name, "N pages", a
// "by YYYY-MM-DD" deadline, and #hashtags become tags. Unset fields take
// the defaults.
func parseIntake(inputs []string, role types.UserType) types.Intake {
	text := strings.TrimSpace(strings.Join(inputs, "\n"))

	in := types.Intake{
		Topic:    text,
		UserType: role,
	}

	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "chicago"):
		in.Format = types.FormatChicago
	case strings.Contains(lower, "mla"):
		in.Format = types.FormatMLA
	case strings.Contains(lower, "apa"):
		in.Format = types.FormatAPA
	}

	if m := pagesPattern.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			in.LengthPages = n
		}
	}
	if m := deadlinePattern.FindStringSubmatch(text); m != nil {
		if t, err := time.Parse("2006-01-02", m[1]); err == nil {
			in.Deadline = t
		}
	}
	for _, m := range hashtagPattern.FindAllStringSubmatch(text, -1) {
		in.Tags = append(in.Tags, strings.ToLower(m[1]))
	}

	return types.DefaultIntake(in)
}
