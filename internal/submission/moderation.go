package submission

import (
	"fmt"
	"regexp"
	"strings"

	dErrors "eqboard/pkg/domain-errors"
)

// moderationRule pairs a policy name with the pattern that trips it. Rules are
// evaluated uniformly over every text field and artifact path; the first match
// wins. Blocked submissions are terminal and never retried.
type moderationRule struct {
	name    string
	pattern *regexp.Regexp
}

var moderationRules = []moderationRule{
	{"script-injection", regexp.MustCompile(`(?i)(<script|javascript:|data:text/html)`)},
	{"executable-artifact", regexp.MustCompile(`(?i)\.(exe|bat|cmd|ps1|scr)(\?|#|$)`)},
	{"spam-marker", regexp.MustCompile(`(?i)(free money|click here now|limited time offer|crypto giveaway)`)},
}

// CheckModeration scans the submission's text fields and artifact references
// against the rule table. A violation is a ModerationBlocked domain error
// naming the rule.
func CheckModeration(sub Submission) error {
	fields := []string{sub.Name, sub.Description, sub.Equation, sub.Animation.Path, sub.Image.Path}
	fields = append(fields, sub.Assumptions...)
	fields = append(fields, sub.Evidence...)

	for _, rule := range moderationRules {
		for _, field := range fields {
			if field == "" {
				continue
			}
			if rule.pattern.MatchString(field) {
				return dErrors.New(dErrors.CodeModerationBlocked,
					fmt.Sprintf("content policy violation: %s", rule.name))
			}
		}
	}
	return nil
}

// moderationReason extracts the rule name out of a ModerationBlocked error
// message for the stored reject reason.
func moderationReason(err error) string {
	msg := dErrors.MessageOf(err)
	if idx := strings.LastIndex(msg, ": "); idx >= 0 {
		return msg[idx+2:]
	}
	return msg
}
