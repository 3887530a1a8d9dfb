package channel

import (
	"fmt"
	"regexp"
)

var placeholderRe = regexp.MustCompile(`\{\{(\w+)\}\}`)

// Render substitutes {{name}} placeholders from vars. Unknown placeholders
// are left as-is so a typo in a template is visible instead of silently
// blanked.
func Render(template string, vars map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		key := placeholderRe.FindStringSubmatch(match)[1]
		if val, ok := vars[key]; ok {
			return val
		}
		return match
	})
}

// SurveyURL is the public link a recipient follows to answer.
func SurveyURL(baseURL string, surveyID, sendID fmt.Stringer) string {
	return fmt.Sprintf("%s/survey/%s?sendId=%s", baseURL, surveyID, sendID)
}

// UnsubscribeURL opts the recipient out of future sends.
func UnsubscribeURL(baseURL string, sendID fmt.Stringer) string {
	return fmt.Sprintf("%s/unsubscribe?sendId=%s", baseURL, sendID)
}
