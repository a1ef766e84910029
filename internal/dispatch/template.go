package dispatch

import "strings"

// Render substitutes {placeholder} tokens in the template. Unknown tokens are
// left in place so a typo in a template is visible in the delivered message
// rather than silently blanked.
func Render(tmpl string, vars map[string]string) string {
	if tmpl == "" || len(vars) == 0 {
		return tmpl
	}
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}
