package respwrite

import (
	"regexp"
	"strings"

	"github.com/zmirror/zmirror/internal/config"
)

var (
	headOpenRe   = regexp.MustCompile(`(?i)<head[^>]*>`)
	headCloseRe  = regexp.MustCompile(`(?i)</head>`)
	firstScriptRe = regexp.MustCompile(`(?i)<script`)
)

// injectContent walks custom_inject_content[position] for head_first and
// head_last, injecting each entry whose url_regex (if any) matches
// urlNoScheme (spec.md §4.E).
func injectContent(cfg *config.Config, urlNoScheme, html string) string {
	headStart := headOpenRe.FindStringIndex(html)
	headEnd := headCloseRe.FindStringIndex(html)
	if headStart == nil || headEnd == nil {
		return html
	}

	html = applyPosition(cfg, config.InjectHeadLast, urlNoScheme, html, headEnd[0])
	// Re-locate </head> since head_last may have shifted offsets.
	headEnd = headCloseRe.FindStringIndex(html)
	if headEnd == nil {
		return html
	}
	html = applyPosition(cfg, config.InjectHeadFirst, urlNoScheme, html, firstScriptOrHeadClose(html, headStart[1], headEnd[0]))

	return html
}

// firstScriptOrHeadClose returns the insertion offset for head_first: right
// before the first <script within <head>…</head>, or right before </head>
// if there is none.
func firstScriptOrHeadClose(html string, headContentStart, headCloseStart int) int {
	section := html[headContentStart:headCloseStart]
	if loc := firstScriptRe.FindStringIndex(section); loc != nil {
		return headContentStart + loc[0]
	}
	return headCloseStart
}

func applyPosition(cfg *config.Config, pos config.InjectPosition, urlNoScheme, html string, offset int) string {
	rules, ok := cfg.CustomInjectContent[pos]
	if !ok {
		return html
	}

	var toInsert strings.Builder
	for _, rule := range rules {
		if rule.URLRegex != "" {
			re, err := regexp.Compile(rule.URLRegex)
			if err != nil || !re.MatchString(urlNoScheme) {
				continue
			}
		}
		toInsert.WriteString(rule.Content)
	}
	if toInsert.Len() == 0 {
		return html
	}

	return html[:offset] + toInsert.String() + html[offset:]
}
