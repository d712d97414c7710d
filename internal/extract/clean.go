package extract

import (
	"regexp"
	"strings"
)

var (
	reImage      = regexp.MustCompile(`!\[.*?\]\(.*?\)`)
	reHTMLBreak  = regexp.MustCompile(`<br\s*/?>`)
	reMarkdown   = regexp.MustCompile(`[#>*_\-]`)
	reLink       = regexp.MustCompile(`\[(.*?)\]\(.*?\)`)
	reSpaces     = regexp.MustCompile(`[ \t]+`)
	reBlankLines = regexp.MustCompile(`\n\s*\n`)
)

// CleanPlainText strips markdown structure from OCR output down to the plain
// text used for chunking and retrieval, preserving the content itself.
func CleanPlainText(markdown string) string {
	text := reImage.ReplaceAllString(markdown, "")
	text = reHTMLBreak.ReplaceAllString(text, "\n")
	text = reLink.ReplaceAllString(text, "$1")
	text = reMarkdown.ReplaceAllString(text, "")
	text = reSpaces.ReplaceAllString(text, " ")
	text = reBlankLines.ReplaceAllString(text, "\n")
	return strings.TrimSpace(text)
}
