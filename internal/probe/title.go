package probe

import (
	"strings"

	"golang.org/x/net/html"
)

// maxTitleLength bounds the stored title.
const maxTitleLength = 512

// extractTitle returns the text of the first <title> element of an HTML
// document, with whitespace collapsed. It returns "" when there is none.
func extractTitle(content string) string {
	z := html.NewTokenizer(strings.NewReader(content))

	for {
		switch z.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			name, _ := z.TagName()
			if string(name) != "title" {
				continue
			}
			if z.Next() != html.TextToken {
				return ""
			}
			title := strings.Join(strings.Fields(string(z.Text())), " ")
			if len(title) > maxTitleLength {
				title = strings.ToValidUTF8(title[:maxTitleLength], "")
			}
			return title
		default:
		}
	}
}
