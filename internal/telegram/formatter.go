package telegram

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/kitbuilder587/study-finder/internal/domain"
)

func FormatRecommendations(recs []domain.Recommendation, budget int) string {
	if len(recs) == 0 {
		return fmt.Sprintf("Не нашлось программ с расходами до %d € в месяц. Попробуйте поднять бюджет или изменить интересы.", budget)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<b>Подходящие программы (до %d € в месяц):</b>\n", budget))

	for i, r := range recs {
		sb.WriteString(fmt.Sprintf("\n%d. <b>%s</b>\n   %s, %s\n   ~%d € в месяц\n",
			i+1,
			html.EscapeString(r.ProgramName),
			html.EscapeString(r.University),
			html.EscapeString(r.City),
			r.MonthlyCosts,
		))
		if link := detailsLink(r.Requirements); link != "" {
			sb.WriteString(fmt.Sprintf("   <a href=\"%s\">%s</a>\n",
				html.EscapeString(link),
				html.EscapeString(truncateURL(link, 50)),
			))
		}
		sb.WriteString("   <i>" + html.EscapeString(r.Explanation) + "</i>\n")
	}

	return sb.String()
}

// ссылка лежит в хвосте requirements после "Details: "
func detailsLink(requirements string) string {
	const marker = "Details: "
	i := strings.LastIndex(requirements, marker)
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(requirements[i+len(marker):])
}

func SplitMessage(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}

	var messages []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			messages = append(messages, text)
			break
		}

		splitPoint := findSafeSplitPoint(text, maxLen)
		if splitPoint <= 0 || splitPoint > len(text) {
			splitPoint = maxLen
		}

		messages = append(messages, text[:splitPoint])
		text = text[splitPoint:]
	}

	return messages
}

func findSafeSplitPoint(text string, maxLen int) int {
	// ищем пробел или перевод строки, не ломая HTML-теги
	for i := maxLen - 1; i > maxLen/2; i-- {
		if i >= len(text) {
			continue
		}
		if isInsideHTMLTag(text, i) {
			continue
		}

		if text[i] == '\n' || text[i] == ' ' {
			return i + 1
		}
	}

	// внутри тега - ищем конец
	if maxLen < len(text) && isInsideHTMLTag(text, maxLen) {
		for i := maxLen; i < len(text); i++ {
			if text[i] == '>' {
				for j := i + 1; j < len(text) && j < i+50; j++ {
					if text[j] == '\n' || text[j] == ' ' {
						return j + 1
					}
				}
				return i + 1
			}
		}
	}

	for i := maxLen - 1; i > 0; i-- {
		if text[i] == ' ' || text[i] == '\n' {
			return i + 1
		}
	}

	return maxLen
}

func isInsideHTMLTag(text string, pos int) bool {
	if pos >= len(text) || pos < 0 {
		return false
	}
	for i := pos; i >= 0; i-- {
		if text[i] == '>' {
			return false
		}
		if text[i] == '<' {
			return true
		}
	}
	return false
}

// truncateURL режет по рунам, чтобы не порвать кириллицу и умлауты в ссылке.
func truncateURL(url string, maxLen int) string {
	if utf8.RuneCountInString(url) <= maxLen {
		return url
	}
	return domain.Truncate(url, maxLen-3) + "..."
}
