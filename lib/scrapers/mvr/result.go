package mvr

import (
	"regexp"
	"strings"
	"time"

	"mvr-docstatus/lib/htmlutil"
	"mvr-docstatus/lib/textutil"
	"mvr-docstatus/lib/timezone"

	"github.com/PuerkitoBio/goquery"
)

type QueryResult struct {
	StatusText string
	RawHTML    string
	// Attempts is the number of attempts Query used to get this result.
	Attempts int
	// AsOf is the date the site reports the status for, zero if it didn't say.
	AsOf time.Time
}

var (
	statusSentencePattern = regexp.MustCompile(`(?s)След\s+\d{2}\.\d{2}\.\d{4}.*?получен\.`)
	captchaErrorPattern   = regexp.MustCompile(`(?is)(Грешка|Невалидна).*?капча`)
	asOfPattern           = regexp.MustCompile(`След\s+(\d{2}\.\d{2}\.\d{4})`)
)

func classContains(word string) func(int, *goquery.Selection) bool {
	return func(_ int, s *goquery.Selection) bool {
		class, ok := s.Attr("class")
		return ok && textutil.ContainsFold(class, word)
	}
}

// nearForm holds for elements inside the query form or sharing a parent
// with it, which is where the site renders its answer.
func nearForm(_ int, s *goquery.Selection) bool {
	return s.Closest("form").Length() > 0 ||
		s.Parent().ChildrenFiltered("form").Length() > 0
}

func containerText(sel *goquery.Selection) string {
	for _, node := range sel.Nodes {
		text := htmlutil.JoinedText(node, " ")
		if text != "" {
			return text
		}
	}
	return ""
}

// ExtractResult returns the status sentence of a result page. it only looks
// at `html`, the same input always gives the same output.
func ExtractResult(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", &ParseError{What: "result page markup"}
	}

	body := doc.Find("body")
	// banners in the page chrome share the alert classes with the answer
	alerts := body.Find("*").
		FilterFunction(classContains("alert")).
		Not("header, header *, nav, nav *, footer, footer *, aside, aside *")
	containers := []*goquery.Selection{
		alerts.FilterFunction(nearForm),
		alerts,
		body.Find("div.info-bubble"),
		body.Find("*").FilterFunction(classContains("result")),
	}
	for _, sel := range containers {
		text := containerText(sel)
		if text != "" {
			return text, nil
		}
	}

	root := doc.Selection
	if body.Length() > 0 {
		root = body
	}
	whole := htmlutil.JoinedText(root.Get(0), " ")
	if match := statusSentencePattern.FindString(whole); match != "" {
		return htmlutil.NormalizeWhitespace(match), nil
	}
	if match := captchaErrorPattern.FindString(whole); match != "" {
		return htmlutil.NormalizeWhitespace(match), nil
	}
	return "", &ParseError{What: "result container"}
}

type Outcome int

const (
	OutcomeStatus Outcome = iota
	OutcomeNoDocument
	OutcomeCaptchaRejected
	OutcomeServiceError
	// the attempt died on a network or parse error before a status was known
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeStatus:
		return "status"
	case OutcomeNoDocument:
		return "no_document"
	case OutcomeCaptchaRejected:
		return "captcha_rejected"
	case OutcomeServiceError:
		return "service_error"
	case OutcomeFailed:
		return "failed"
	}
	return "unknown"
}

// Retry reports whether another attempt could produce a different answer.
func (o Outcome) Retry() bool {
	return o == OutcomeCaptchaRejected
}

var (
	errorMarkers   = []string{"грешка", "невалид"}
	captchaMarkers = []string{"капча", "captcha", "защитен код", "код за сигурност"}
)

// Classify decides what a status sentence means, the site answers with HTTP
// 200 whatever happened so the text is all there is to go on.
func Classify(statusText string) Outcome {
	if textutil.ContainsAnyFold(statusText, errorMarkers) {
		if textutil.ContainsAnyFold(statusText, captchaMarkers) {
			return OutcomeCaptchaRejected
		}
		return OutcomeServiceError
	}
	if textutil.ContainsFold(statusText, "няма издаден документ") {
		return OutcomeNoDocument
	}
	return OutcomeStatus
}

func parseAsOf(statusText string) time.Time {
	match := asOfPattern.FindStringSubmatch(statusText)
	if match == nil {
		return time.Time{}
	}
	date, err := timezone.ParseDate(match[1])
	if err != nil {
		return time.Time{}
	}
	return date
}
