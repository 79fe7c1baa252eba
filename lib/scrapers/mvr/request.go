package mvr

import (
	"fmt"
	"net/url"
	"strings"
)

// QueryRequest holds the five parameters the service endpoint expects.
type QueryRequest struct {
	DocumentType string
	SubjectID    string
	LastName     string
	Captcha      string
	Submitted    string
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func validateSubject(subjectID, lastName string) error {
	if len(subjectID) != 10 || !isDigits(subjectID) {
		return fmt.Errorf("%w: subject id must be exactly 10 digits", ErrInvalidRequest)
	}
	if strings.TrimSpace(lastName) == "" {
		return fmt.Errorf("%w: last name must not be empty", ErrInvalidRequest)
	}
	return nil
}

func (r QueryRequest) Validate() error {
	err := validateSubject(r.SubjectID, r.LastName)
	if err != nil {
		return err
	}
	if r.Captcha == "" {
		return fmt.Errorf("%w: captcha solution must not be empty", ErrInvalidRequest)
	}
	if r.DocumentType == "" {
		return fmt.Errorf("%w: document type must not be empty", ErrInvalidRequest)
	}
	return nil
}

// the site expects %20 rather than + for spaces
func escapeQueryValue(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// Encode renders the query string in the order the site's own form submits it.
// every value is percent-encoded as UTF-8.
func (r QueryRequest) Encode() string {
	pairs := [...][2]string{
		{"type", r.DocumentType},
		{"egn", r.SubjectID},
		{"name", strings.TrimSpace(r.LastName)},
		{"captcha", r.Captcha},
		{"submitted", r.Submitted},
	}
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = p[0] + "=" + escapeQueryValue(p[1])
	}
	return strings.Join(parts, "&")
}

var egnWeights = [9]int{2, 4, 8, 5, 10, 9, 7, 3, 6}

// ValidEGNChecksum verifies the control digit of a bulgarian ЕГН.
func ValidEGNChecksum(egn string) bool {
	if len(egn) != 10 || !isDigits(egn) {
		return false
	}
	sum := 0
	for i, w := range egnWeights {
		sum += int(egn[i]-'0') * w
	}
	control := sum % 11
	if control == 10 {
		control = 0
	}
	return control == int(egn[9]-'0')
}
