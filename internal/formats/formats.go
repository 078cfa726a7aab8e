// Package formats implements the named string-format validators used by the
// "format" constraint.
package formats

import (
	"regexp"
	"time"

	"github.com/google/uuid"
)

var (
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	uriPattern      = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://.*`)
	datePattern     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timePattern     = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}(\.\d+)?$`)
	ipv4Pattern     = regexp.MustCompile(`^((25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)$`)
	ipv6Pattern     = regexp.MustCompile(`^([0-9a-fA-F]{1,4}:){7}[0-9a-fA-F]{1,4}$|^::1$|^::$`)
	hostnamePattern = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?(\.([a-zA-Z0-9]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?))*$`)
)

// dateTimeLayouts cover ISO-8601 timestamps with and without fractional
// seconds and UTC offsets.
var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// Validate reports whether value conforms to the named format. Unknown
// format names never validate.
func Validate(name, value string) bool {
	switch name {
	case "email":
		return emailPattern.MatchString(value)
	case "uri":
		return uriPattern.MatchString(value)
	case "date-time":
		return validDateTime(value)
	case "date":
		return validDate(value)
	case "time":
		return validTime(value)
	case "uuid":
		_, err := uuid.Parse(value)
		return err == nil
	case "ipv4":
		return ipv4Pattern.MatchString(value)
	case "ipv6":
		return ipv6Pattern.MatchString(value)
	case "hostname":
		return hostnamePattern.MatchString(value)
	case "regex":
		_, err := regexp.Compile(value)
		return err == nil
	default:
		return false
	}
}

func validDateTime(value string) bool {
	for _, layout := range dateTimeLayouts {
		if _, err := time.Parse(layout, value); err == nil {
			return true
		}
	}
	return false
}

// validDate requires the YYYY-MM-DD spelling and a calendar-valid date.
func validDate(value string) bool {
	if !datePattern.MatchString(value) {
		return false
	}
	_, err := time.Parse("2006-01-02", value)
	return err == nil
}

func validTime(value string) bool {
	if !timePattern.MatchString(value) {
		return false
	}
	_, err := time.Parse("15:04:05", value[:8])
	return err == nil
}
