package config

import (
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
)

// ValidationError reports a single invalid configuration field. Field
// names use the flat key form written to the configuration file, for
// example "orchestrator.dbPort".
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

var (
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	// domainPattern accepts dot-separated labels of letters, digits,
	// and hyphens, where labels neither start nor end with a hyphen.
	domainPattern = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]*[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]*[a-zA-Z0-9])?)*$`)
	digitsPattern = regexp.MustCompile(`^[0-9]+$`)
)

// ValidateRequired rejects empty or whitespace-only values.
func ValidateRequired(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Reason: "value is required"}
	}
	return nil
}

// ValidateIPv4 accepts dotted-quad IPv4 addresses only. Octets outside
// 0-255 and IPv6 addresses are rejected.
func ValidateIPv4(field, value string) error {
	if err := ValidateRequired(field, value); err != nil {
		return err
	}
	ip := net.ParseIP(value)
	if ip == nil || ip.To4() == nil || !strings.Contains(value, ".") {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("%q is not a valid IPv4 address", value)}
	}
	return nil
}

// ValidateEmail accepts addresses of the form local@domain.tld. It is
// deliberately loose; the goal is catching obvious typos, not full
// RFC 5322 conformance.
func ValidateEmail(field, value string) error {
	if err := ValidateRequired(field, value); err != nil {
		return err
	}
	if !emailPattern.MatchString(value) {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("%q is not a valid email address", value)}
	}
	return nil
}

// ValidateDomain accepts hostnames and DNS domains.
func ValidateDomain(field, value string) error {
	if err := ValidateRequired(field, value); err != nil {
		return err
	}
	if len(value) > 253 || !domainPattern.MatchString(value) {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("%q is not a valid domain name", value)}
	}
	return nil
}

// ValidatePort accepts TCP/UDP port numbers in decimal form.
func ValidatePort(field, value string) error {
	if err := ValidateRequired(field, value); err != nil {
		return err
	}
	port, err := strconv.Atoi(value)
	if err != nil || port < 1 || port > 65535 {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("%q is not a valid port (1-65535)", value)}
	}
	return nil
}

// ValidateDigits accepts strings of decimal digits with a length
// between minLen and maxLen inclusive. PLMN fields (MCC, MNC, TAC) are
// kept as strings because leading zeros are significant.
func ValidateDigits(field, value string, minLen, maxLen int) error {
	if err := ValidateRequired(field, value); err != nil {
		return err
	}
	if !digitsPattern.MatchString(value) || len(value) < minLen || len(value) > maxLen {
		if minLen == maxLen {
			return &ValidationError{Field: field, Reason: fmt.Sprintf("%q must be exactly %d digits", value, minLen)}
		}
		return &ValidationError{Field: field, Reason: fmt.Sprintf("%q must be %d to %d digits", value, minLen, maxLen)}
	}
	return nil
}
