package shared

import (
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strings"
)

var (
	curlHeaderPattern = regexp.MustCompile(`(?:-H|--header)\s+'([^']+)'|(?:-H|--header)\s+"([^"]+)"`)
	curlCookiePattern = regexp.MustCompile(`(?:-b|--cookie)\s+'([^']+)'|(?:-b|--cookie)\s+"([^"]+)"`)
)

// Headers that must not be replayed on outbound requests: the transport manages them.
var skippedHeaders = map[string]bool{
	"accept-encoding":   true,
	"connection":        true,
	"content-length":    true,
	"host":              true,
	"transfer-encoding": true,
}

// HeaderSet holds request headers captured from a browser "Copy as cURL" command.
//
// Scrape requests replay them so the search page is served as it would be to that browser session.
type HeaderSet struct {
	Headers map[string]string
	Cookie  string
}

// ParseCurlFile reads a file containing a cURL command and extracts its headers.
func ParseCurlFile(path string) (*HeaderSet, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read curl file: %w", err)
	}
	return ParseCurlCommand(string(content))
}

// ParseCurlCommand extracts -H and -b values from a cURL command.
//
// A cookie passed with -b wins over a Cookie header.
func ParseCurlCommand(cmd string) (*HeaderSet, error) {
	cmd = strings.ReplaceAll(cmd, "\\\r\n", " ")
	cmd = strings.ReplaceAll(cmd, "\\\n", " ")

	set := &HeaderSet{Headers: make(map[string]string)}
	var headerCookie string

	for _, match := range curlHeaderPattern.FindAllStringSubmatch(cmd, -1) {
		key, value, ok := strings.Cut(firstGroup(match), ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if strings.EqualFold(key, "cookie") {
			if headerCookie == "" {
				headerCookie = value
			}
			continue
		}
		set.Headers[key] = value
	}

	if match := curlCookiePattern.FindStringSubmatch(cmd); match != nil {
		set.Cookie = firstGroup(match)
	} else {
		set.Cookie = headerCookie
	}

	if len(set.Headers) == 0 && set.Cookie == "" {
		return nil, fmt.Errorf("%w: no headers found in curl command", ErrInvalidInput)
	}
	return set, nil
}

func firstGroup(match []string) string {
	if match[1] != "" {
		return match[1]
	}
	return match[2]
}

// Apply copies the captured headers onto h, replacing existing values.
func (s *HeaderSet) Apply(h http.Header) {
	if s == nil {
		return
	}
	for key, value := range s.Headers {
		if skippedHeaders[strings.ToLower(key)] {
			continue
		}
		h.Set(key, value)
	}
	if s.Cookie != "" {
		h.Set("Cookie", s.Cookie)
	}
}

// Len returns the number of headers that [HeaderSet.Apply] would set.
func (s *HeaderSet) Len() int {
	if s == nil {
		return 0
	}
	n := 0
	for key := range s.Headers {
		if !skippedHeaders[strings.ToLower(key)] {
			n++
		}
	}
	if s.Cookie != "" {
		n++
	}
	return n
}
