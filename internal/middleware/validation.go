package middleware

import (
	"errors"
	"net"
	"net/url"
	"strings"
	"unicode/utf8"
)

// Validation limits.
const (
	// MaxSourceURLLength is the maximum length for a URL submitted for processing.
	MaxSourceURLLength = 2048

	// MaxChatInputLength is the maximum length in bytes of a chat message.
	MaxChatInputLength = 4000

	// MaxAPIKeyLength bounds context keys accepted from clients.
	MaxAPIKeyLength = 128

	// MaxEmailLength is the RFC 5321 limit on an address.
	MaxEmailLength = 254

	// MaxPasswordLength bounds passwords before hashing.
	MaxPasswordLength = 256
)

// Validation errors.
var (
	ErrSourceURLTooLong    = errors.New("URL exceeds maximum length")
	ErrSourceURLInvalid    = errors.New("URL must be an absolute http or https URL")
	ErrSourceURLPrivate    = errors.New("URL points to a private or loopback address")
	ErrSourceURLCredential = errors.New("URL must not contain credentials")
	ErrChatInputTooLong    = errors.New("input exceeds maximum length")
	ErrChatInputEncoding   = errors.New("input is not valid UTF-8")
	ErrAPIKeyTooLong       = errors.New("API key exceeds maximum length")
	ErrEmailTooLong        = errors.New("email exceeds maximum length")
	ErrPasswordTooLong     = errors.New("password exceeds maximum length")
)

// blockedHostnames are names that always resolve to the local machine.
var blockedHostnames = map[string]bool{
	"localhost":                true,
	"localhost.localdomain":    true,
	"ip6-localhost":            true,
	"ip6-loopback":             true,
	"metadata.google.internal": true,
}

// ValidateSourceURL validates a URL submitted for extraction. Unless
// allowPrivate is set, literal loopback, private and link-local addresses and
// well-known local hostnames are refused. Names that resolve to private
// addresses are not caught here.
func ValidateSourceURL(raw string, allowPrivate bool) error {
	if len(raw) > MaxSourceURLLength {
		return ErrSourceURLTooLong
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ErrSourceURLInvalid
	}
	scheme := strings.ToLower(u.Scheme)
	if (scheme != "http" && scheme != "https") || u.Hostname() == "" {
		return ErrSourceURLInvalid
	}
	if u.User != nil {
		return ErrSourceURLCredential
	}

	if allowPrivate {
		return nil
	}

	host := strings.ToLower(strings.TrimSuffix(u.Hostname(), "."))
	if blockedHostnames[host] || strings.HasSuffix(host, ".localhost") {
		return ErrSourceURLPrivate
	}
	if ip := net.ParseIP(host); ip != nil && !publicIP(ip) {
		return ErrSourceURLPrivate
	}

	return nil
}

func publicIP(ip net.IP) bool {
	return !(ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsUnspecified() ||
		ip.IsMulticast())
}

// ValidateChatInput checks a visitor message. Content is never altered.
func ValidateChatInput(input string) error {
	if len(input) > MaxChatInputLength {
		return ErrChatInputTooLong
	}
	if !utf8.ValidString(input) {
		return ErrChatInputEncoding
	}
	return nil
}

// ValidateAPIKey bounds the size of a client-supplied context key.
func ValidateAPIKey(key string) error {
	if len(key) > MaxAPIKeyLength {
		return ErrAPIKeyTooLong
	}
	return nil
}

// ValidateCredentials bounds email and password sizes.
func ValidateCredentials(email, password string) error {
	if len(email) > MaxEmailLength {
		return ErrEmailTooLong
	}
	if len(password) > MaxPasswordLength {
		return ErrPasswordTooLong
	}
	return nil
}
