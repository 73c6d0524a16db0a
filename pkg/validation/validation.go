package validation

import (
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	// HandleRegex validates a Twitch login: letters, digits and underscore.
	HandleRegex = regexp.MustCompile(`^[a-zA-Z0-9_]{1,25}$`)

	// ButtonTokenRegex validates a configuration button token before the
	// catalog lookup rejects unknown names.
	ButtonTokenRegex = regexp.MustCompile(`^[a-z]{1,6}$`)
)

// ValidateHandle validates a chat handle (a Twitch login). A leading @ is
// tolerated because moderation commands accept mention syntax.
func ValidateHandle(handle string) error {
	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")
	if handle == "" {
		return fmt.Errorf("handle is required")
	}
	if !HandleRegex.MatchString(handle) {
		return fmt.Errorf("invalid handle %q (letters, digits and _ only, max 25)", handle)
	}
	return nil
}

// ValidateChannel validates the configured Twitch channel name. A leading #
// is tolerated because that is how IRC spells it.
func ValidateChannel(channel string) error {
	channel = strings.TrimPrefix(strings.TrimSpace(channel), "#")
	if channel == "" {
		return fmt.Errorf("channel is required")
	}
	if !HandleRegex.MatchString(channel) {
		return fmt.Errorf("invalid channel %q", channel)
	}
	return nil
}

// ValidateGameName validates a configured game name.
func ValidateGameName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("game name is required")
	}
	if utf8.RuneCountInString(name) > 100 {
		return fmt.Errorf("game name is too long (max 100 characters)")
	}
	if !utf8.ValidString(name) {
		return fmt.Errorf("game name contains invalid characters")
	}
	return nil
}

// ValidateButtonToken validates the shape of a configuration button token.
// The catalog lookup decides whether the token names a real button.
func ValidateButtonToken(token string) error {
	if token == "" {
		return fmt.Errorf("button token is required")
	}
	if !ButtonTokenRegex.MatchString(token) {
		return fmt.Errorf("invalid button token %q", token)
	}
	return nil
}

// ValidateListenAddr validates a host:port listen address.
func ValidateListenAddr(addr string) error {
	if addr == "" {
		return fmt.Errorf("listen address is required")
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	_ = host // empty host means all interfaces
	n, err := strconv.Atoi(port)
	if err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("invalid listen port %q", port)
	}
	return nil
}

// ValidateNonEmptyString validates that string is not empty after trimming.
func ValidateNonEmptyString(s, fieldName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	return nil
}

// ValidateStringLength validates string length in runes.
func ValidateStringLength(s string, min, max int, fieldName string) error {
	length := utf8.RuneCountInString(s)
	if length < min {
		return fmt.Errorf("%s must be at least %d characters", fieldName, min)
	}
	if length > max {
		return fmt.Errorf("%s is too long (max %d characters)", fieldName, max)
	}
	return nil
}
