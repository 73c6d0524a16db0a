package validation

import (
	"strings"
	"testing"
)

func TestValidateHandle(t *testing.T) {
	tests := []struct {
		name    string
		handle  string
		wantErr bool
	}{
		{"valid handle", "viewer_one", false},
		{"valid with digits", "user123", false},
		{"mention syntax", "@viewer_one", false},
		{"surrounding space", "  viewer_one  ", false},
		{"empty", "", true},
		{"bare at sign", "@", true},
		{"too long", strings.Repeat("a", 26), true},
		{"invalid chars", "viewer one", true},
		{"dash not allowed", "viewer-one", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateHandle(tt.handle)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateHandle() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateChannel(t *testing.T) {
	tests := []struct {
		name    string
		channel string
		wantErr bool
	}{
		{"plain channel", "somestreamer", false},
		{"irc syntax", "#somestreamer", false},
		{"empty", "", true},
		{"bare hash", "#", true},
		{"invalid chars", "some streamer", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChannel(tt.channel)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateChannel() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateGameName(t *testing.T) {
	tests := []struct {
		name     string
		gameName string
		wantErr  bool
	}{
		{"simple name", "Tetris", false},
		{"name with spaces", "Pokemon Red", false},
		{"empty", "", true},
		{"whitespace only", "   ", true},
		{"too long", strings.Repeat("a", 101), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGameName(tt.gameName)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateGameName() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateButtonToken(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{"single letter", "a", false},
		{"word", "select", false},
		{"empty", "", true},
		{"uppercase", "A", true},
		{"digits", "b2", true},
		{"too long", "selects", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateButtonToken(tt.token)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateButtonToken() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateListenAddr(t *testing.T) {
	tests := []struct {
		name    string
		addr    string
		wantErr bool
	}{
		{"host and port", "localhost:8420", false},
		{"all interfaces", ":8420", false},
		{"ip and port", "127.0.0.1:9090", false},
		{"empty", "", true},
		{"no port", "localhost", true},
		{"port zero", "localhost:0", true},
		{"port too big", "localhost:70000", true},
		{"port not numeric", "localhost:abc", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateListenAddr(tt.addr)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateListenAddr() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateStringLength(t *testing.T) {
	if err := ValidateStringLength("secret", 3, 10, "key"); err != nil {
		t.Errorf("ValidateStringLength() unexpected error: %v", err)
	}
	if err := ValidateStringLength("ab", 3, 10, "key"); err == nil {
		t.Error("ValidateStringLength() expected error for short string")
	}
	if err := ValidateStringLength(strings.Repeat("a", 11), 3, 10, "key"); err == nil {
		t.Error("ValidateStringLength() expected error for long string")
	}
}
