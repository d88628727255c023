package validation

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateCity_EmptyAndWhitespace(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"spaces", "   "},
		{"tab", "\t"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ValidateCity(tc.input, 1, 100)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, ErrCityEmpty) {
				t.Errorf("error = %v, want ErrCityEmpty", err)
			}
		})
	}
}

func TestValidateCity_LengthBounds(t *testing.T) {
	if _, err := ValidateCity("x", 2, 100); !errors.Is(err, ErrCityTooShort) {
		t.Errorf("error = %v, want ErrCityTooShort", err)
	}
	if _, err := ValidateCity(strings.Repeat("a", 101), 1, 100); !errors.Is(err, ErrCityTooLong) {
		t.Errorf("error = %v, want ErrCityTooLong", err)
	}
}

func TestValidateCity_InvalidChars(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"slash", "sea/ttle"},
		{"question", "sea?ttle"},
		{"hash", "sea#ttle"},
		{"control", "sea\x00ttle"},
		{"percent", "sea%ttle"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ValidateCity(tc.input, 1, 100)
			if !errors.Is(err, ErrCityInvalidChars) {
				t.Errorf("error = %v, want ErrCityInvalidChars", err)
			}
		})
	}
}

func TestValidateCity_Valid(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple", "London", "London"},
		{"trimmed", "  New York  ", "New York"},
		{"with country", "London,UK", "London,UK"},
		{"hyphenated", "Stratford-upon-Avon", "Stratford-upon-Avon"},
		{"unicode", "Zürich", "Zürich"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ValidateCity(tc.input, 2, 80)
			if err != nil {
				t.Fatalf("ValidateCity(%q) unexpected error: %v", tc.input, err)
			}
			if got != tc.want {
				t.Errorf("ValidateCity(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"simple", "alice", "alice", nil},
		{"trimmed", "  alice  ", "alice", nil},
		{"dots and underscores", "alice.b_c-d", "alice.b_c-d", nil},
		{"empty", "", "", ErrUsernameEmpty},
		{"whitespace only", "   ", "", ErrUsernameEmpty},
		{"too long", strings.Repeat("a", MaxUsernameLength+1), "", ErrUsernameTooLong},
		{"space inside", "al ice", "", ErrUsernameInvalidChars},
		{"at sign", "alice@example", "", ErrUsernameInvalidChars},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ValidateUsername(tc.input)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Errorf("error = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("ValidateUsername(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	if _, err := ValidatePassword(""); !errors.Is(err, ErrPasswordEmpty) {
		t.Errorf("error = %v, want ErrPasswordEmpty", err)
	}
	if _, err := ValidatePassword("   "); !errors.Is(err, ErrPasswordEmpty) {
		t.Errorf("error = %v, want ErrPasswordEmpty", err)
	}
	if _, err := ValidatePassword(strings.Repeat("p", 73)); !errors.Is(err, ErrPasswordTooLong) {
		t.Errorf("error = %v, want ErrPasswordTooLong", err)
	}
	got, err := ValidatePassword("pw123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "pw123" {
		t.Errorf("ValidatePassword = %q, want unchanged input", got)
	}
}

func TestValidateDays(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{"empty defaults to max", "", 5, false},
		{"one", "1", 1, false},
		{"five", "5", 5, false},
		{"trimmed", " 3 ", 3, false},
		{"zero", "0", 0, true},
		{"six", "6", 0, true},
		{"large", "100", 0, true},
		{"negative", "-1", 0, true},
		{"non-numeric", "abc", 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ValidateDays(tc.input)
			if tc.wantErr {
				if !errors.Is(err, ErrDaysOutOfRange) {
					t.Errorf("error = %v, want ErrDaysOutOfRange", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("ValidateDays(%q) = %d, want %d", tc.input, got, tc.want)
			}
		})
	}
}
