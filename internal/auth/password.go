package auth

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password accepted
const MinPasswordLength = 8

// MaxPasswordBytes is the longest password bcrypt can hash
const MaxPasswordBytes = 72

// PasswordSpecialChars lists the characters that satisfy the special character rule
const PasswordSpecialChars = "@#&§!?_$£€%*^~()<>{}"

// Password rule violations. ValidatePassword joins every rule that fails.
var (
	ErrPasswordTooShort  = fmt.Errorf("password must contain at least %d characters", MinPasswordLength)
	ErrPasswordNoUpper   = errors.New("password must contain at least one upper-case letter")
	ErrPasswordNoLower   = errors.New("password must contain at least one lower-case letter")
	ErrPasswordNoDigit   = errors.New("password must contain at least one digit")
	ErrPasswordNoSpecial = errors.New("password must contain at least one special character among " + PasswordSpecialChars)
	ErrPasswordTooLong   = fmt.Errorf("password must not exceed %d bytes", MaxPasswordBytes)
)

// PasswordRule checks one property of a candidate password
type PasswordRule func(password string) error

// PasswordRules are applied in order by ValidatePassword
var PasswordRules = []PasswordRule{
	MinLengthRule,
	UpperCaseRule,
	LowerCaseRule,
	DigitRule,
	SpecialCharRule,
	MaxLengthRule,
}

func MinLengthRule(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

func UpperCaseRule(password string) error {
	return requireRune(password, unicode.IsUpper, ErrPasswordNoUpper)
}

func LowerCaseRule(password string) error {
	return requireRune(password, unicode.IsLower, ErrPasswordNoLower)
}

func DigitRule(password string) error {
	return requireRune(password, unicode.IsDigit, ErrPasswordNoDigit)
}

func SpecialCharRule(password string) error {
	if !strings.ContainsAny(password, PasswordSpecialChars) {
		return ErrPasswordNoSpecial
	}
	return nil
}

func MaxLengthRule(password string) error {
	if len(password) > MaxPasswordBytes {
		return ErrPasswordTooLong
	}
	return nil
}

// ValidatePassword runs every rule and returns the joined failures, or nil
func ValidatePassword(password string) error {
	var errs []error
	for _, rule := range PasswordRules {
		if err := rule(password); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PasswordMessages flattens a ValidatePassword error into its messages
func PasswordMessages(err error) []string {
	if err == nil {
		return nil
	}
	var messages []string
	for _, rule := range []error{ErrPasswordTooShort, ErrPasswordNoUpper, ErrPasswordNoLower, ErrPasswordNoDigit, ErrPasswordNoSpecial, ErrPasswordTooLong} {
		if errors.Is(err, rule) {
			messages = append(messages, rule.Error())
		}
	}
	return messages
}

// HashPassword hashes a password with bcrypt
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the bcrypt hash
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func requireRune(s string, pred func(rune) bool, failure error) error {
	for _, r := range s {
		if pred(r) {
			return nil
		}
	}
	return failure
}
