package auth

import "strings"

const specialCharacters = "!@#$%^&*"

// ValidatePassword checks the account password complexity rule:
// 8 to 16 characters, at least one uppercase letter, and at least one
// character from the fixed special set.
func ValidatePassword(password string) bool {
	if len(password) < 8 || len(password) > 16 {
		return false
	}
	if !strings.ContainsAny(password, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		return false
	}
	return strings.ContainsAny(password, specialCharacters)
}

// ValidateEmail checks the local@domain.tld shape: non-empty local and
// domain parts without spaces, and a dot in the domain with characters on
// both sides.
func ValidateEmail(email string) bool {
	if strings.ContainsAny(email, " \t\n") {
		return false
	}
	at := strings.Count(email, "@")
	if at != 1 {
		return false
	}
	parts := strings.SplitN(email, "@", 2)
	local, domain := parts[0], parts[1]
	if local == "" || domain == "" {
		return false
	}
	dot := strings.LastIndex(domain, ".")
	if dot <= 0 || dot == len(domain)-1 {
		return false
	}
	return true
}
