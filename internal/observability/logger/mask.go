package logger

import "strings"

// MaskEmail keeps the first character of the local part and the full domain.
func MaskEmail(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	at := strings.LastIndex(value, "@")
	if at <= 0 {
		return maskLast4(value)
	}
	return value[:1] + "***" + value[at:]
}

// MaskToken masks secrets, preserving only the last 4 characters.
func MaskToken(value string) string {
	return maskLast4(value)
}

func maskLast4(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if len(value) <= 4 {
		return "****"
	}
	return "****" + value[len(value)-4:]
}
