package masking

import "strings"

const maskToken = "***"

var piiKeys = map[string]struct{}{
	"payer_email": {},
	"payer_name":  {},
	"email":       {},
	"phone":       {},
}

// MaskEmail keeps the first character of the local part and the domain.
func MaskEmail(value string) string {
	trimmed := strings.TrimSpace(value)
	at := strings.LastIndex(trimmed, "@")
	if at <= 0 {
		return MaskText(trimmed)
	}
	return trimmed[:1] + maskToken + trimmed[at:]
}

// MaskText keeps only the first character.
func MaskText(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	return string([]rune(trimmed)[:1]) + maskToken
}

// MaskPII returns a copy of input with payer-identifying values masked.
func MaskPII(input map[string]any) map[string]any {
	if len(input) == 0 {
		return nil
	}

	masked := make(map[string]any, len(input))
	for key, value := range input {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			continue
		}
		masked[trimmedKey] = maskValue(trimmedKey, value)
	}
	return masked
}

func maskValue(key string, value any) any {
	switch cast := value.(type) {
	case string:
		if _, ok := piiKeys[strings.ToLower(key)]; !ok {
			return cast
		}
		if strings.Contains(strings.ToLower(key), "email") {
			return MaskEmail(cast)
		}
		return MaskText(cast)
	case map[string]any:
		return MaskPII(cast)
	default:
		return value
	}
}
