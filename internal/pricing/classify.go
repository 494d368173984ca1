package pricing

import "strings"

const localNumberLength = 8

var numberSeparators = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")

// Classify returns the number type of a phone number.
//
// A leading '+' marks an international number. An 8-digit national number
// starting with 5, 7 or 8 is mobile. Everything else, including empty and
// malformed input, is landline.
func Classify(number string) NumberType {
	n := strings.TrimSpace(number)
	if n == "" {
		return NumberTypeLandline
	}
	if strings.HasPrefix(n, "+") {
		return NumberTypeInternational
	}

	n = numberSeparators.Replace(n)
	if len(n) != localNumberLength || !allDigits(n) {
		return NumberTypeLandline
	}
	switch n[0] {
	case '5', '7', '8':
		return NumberTypeMobile
	default:
		return NumberTypeLandline
	}
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
