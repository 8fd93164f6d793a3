package validation

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Константы подготовки текста
const (
	// MaxModerationTextLength — верхняя граница текста, отправляемого
	// классификаторам. Более длинный текст усекается по рунам.
	MaxModerationTextLength = 4000
)

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s не может быть пустым", fieldName)
	}
	return nil
}

// NormalizeText готовит текст к отправке классификаторам: убирает
// управляющие символы, схлопывает пробельные последовательности и
// усекает до MaxModerationTextLength рун.
func NormalizeText(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	lastSpace := true
	count := 0
	for _, r := range text {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			if lastSpace {
				continue
			}
			b.WriteRune(' ')
			lastSpace = true
			count++
		} else {
			b.WriteRune(r)
			lastSpace = false
			count++
		}
		if count >= MaxModerationTextLength {
			break
		}
	}

	return strings.TrimSpace(b.String())
}
