package helper

import (
	"strings"

	"github.com/yourusername/quiz-reward-api/internal/domain/entity"
)

const optionIDAlphabet = "abcdefghijklmnopqrstuvwxyz"

// ConvertOptionsToObjects преобразует массив строк в варианты ответа с id "a", "b", "c"...
// Пустые строки сохраняются как есть, их отклонит валидация вопроса.
// Возвращает nil, если вариантов больше, чем букв в алфавите.
func ConvertOptionsToObjects(options []string) entity.OptionList {
	if len(options) > len(optionIDAlphabet) {
		return nil
	}
	converted := make(entity.OptionList, len(options))
	for i, opt := range options {
		converted[i] = entity.Option{ID: string(optionIDAlphabet[i]), Text: strings.TrimSpace(opt)}
	}
	return converted
}

// OptionTexts возвращает тексты вариантов в исходном порядке
func OptionTexts(options entity.OptionList) []string {
	texts := make([]string, len(options))
	for i, opt := range options {
		texts[i] = opt.Text
	}
	return texts
}
