package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCapitalQuestion() *Question {
	return &Question{
		ID:     "9c4a1f0e-0000-4000-8000-000000000001",
		QuizID: "q1",
		Text:   "Столица Франции?",
		Options: OptionList{
			{ID: "a", Text: "London"},
			{ID: "b", Text: "Berlin"},
			{ID: "c", Text: "Paris"},
			{ID: "d", Text: "Madrid"},
		},
		CorrectOption: 2, // "Paris"
	}
}

func TestQuestion_IsCorrect(t *testing.T) {
	q := newCapitalQuestion()

	assert.True(t, q.IsCorrect(2), "IsCorrect должен вернуть true для правильного ответа")
	assert.False(t, q.IsCorrect(0), "IsCorrect должен вернуть false для неправильного ответа")
	assert.False(t, q.IsCorrect(NoAnswer), "Отсутствие ответа всегда неверно")
	assert.False(t, q.IsCorrect(7), "Индекс вне диапазона всегда неверен")
}

func TestQuestion_OptionIndex(t *testing.T) {
	q := newCapitalQuestion()

	assert.Equal(t, 0, q.OptionIndex("a"))
	assert.Equal(t, 2, q.OptionIndex("c"))
	assert.Equal(t, NoAnswer, q.OptionIndex("zzz"), "Неизвестный вариант должен давать NoAnswer")
	assert.Equal(t, NoAnswer, q.OptionIndex(""))
}

func TestQuestion_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(q *Question)
		wantErr bool
	}{
		{"валидный вопрос", func(q *Question) {}, false},
		{"пустой текст", func(q *Question) { q.Text = "" }, true},
		{"один вариант", func(q *Question) { q.Options = q.Options[:1]; q.CorrectOption = 0 }, true},
		{"дубликат id варианта", func(q *Question) { q.Options[1].ID = "a" }, true},
		{"правильный ответ вне диапазона", func(q *Question) { q.CorrectOption = 4 }, true},
		{"отрицательный правильный ответ", func(q *Question) { q.CorrectOption = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := newCapitalQuestion()
			tt.mutate(q)
			err := q.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOptionList_ScanValue(t *testing.T) {
	// Arrange
	var opts OptionList

	// Act
	err := opts.Scan([]byte(`[{"id":"a","text":"A"},{"id":"b","text":"B"}]`))

	// Assert
	require.NoError(t, err)
	require.Len(t, opts, 2)
	assert.Equal(t, "b", opts[1].ID)

	require.NoError(t, opts.Scan(nil))
	assert.Empty(t, opts, "NULL должен превращаться в пустой список")

	v, err := OptionList(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("[]"), v, "Пустой список должен сохраняться как []")
}
