package services

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"daily-challenge-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBankKey(t *testing.T) {
	assert.Equal(t, "banks/basic/foundations.json", BankKey(models.LevelBasic, "Foundations"))
	assert.Equal(t, "banks/advanced/case-studies.json", BankKey(models.LevelAdvanced, "Case Studies"))
	assert.Equal(t, "banks/master/weekly-review.json", BankKey(models.LevelMaster, WeeklyTopic))
}

func writeLocalBank(t *testing.T, dir string, level models.ChallengeLevel, topic string, questions []models.Question) {
	t.Helper()
	key := BankKey(level, topic)
	path := filepath.Join(dir, filepath.FromSlash(key))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))

	data, err := json.Marshal(models.QuestionBank{Questions: questions})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestQuestionBankStoreLoad(t *testing.T) {
	dir := t.TempDir()
	questions := []models.Question{sampleQuestion(), sampleQuestion()}
	writeLocalBank(t, dir, models.LevelBasic, "Foundations", questions)
	writeLocalBank(t, dir, models.LevelBasic, WeeklyTopic, questions[:1])

	store := NewQuestionBankStore(dir)
	store.Load(context.Background())

	t.Run("LoadedBankServed", func(t *testing.T) {
		got, err := store.ForDay(models.LevelBasic, 1)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("WeeklyBankServed", func(t *testing.T) {
		got, err := store.ForWeekly(models.LevelBasic)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("MissingBankErrors", func(t *testing.T) {
		_, err := store.ForDay(models.LevelMaster, 3)
		assert.ErrorIs(t, err, ErrBankMissing)
	})

	t.Run("InvalidDayErrors", func(t *testing.T) {
		_, err := store.ForDay(models.LevelBasic, 9)
		assert.ErrorIs(t, err, ErrInvalidDay)
	})
}

func TestQuestionBankPublish(t *testing.T) {
	store := NewQuestionBankStore("")

	t.Run("HotSwapsBank", func(t *testing.T) {
		bank := &models.QuestionBank{
			Level:     models.LevelAdvanced,
			Topic:     "Diagnostics",
			Questions: []models.Question{sampleQuestion()},
		}
		require.NoError(t, store.Publish(context.Background(), bank))

		got, err := store.ForDay(models.LevelAdvanced, 4)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("RejectsInvalidLevel", func(t *testing.T) {
		bank := &models.QuestionBank{Level: "expert", Topic: "Diagnostics", Questions: []models.Question{sampleQuestion()}}
		assert.ErrorIs(t, store.Publish(context.Background(), bank), ErrInvalidLevel)
	})

	t.Run("RejectsEmptyBank", func(t *testing.T) {
		bank := &models.QuestionBank{Level: models.LevelBasic, Topic: "Foundations"}
		assert.Error(t, store.Publish(context.Background(), bank))
	})

	t.Run("RejectsAnswerOutOfRange", func(t *testing.T) {
		bad := sampleQuestion()
		bad.Answer = 9
		bank := &models.QuestionBank{Level: models.LevelBasic, Topic: "Foundations", Questions: []models.Question{bad}}
		assert.Error(t, store.Publish(context.Background(), bank))
	})
}
