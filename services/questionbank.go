package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"daily-challenge-system/models"
	"daily-challenge-system/utils"

	"github.com/gosimple/slug"
)

// dayTopics names the six thematic stages. The bank object key is derived
// from (level, topic), so renaming a topic means republishing its banks.
var dayTopics = map[int]string{
	1: "Foundations",
	2: "Terminology",
	3: "Body Systems",
	4: "Diagnostics",
	5: "Case Studies",
	6: "Mastery Mix",
}

// WeeklyTopic is the lightweight weekly-quiz variant's bank.
const WeeklyTopic = "Weekly Review"

// BankKey is the canonical object key for one (level, topic) bank,
// e.g. "banks/advanced/case-studies.json".
func BankKey(level models.ChallengeLevel, topic string) string {
	return fmt.Sprintf("banks/%s/%s.json", slug.Make(string(level)), slug.Make(topic))
}

// QuestionBankStore keeps every loaded bank in memory. Banks are static
// content: loaded at startup from R2 (or a local directory in development)
// and refreshed on a schedule or after an admin publish.
type QuestionBankStore struct {
	mu       sync.RWMutex
	banks    map[string]*models.QuestionBank
	localDir string
}

func NewQuestionBankStore(localDir string) *QuestionBankStore {
	return &QuestionBankStore{
		banks:    make(map[string]*models.QuestionBank),
		localDir: localDir,
	}
}

// Load fetches every (level, topic) bank. Missing banks are logged and
// skipped — StartDay fails with ErrBankMissing for those combinations.
func (s *QuestionBankStore) Load(ctx context.Context) {
	levels := []models.ChallengeLevel{models.LevelBasic, models.LevelAdvanced, models.LevelMaster}
	topics := make([]string, 0, len(dayTopics)+1)
	for day := models.FirstDay; day <= models.FinalDay; day++ {
		topics = append(topics, dayTopics[day])
	}
	topics = append(topics, WeeklyTopic)

	loaded := 0
	for _, level := range levels {
		for _, topic := range topics {
			key := BankKey(level, topic)
			data, err := s.fetch(ctx, key)
			if err != nil {
				log.Printf("⚠️  [BANKS] %s unavailable: %v", key, err)
				continue
			}
			var bank models.QuestionBank
			if err := json.Unmarshal(data, &bank); err != nil {
				log.Printf("❌ [BANKS] %s is not valid JSON: %v", key, err)
				continue
			}
			bank.Level = level
			bank.Topic = topic
			s.mu.Lock()
			s.banks[key] = &bank
			s.mu.Unlock()
			loaded++
		}
	}
	log.Printf("📚 [BANKS] Loaded %d question bank(s)", loaded)
}

func (s *QuestionBankStore) fetch(ctx context.Context, key string) ([]byte, error) {
	if utils.R2Enabled() {
		return utils.FetchObjectFromR2(ctx, key)
	}
	if s.localDir == "" {
		return nil, fmt.Errorf("no R2 client and no local bank directory")
	}
	return os.ReadFile(filepath.Join(s.localDir, filepath.FromSlash(key)))
}

// ForDay returns the fixed question set for one day's stage.
func (s *QuestionBankStore) ForDay(level models.ChallengeLevel, day int) ([]models.Question, error) {
	topic, ok := dayTopics[day]
	if !ok {
		return nil, ErrInvalidDay
	}
	return s.forTopic(level, topic)
}

// ForWeekly returns the weekly-quiz bank for the tier.
func (s *QuestionBankStore) ForWeekly(level models.ChallengeLevel) ([]models.Question, error) {
	return s.forTopic(level, WeeklyTopic)
}

func (s *QuestionBankStore) forTopic(level models.ChallengeLevel, topic string) ([]models.Question, error) {
	s.mu.RLock()
	bank, ok := s.banks[BankKey(level, topic)]
	s.mu.RUnlock()
	if !ok || len(bank.Questions) == 0 {
		return nil, ErrBankMissing
	}
	return bank.Questions, nil
}

// Publish stores a new bank in R2 (when configured) and hot-swaps the
// in-memory copy so the next StartDay uses it.
func (s *QuestionBankStore) Publish(ctx context.Context, bank *models.QuestionBank) error {
	if !bank.Level.Valid() {
		return ErrInvalidLevel
	}
	if bank.Topic == "" || len(bank.Questions) == 0 {
		return fmt.Errorf("bank needs a topic and at least one question")
	}
	for i, q := range bank.Questions {
		if q.Answer < 0 || q.Answer >= len(q.Options) {
			return fmt.Errorf("question %d: answer index %d out of range", i, q.Answer)
		}
	}

	key := BankKey(bank.Level, bank.Topic)
	if utils.R2Enabled() {
		data, err := json.Marshal(bank)
		if err != nil {
			return err
		}
		if err := utils.UploadJSONToR2(ctx, key, data); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.banks[key] = bank
	s.mu.Unlock()
	log.Printf("📚 [BANKS] Published %s (%d questions)", key, len(bank.Questions))
	return nil
}
