package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed interview.default.yaml
var defaultInterviewYAML []byte

// Interview holds interview tunables loaded from YAML.
type Interview struct {
	Settings      InterviewSettings  `yaml:"interview"`
	Difficulties  []DifficultyConfig `yaml:"difficulties"`
	QuestionBank  []BankQuestion     `yaml:"question_bank"`
	SkillKeywords []string           `yaml:"skill_keywords"`
}

// InterviewSettings contains engine-wide knobs.
type InterviewSettings struct {
	NoAnswerText    string        `yaml:"no_answer_text"`
	ValidationDelay time.Duration `yaml:"validation_delay"`
	ResumeTextLimit int           `yaml:"resume_text_limit"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes"`
}

// DifficultyConfig describes one difficulty tier of the question set.
type DifficultyConfig struct {
	Name        string `yaml:"name"`
	TimeSeconds int    `yaml:"time_seconds"`
	Weight      int    `yaml:"weight"`
	Count       int    `yaml:"count"`
}

// BankQuestion is a question served by the offline generator.
type BankQuestion struct {
	Question   string   `yaml:"question"`
	Difficulty string   `yaml:"difficulty"`
	Skills     []string `yaml:"skills"`
}

// DefaultInterview returns the built-in interview configuration.
func DefaultInterview() (*Interview, error) {
	return parseInterview(defaultInterviewYAML)
}

// LoadInterview reads interview configuration from a YAML file. An empty path
// yields the built-in defaults.
func LoadInterview(filename string) (*Interview, error) {
	if strings.TrimSpace(filename) == "" {
		return DefaultInterview()
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read interview config %s: %w", filename, err)
	}
	return parseInterview(data)
}

func parseInterview(data []byte) (*Interview, error) {
	var cfg Interview
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse interview config: %w", err)
	}
	if err := validateInterview(&cfg); err != nil {
		return nil, fmt.Errorf("validate interview config: %w", err)
	}
	return &cfg, nil
}

// QuestionCount is the number of questions an interview asks.
func (c *Interview) QuestionCount() int {
	total := 0
	for _, d := range c.Difficulties {
		total += d.Count
	}
	return total
}

// Difficulty returns the tier with the given name, case-insensitively.
func (c *Interview) Difficulty(name string) (DifficultyConfig, bool) {
	for _, d := range c.Difficulties {
		if strings.EqualFold(d.Name, strings.TrimSpace(name)) {
			return d, true
		}
	}
	return DifficultyConfig{}, false
}

// Weights maps difficulty name to its scoring weight.
func (c *Interview) Weights() map[string]int {
	out := make(map[string]int, len(c.Difficulties))
	for _, d := range c.Difficulties {
		out[d.Name] = d.Weight
	}
	return out
}

func validateInterview(cfg *Interview) error {
	if strings.TrimSpace(cfg.Settings.NoAnswerText) == "" {
		return fmt.Errorf("interview.no_answer_text is required")
	}
	if cfg.Settings.ValidationDelay < 0 {
		return fmt.Errorf("interview.validation_delay cannot be negative")
	}
	if cfg.Settings.ResumeTextLimit <= 0 {
		return fmt.Errorf("interview.resume_text_limit must be positive")
	}
	if cfg.Settings.MaxUploadBytes <= 0 {
		return fmt.Errorf("interview.max_upload_bytes must be positive")
	}
	if len(cfg.Difficulties) == 0 {
		return fmt.Errorf("at least one difficulty is required")
	}

	seen := make(map[string]struct{}, len(cfg.Difficulties))
	for i, d := range cfg.Difficulties {
		name := strings.TrimSpace(d.Name)
		if name == "" {
			return fmt.Errorf("difficulty %d must have a name", i)
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("difficulty %q is declared twice", name)
		}
		seen[key] = struct{}{}
		if d.TimeSeconds <= 0 {
			return fmt.Errorf("difficulty %q must have a positive time_seconds", name)
		}
		if d.Weight <= 0 {
			return fmt.Errorf("difficulty %q must have a positive weight", name)
		}
		if d.Count < 0 {
			return fmt.Errorf("difficulty %q count cannot be negative", name)
		}
	}
	if cfg.QuestionCount() == 0 {
		return fmt.Errorf("difficulties must ask at least one question")
	}

	perTier := make(map[string]int)
	for i, q := range cfg.QuestionBank {
		if strings.TrimSpace(q.Question) == "" {
			return fmt.Errorf("question_bank[%d] must have a question", i)
		}
		d, ok := cfg.Difficulty(q.Difficulty)
		if !ok {
			return fmt.Errorf("question_bank[%d] has unknown difficulty %q", i, q.Difficulty)
		}
		perTier[d.Name]++
	}
	if len(cfg.QuestionBank) > 0 {
		for _, d := range cfg.Difficulties {
			if perTier[d.Name] < d.Count {
				return fmt.Errorf("question_bank has %d %s questions, need %d", perTier[d.Name], d.Name, d.Count)
			}
		}
	}

	return nil
}
