package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/reward"
)

// RewardTable is the on-disk form of the prize table.
//
//	entries:
//	  - category: common_snack_a
//	    weight: 50
//	  - category: common_snack_b
//	    weight: 35
type RewardTable struct {
	Entries []RewardEntry `yaml:"entries" validate:"required,min=1,unique=Category,dive"`
}

// RewardEntry is one weighted category.
type RewardEntry struct {
	Category string `yaml:"category" validate:"required,oneof=common_snack_a common_snack_b voucher cash_small cash_large"`
	Weight   int    `yaml:"weight" validate:"gte=0,lte=100"`
}

// RewardTableTotal is the sum every table must reach: weights are percentages.
const RewardTableTotal = 100

var tableValidator = validator.New()

// DefaultRewardTable returns the classroom prize table.
func DefaultRewardTable() *RewardTable {
	def := reward.DefaultTable()
	t := &RewardTable{Entries: make([]RewardEntry, 0, len(def))}
	for _, w := range def {
		t.Entries = append(t.Entries, RewardEntry{Category: string(w.Category), Weight: w.Weight})
	}
	return t
}

// LoadRewardTable reads and validates a YAML prize table.
func LoadRewardTable(path string) (*RewardTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reward table: %w", err)
	}
	return ParseRewardTable(data)
}

// ParseRewardTable decodes YAML strictly, so typos in keys are reported.
func ParseRewardTable(data []byte) (*RewardTable, error) {
	var t RewardTable

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&t); err != nil {
		return nil, fmt.Errorf("decode reward table (check for typos): %w", err)
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate checks field rules and that the weights add up to 100.
func (t *RewardTable) Validate() error {
	if err := tableValidator.Struct(t); err != nil {
		return fmt.Errorf("reward table validation failed: %w", err)
	}

	total := 0
	for _, e := range t.Entries {
		total += e.Weight
	}
	if total != RewardTableTotal {
		return fmt.Errorf("reward table weights sum to %d, want %d", total, RewardTableTotal)
	}
	return nil
}

// Table converts to the domain form, keeping the declared order.
func (t *RewardTable) Table() reward.Table {
	out := make(reward.Table, 0, len(t.Entries))
	for _, e := range t.Entries {
		out = append(out, reward.Weight{Category: reward.Category(e.Category), Weight: e.Weight})
	}
	return out
}
