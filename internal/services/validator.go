package services

import (
	"context"
	"encoding/json"
	"fmt"

	"printhub/internal/domain"

	"github.com/go-redis/redis/v8"
)

const rulesKey = "program_validation_rules"

func defaultRules() *domain.ValidationRules {
	return &domain.ValidationRules{
		MinMachine:  1,
		MaxMachine:  99,
		MaxColors:   16,
		MaxProgress: 100,
	}
}

// RedisProgramValidator checks mutation input against rules kept in Redis
// so limits can change without a redeploy. Missing rules fall back to the
// code defaults.
type RedisProgramValidator struct {
	client *redis.Client
	rules  *domain.ValidationRules
}

func NewRedisProgramValidator(client *redis.Client) *RedisProgramValidator {
	return &RedisProgramValidator{
		client: client,
	}
}

func (v *RedisProgramValidator) LoadRules(ctx context.Context) error {
	data, err := v.client.Get(ctx, rulesKey).Result()
	if err != nil {
		if err == redis.Nil {
			v.rules = defaultRules()
			return v.saveRules(ctx)
		}
		return err
	}

	var rules domain.ValidationRules
	if err := json.Unmarshal([]byte(data), &rules); err != nil {
		return err
	}

	v.rules = &rules
	return nil
}

func (v *RedisProgramValidator) saveRules(ctx context.Context) error {
	data, err := json.Marshal(v.rules)
	if err != nil {
		return err
	}

	return v.client.Set(ctx, rulesKey, string(data), 0).Err()
}

func (v *RedisProgramValidator) ValidateInput(input *domain.ProgramInput) error {
	rules := v.rules
	if rules == nil {
		rules = defaultRules()
	}

	if input.MachineNumber < rules.MinMachine || input.MachineNumber > rules.MaxMachine {
		return &domain.ValidationError{
			Field:  "machine_number",
			Reason: fmt.Sprintf("must be between %d and %d", rules.MinMachine, rules.MaxMachine),
		}
	}
	if input.Client == "" {
		return &domain.ValidationError{Field: "client", Reason: "required"}
	}
	if input.ArticleCode == "" {
		return &domain.ValidationError{Field: "article_code", Reason: "required"}
	}
	if len(input.Colors) > rules.MaxColors {
		return &domain.ValidationError{
			Field:  "colors",
			Reason: fmt.Sprintf("at most %d entries", rules.MaxColors),
		}
	}
	if input.Progress < 0 || input.Progress > rules.MaxProgress {
		return &domain.ValidationError{
			Field:  "progress",
			Reason: fmt.Sprintf("must be between 0 and %d", rules.MaxProgress),
		}
	}

	return nil
}
