package domain

import "fmt"

// Validate checks the structural invariants a bank record must satisfy
// before the simulator may assume validated input: exactly four options,
// correct answer among them, official domain.
func (q Question) Validate() error {
	if q.ID == "" {
		return fmt.Errorf("question without id")
	}
	if !q.Domain.Valid() {
		return fmt.Errorf("question %s: unknown domain %q", q.ID, q.Domain)
	}
	if len(q.Options) != 4 {
		return fmt.Errorf("question %s: expected 4 options, got %d", q.ID, len(q.Options))
	}
	if _, ok := q.Options[q.CorrectAnswer]; !ok {
		return fmt.Errorf("question %s: correct answer %q not among options", q.ID, q.CorrectAnswer)
	}
	return nil
}

// ValidateBank validates every record and rejects duplicate IDs.
func ValidateBank(bank Bank) error {
	if bank.ID == "" {
		return fmt.Errorf("bank without id")
	}
	seen := make(map[string]struct{}, len(bank.Questions))
	for _, q := range bank.Questions {
		if err := q.Validate(); err != nil {
			return err
		}
		if _, dup := seen[q.ID]; dup {
			return fmt.Errorf("duplicate question id %s", q.ID)
		}
		seen[q.ID] = struct{}{}
	}
	return nil
}
