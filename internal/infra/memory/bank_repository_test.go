package memory

import (
	"context"
	"testing"
	"time"

	"exam-simulator/internal/domain"
)

func TestBankRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		BankLoader: NewStaticBankLoader(map[string]domain.Bank{
			domain.ExamID: testBank(),
		}),
	}
	repo := NewBankRepository(loader, time.Minute)

	if _, err := repo.GetBank(context.Background(), domain.ExamID); err != nil {
		t.Fatalf("get bank: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.GetBank(context.Background(), domain.ExamID); err != nil {
		t.Fatalf("get bank 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestStaticLoaderUnknownBank(t *testing.T) {
	loader := NewStaticBankLoader(map[string]domain.Bank{})
	if _, err := loader.LoadBank(context.Background(), "nope"); err != domain.ErrBankNotFound {
		t.Fatalf("expected bank not found, got %v", err)
	}
}

type countingLoader struct {
	BankLoader
	calls int
}

func (l *countingLoader) LoadBank(ctx context.Context, examID string) (domain.Bank, error) {
	l.calls++
	return l.BankLoader.LoadBank(ctx, examID)
}

func testBank() domain.Bank {
	return domain.Bank{
		ID: domain.ExamID,
		Questions: []domain.Question{
			{
				ID:       "q1",
				Domain:   domain.DomainCloudConcepts,
				Question: "Which pillar is part of the Well-Architected Framework?",
				Options: map[string]string{
					"A": "Cost Optimization",
					"B": "Data Residency",
					"C": "Vendor Lock-in",
					"D": "Manual Scaling",
				},
				CorrectAnswer: "A",
			},
		},
	}
}
