package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"exam-simulator/internal/app"
	"exam-simulator/internal/domain"
	pgloader "exam-simulator/internal/infra/postgres"
	pgmigrations "exam-simulator/internal/infra/postgres/migrations"
	infraredis "exam-simulator/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestExamSessionEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedBank(t, ctx, pgURL, sampleBank())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	loader := pgloader.NewBankLoader(pool)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	bankRepo := infraredis.NewBankRepository(redisClient, loader, 5*time.Minute)
	store := infraredis.NewSessionStore(redisClient, 5*time.Minute)
	service := app.NewExamService(store, store, bankRepo)

	cfg := domain.SessionConfig{
		Domains:       domain.AllDomains(),
		QuestionCount: 2,
	}
	view, err := service.Start(ctx, "s1", cfg)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if view.TotalQuestions != 2 {
		t.Fatalf("expected 2 questions, got %d", view.TotalQuestions)
	}

	questionID := view.Question.ID
	if _, _, err := service.Answer(ctx, "s1", questionID, "B"); err != nil {
		t.Fatalf("answer: %v", err)
	}

	// A second service instance sharing Redis resumes the persisted session.
	peerStore := infraredis.NewSessionStore(redisClient, 5*time.Minute)
	peer := app.NewExamService(peerStore, peerStore, bankRepo)
	resumed, err := peer.Resume(ctx, "s1")
	if err != nil {
		t.Fatalf("peer resume: %v", err)
	}
	if resumed.Answers[questionID] != "B" {
		t.Fatalf("peer lost the recorded answer: %+v", resumed.Answers)
	}

	result, err := service.Complete(ctx, "s1")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if result.TotalQuestions != 2 || result.CorrectCount != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}

	// Result persists in Redis past session teardown.
	service.Teardown("s1")
	persisted, err := peer.Result(ctx, "s1")
	if err != nil {
		t.Fatalf("persisted result: %v", err)
	}
	if persisted.ScaledScore != result.ScaledScore {
		t.Fatalf("persisted result differs: %d vs %d", persisted.ScaledScore, result.ScaledScore)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "exam", "POSTGRES_PASSWORD": "exampass", "POSTGRES_DB": "examdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://exam:exampass@%s:%s/examdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedBank(t *testing.T, ctx context.Context, dsn string, bank domain.Bank) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	if err := pgloader.SeedBank(ctx, db, bank); err != nil {
		t.Fatalf("seed bank: %v", err)
	}
}

func sampleBank() domain.Bank {
	mk := func(id string, d domain.Domain) domain.Question {
		return domain.Question{
			ID:       id,
			Domain:   d,
			Question: "prompt " + id,
			Options: map[string]string{
				"A": "a", "B": "b", "C": "c", "D": "d",
			},
			CorrectAnswer: "B",
		}
	}
	return domain.Bank{
		ID: domain.ExamID,
		Questions: []domain.Question{
			mk("q1", domain.DomainCloudConcepts),
			mk("q2", domain.DomainSecurityCompliance),
			mk("q3", domain.DomainCloudTechnology),
			mk("q4", domain.DomainBillingPricing),
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
