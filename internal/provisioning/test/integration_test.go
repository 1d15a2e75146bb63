package test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gartstein/tenantprov/internal/pkg/password"
	"github.com/gartstein/tenantprov/internal/provisioning/controller"
	"github.com/gartstein/tenantprov/internal/provisioning/db"
	e "github.com/gartstein/tenantprov/internal/provisioning/errors"
	"github.com/gartstein/tenantprov/internal/provisioning/identifier"
	"github.com/gartstein/tenantprov/internal/provisioning/models"
	"github.com/gartstein/tenantprov/internal/provisioning/notify"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

const mailTopic = "tenant-mail-it"

var kafkaBrokers = []string{"localhost:9092"}

type IntegrationTestSuite struct {
	suite.Suite
	dbRepo      *db.Repository
	logger      *zap.Logger
	testTimeout time.Duration
}

func TestIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests")
	}
	suite.Run(t, new(IntegrationTestSuite))
}

func (s *IntegrationTestSuite) SetupSuite() {
	s.logger = zap.NewNop()
	s.testTimeout = 20 * time.Second

	var dbErr error
	s.dbRepo, dbErr = initializeDBWithRetry()
	if dbErr != nil {
		s.T().Fatal("Database initialization failed:", dbErr)
	}
}

func initializeDBWithRetry() (*db.Repository, error) {
	cfg := &db.Config{
		Driver:   db.DriverPostgres,
		Host:     "localhost",
		Port:     5432,
		User:     "test",
		Password: "test",
		DBName:   "test",
		SSLMode:  "disable",
	}

	var repo *db.Repository
	err := backoff.Retry(func() error {
		var err error
		repo, err = db.NewRepository(cfg)
		return err
	}, backoff.NewExponentialBackOff())
	return repo, err
}

func (s *IntegrationTestSuite) TearDownSuite() {
	if s.dbRepo != nil {
		_ = s.dbRepo.Close()
	}
}

func (s *IntegrationTestSuite) SetupTest() {
	ctx, cancel := context.WithTimeout(context.Background(), s.testTimeout)
	defer cancel()

	if err := s.dbRepo.Exec(ctx, "TRUNCATE TABLE users, companies, modules CASCADE"); err != nil {
		s.T().Fatal("Failed to clean database:", err)
	}
	err := s.dbRepo.SeedModules(ctx, []models.Module{
		{ID: db.ModuleID("Mobile Detailing"), Name: "Mobile Detailing", Active: true},
		{ID: db.ModuleID("Fleet Wash"), Name: "Fleet Wash", Active: true},
	})
	if err != nil {
		s.T().Fatal("Failed to seed modules:", err)
	}
}

func (s *IntegrationTestSuite) newService(notifier controller.Notifier) *controller.ProvisioningService {
	return controller.NewProvisioningService(
		s.dbRepo,
		password.NewHasher(4),
		notifier,
		identifier.NewResolver(identifier.DefaultRules, "MD"),
		s.logger,
		controller.Options{TxTimeout: 10 * time.Second, DefaultModule: "Mobile Detailing"},
	)
}

type nopNotifier struct{}

func (nopNotifier) Notify(*models.ProvisionResult, models.Credentials) []string { return nil }

func request(name, module, adminEmail string) *models.ProvisionRequest {
	return &models.ProvisionRequest{
		CompanyName:   name,
		Module:        module,
		AdminEmail:    adminEmail,
		AdminPassword: "Str0ng!pass",
	}
}

func (s *IntegrationTestSuite) TestProvisionAllocatesSequences() {
	ctx, cancel := context.WithTimeout(context.Background(), s.testTimeout)
	defer cancel()

	svc := s.newService(nopNotifier{})
	year := time.Now().Year() % 100

	first, err := svc.ProvisionCompany(ctx, request("Shine On", "Mobile Detailing", "a@shine.test"))
	require.NoError(s.T(), err)
	second, err := svc.ProvisionCompany(ctx, request("Big Rigs", "Fleet Wash", "b@rigs.test"))
	require.NoError(s.T(), err)

	assert.Equal(s.T(), fmt.Sprintf("MD-0001-CO-%02d-00001", year), first.Company.BusinessID)
	assert.Equal(s.T(), fmt.Sprintf("FW-0001-CO-%02d-00002", year), second.Company.BusinessID)

	stored, err := svc.GetCompany(ctx, first.Company.BusinessID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Shine On", stored.Name)
}

func (s *IntegrationTestSuite) TestConcurrentOverrideHasOneWinner() {
	ctx, cancel := context.WithTimeout(context.Background(), s.testTimeout)
	defer cancel()

	svc := s.newService(nopNotifier{})

	const workers = 5
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := request("Racer", "Mobile Detailing", fmt.Sprintf("racer%d@race.test", i))
			req.ID = "MD-0500-CO-25-00500"
			_, errs[i] = svc.ProvisionCompany(ctx, req)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.Equal(s.T(), e.KindValidation, e.KindOf(err))
		assert.Equal(s.T(), "id", e.FieldOf(err))
	}
	assert.Equal(s.T(), 1, wins)
}

func (s *IntegrationTestSuite) TestWelcomeMessagesReachKafka() {
	transport, reader, err := initializeKafkaWithRetry(mailTopic)
	if err != nil {
		s.T().Fatal("Kafka initialization failed:", err)
	}
	defer reader.Close()

	dispatcher := notify.NewDispatcher(transport, s.logger, notify.Options{MaxRetries: 3})
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		dispatcher.Close(closeCtx)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.testTimeout)
	defer cancel()

	adminEmail := fmt.Sprintf("owner-%s@kafka.test", uuid.NewString()[:8])
	result, err := s.newService(dispatcher).ProvisionCompany(ctx, request("Kafka Detailing", "Mobile Detailing", adminEmail))
	require.NoError(s.T(), err)
	assert.Empty(s.T(), result.Warnings)

	msg := s.consumeMessage(ctx, reader, adminEmail)
	assert.Equal(s.T(), result.Company.BusinessID, msg.BusinessID)
	assert.Equal(s.T(), notify.KindAdminWelcome, msg.Kind)
	assert.Contains(s.T(), msg.Body, "Str0ng!pass")
}

func initializeKafkaWithRetry(topic string) (*notify.KafkaTransport, *kafka.Reader, error) {
	var transport *notify.KafkaTransport
	err := backoff.Retry(func() error {
		var err error
		transport, err = notify.NewKafkaTransport(kafkaBrokers, topic, time.Hour, zap.NewNop())
		return err
	}, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 10))
	if err != nil {
		return nil, nil, fmt.Errorf("Kafka transport initialization failed: %w", err)
	}

	err = backoff.Retry(func() error {
		conn, err := kafka.Dial("tcp", kafkaBrokers[0])
		if err != nil {
			return err
		}
		defer conn.Close()

		partitions, err := conn.ReadPartitions(topic)
		if err != nil || len(partitions) == 0 {
			return fmt.Errorf("topic %s not found", topic)
		}
		return nil
	}, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5))
	if err != nil {
		return nil, nil, fmt.Errorf("Kafka topic check failed: %w", err)
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     kafkaBrokers,
		Topic:       topic,
		GroupID:     "it-" + uuid.NewString(),
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	})
	return transport, reader, nil
}

// consumeMessage reads until a message addressed to recipient arrives.
func (s *IntegrationTestSuite) consumeMessage(ctx context.Context, reader *kafka.Reader, recipient string) notify.Message {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	for {
		raw, err := reader.ReadMessage(ctx)
		if err != nil {
			s.T().Fatalf("No message for %s: %v", recipient, err)
			return notify.Message{}
		}
		if string(raw.Key) != recipient {
			s.T().Logf("Skipping message with unmatched key: %s", string(raw.Key))
			continue
		}
		var msg notify.Message
		if err := json.Unmarshal(raw.Value, &msg); err != nil {
			s.T().Fatalf("Failed to unmarshal Kafka message: %v", err)
		}
		return msg
	}
}
