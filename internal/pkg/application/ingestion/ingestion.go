package ingestion

import (
	"errors"
	"fmt"

	"github.com/agrosense/agrosense-api/internal/pkg/application/tenancy"
	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/logging"
	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/messaging"
	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/repositories/database"
	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/repositories/models"
	"github.com/google/uuid"
)

var (
	//ErrStakeNotFound is returned when the submitted stake does not exist
	ErrStakeNotFound = errors.New("stake not found")
	//ErrStakeRetired is returned when the submitted stake is inactive or removed
	ErrStakeRetired = errors.New("stake is not accepting readings")
	//ErrQueueUnavailable is returned by Enqueue when there is no connection to the queue
	ErrQueueUnavailable = errors.New("reading queue is unavailable")
)

//Store is the part of the datastore ingestion writes through
type Store interface {
	GetStakeFromID(id uuid.UUID) (*models.Stake, error)
	CreateReading(reading *models.Reading) error
}

//Service records readings, either right away or by handing them to the queue
type Service struct {
	store     Store
	publisher messaging.Publisher
	log       logging.Logger
}

//NewService creates an ingestion service
func NewService(store Store, publisher messaging.Publisher, log logging.Logger) *Service {
	return &Service{store: store, publisher: publisher, log: log}
}

//IngestSync stores the submission as a reading of one of accountID's stakes
func (s *Service) IngestSync(accountID uuid.UUID, submission *Submission) (*models.Reading, error) {
	stakeID, err := submission.ParseStakeID()
	if err != nil {
		return nil, err
	}

	stake, err := s.store.GetStakeFromID(stakeID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrStakeNotFound
	} else if err != nil {
		return nil, err
	}

	if err := tenancy.Authorize(accountID, stake); err != nil {
		s.log.Warnf("Stake %s does not belong to account %s", stake.ID, accountID)
		return nil, err
	}

	if !stake.AcceptsReadings() {
		return nil, ErrStakeRetired
	}

	reading, err := submission.Reading(stake.ID)
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateReading(reading); err != nil {
		return nil, fmt.Errorf("failed to store reading for stake %s: %w", stake.ID, err)
	}

	s.log.Infof("Stored reading %s for stake %s", reading.ID, stake.ID)

	return reading, nil
}

//Enqueue hands the submission to the background worker. A timestamp that is not RFC 3339 is
//returned as a ValidationError; nothing is reported back about what the worker does with the job.
func (s *Service) Enqueue(accountID uuid.UUID, submission *Submission) error {
	if _, err := submission.ParseTimestamp(); err != nil {
		return err
	}

	if s.publisher == nil {
		return ErrQueueUnavailable
	}

	job := NewJob(accountID, submission)

	if err := s.publisher.PublishOnTopic(job); err != nil {
		return fmt.Errorf("failed to queue reading for stake %s: %w", submission.StakeID, err)
	}

	s.log.Debugf("Queued reading for stake %s", submission.StakeID)
	return nil
}
