package ingestion

import (
	"encoding/json"
	"errors"

	"github.com/agrosense/agrosense-api/internal/pkg/application/tenancy"
	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/logging"
	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/repositories/database"
	"github.com/google/uuid"
	"github.com/streadway/amqp"
)

//Outcome is what became of a queued job. Jobs are processed at most once and only
//OutcomeStored writes anything.
type Outcome int

const (
	//OutcomeStored means a reading was created and the stake's last_reading_at advanced
	OutcomeStored Outcome = iota
	//OutcomeMalformed means the job could not be decoded or failed validation
	OutcomeMalformed
	//OutcomeUnknownStake means the stake is missing, inactive or removed. The job is dropped.
	OutcomeUnknownStake
	//OutcomeForeignStake means the stake belongs to a different account than the submitter
	OutcomeForeignStake
	//OutcomeFailed means the datastore refused the write
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeStored:
		return "stored"
	case OutcomeMalformed:
		return "malformed"
	case OutcomeUnknownStake:
		return "unknown-stake"
	case OutcomeForeignStake:
		return "foreign-stake"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

//Worker consumes queued readings
type Worker struct {
	store Store
	log   logging.Logger
}

//NewWorker creates a worker that writes through store
func NewWorker(store Store, log logging.Logger) *Worker {
	return &Worker{store: store, log: log}
}

//HandleDelivery processes one message from the ingestion topic
func (w *Worker) HandleDelivery(msg amqp.Delivery) {
	job := &Job{}

	if err := json.Unmarshal(msg.Body, job); err != nil {
		w.log.Errorf("Dropping undecodable reading job: %s", err.Error())
		return
	}

	w.Process(job)
}

//Process stores the reading described by job and reports what happened
func (w *Worker) Process(job *Job) Outcome {
	outcome := w.process(job)

	if outcome == OutcomeStored {
		w.log.Infof("Queued reading for stake %s %s", job.StakeID, outcome)
	} else {
		w.log.Warnf("Queued reading for stake %s dropped: %s", job.StakeID, outcome)
	}

	return outcome
}

func (w *Worker) process(job *Job) Outcome {
	accountID, err := uuid.Parse(job.AccountID)
	if err != nil {
		return OutcomeMalformed
	}

	submission := job.submission()
	if submission.Validate() != nil {
		return OutcomeMalformed
	}

	stakeID, err := submission.ParseStakeID()
	if err != nil {
		return OutcomeUnknownStake
	}

	stake, err := w.store.GetStakeFromID(stakeID)
	if errors.Is(err, database.ErrNotFound) {
		return OutcomeUnknownStake
	} else if err != nil {
		w.log.Errorf("Failed to look up stake %s: %s", stakeID, err.Error())
		return OutcomeFailed
	}

	if !stake.AcceptsReadings() {
		return OutcomeUnknownStake
	}

	if tenancy.Authorize(accountID, stake) != nil {
		return OutcomeForeignStake
	}

	reading, err := submission.Reading(stake.ID)
	if err != nil {
		return OutcomeMalformed
	}

	if err := w.store.CreateReading(reading); err != nil {
		w.log.Errorf("Failed to store queued reading for stake %s: %s", stake.ID, err.Error())
		return OutcomeFailed
	}

	return OutcomeStored
}
