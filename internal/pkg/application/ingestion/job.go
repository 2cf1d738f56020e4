package ingestion

import (
	"github.com/google/uuid"
)

//TopicName is the routing key queued readings are published with
const TopicName = "agrosense.reading.ingest"

//Job is a queued reading. It carries the submitting account so the worker can refuse
//stakes that belong to someone else.
type Job struct {
	AccountID       string  `json:"account_id"`
	StakeID         string  `json:"stake_id"`
	Timestamp       string  `json:"timestamp"`
	SoilTemperature float64 `json:"soil_temperature"`
	AirTemperature  float64 `json:"air_temperature"`
	SoilHumidity    float64 `json:"soil_humidity"`
	AirHumidity     float64 `json:"air_humidity"`
}

//NewJob creates a job from a validated submission
func NewJob(accountID uuid.UUID, s *Submission) *Job {
	return &Job{
		AccountID:       accountID.String(),
		StakeID:         s.StakeID,
		Timestamp:       s.Timestamp,
		SoilTemperature: float64(*s.SoilTemperature),
		AirTemperature:  float64(*s.AirTemperature),
		SoilHumidity:    float64(*s.SoilHumidity),
		AirHumidity:     float64(*s.AirHumidity),
	}
}

//ContentType returns the content type of the serialized job
func (j *Job) ContentType() string {
	return "application/json"
}

//TopicName returns the routing key for queued readings
func (j *Job) TopicName() string {
	return TopicName
}

func (j *Job) submission() *Submission {
	soilTemperature := Number(j.SoilTemperature)
	airTemperature := Number(j.AirTemperature)
	soilHumidity := Number(j.SoilHumidity)
	airHumidity := Number(j.AirHumidity)

	return &Submission{
		StakeID:         j.StakeID,
		Timestamp:       j.Timestamp,
		SoilTemperature: &soilTemperature,
		AirTemperature:  &airTemperature,
		SoilHumidity:    &soilHumidity,
		AirHumidity:     &airHumidity,
	}
}
