package ingestion

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/repositories/models"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

//ValidationError describes a submission that can not be turned into a reading
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func missingField(field string) *ValidationError {
	return &ValidationError{Field: field, Message: "Missing field: " + field}
}

//Number is a float that may be sent either as a JSON number or as a numeric string
type Number float64

//UnmarshalJSON accepts 18.5 as well as "18.5"
func (n *Number) UnmarshalJSON(data []byte) error {
	text := strings.TrimSpace(string(data))

	if strings.HasPrefix(text, `"`) {
		unquoted, err := strconv.Unquote(text)
		if err != nil {
			return err
		}
		text = strings.TrimSpace(unquoted)
	}

	value, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return &json.UnmarshalTypeError{Value: "string " + text, Type: reflect.TypeOf(float64(0))}
	}

	*n = Number(value)
	return nil
}

//Submission is the body of a reading ingestion request
type Submission struct {
	StakeID         string  `json:"stake_id" validate:"required"`
	Timestamp       string  `json:"timestamp" validate:"required"`
	SoilTemperature *Number `json:"soil_temperature" validate:"required"`
	AirTemperature  *Number `json:"air_temperature" validate:"required"`
	SoilHumidity    *Number `json:"soil_humidity" validate:"required"`
	AirHumidity     *Number `json:"air_humidity" validate:"required"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func submissionValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

//DecodeSubmission reads and validates a submission from body
func DecodeSubmission(body io.Reader) (*Submission, error) {
	s := &Submission{}

	if err := json.NewDecoder(body).Decode(s); err != nil {
		typeErr := &json.UnmarshalTypeError{}
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return nil, &ValidationError{Field: typeErr.Field, Message: "Invalid value for field: " + typeErr.Field}
		}
		return nil, &ValidationError{Message: fmt.Sprintf("Malformed request body: %s", err.Error())}
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return s, nil
}

//Validate reports the first missing field, in declaration order
func (s *Submission) Validate() error {
	err := submissionValidator().Struct(s)
	if err == nil {
		return nil
	}

	fieldErrors := validator.ValidationErrors{}
	if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
		return missingField(fieldErrors[0].Field())
	}

	return &ValidationError{Message: err.Error()}
}

//ParseStakeID returns the submitted stake id, or ErrStakeNotFound when it is not a valid id
func (s *Submission) ParseStakeID() (uuid.UUID, error) {
	id, err := uuid.Parse(s.StakeID)
	if err != nil {
		return uuid.Nil, ErrStakeNotFound
	}
	return id, nil
}

//ParseTimestamp returns the submitted timestamp, which must be RFC 3339
func (s *Submission) ParseTimestamp() (time.Time, error) {
	timestamp, err := time.Parse(time.RFC3339, s.Timestamp)
	if err != nil {
		return time.Time{}, &ValidationError{Field: "timestamp", Message: "Invalid timestamp: expected RFC 3339, got " + s.Timestamp}
	}
	return timestamp, nil
}

//Reading converts a validated submission into a reading for stakeID
func (s *Submission) Reading(stakeID uuid.UUID) (*models.Reading, error) {
	timestamp, err := s.ParseTimestamp()
	if err != nil {
		return nil, err
	}

	return &models.Reading{
		StakeID:         stakeID,
		Timestamp:       timestamp.UTC(),
		SoilTemperature: float64(*s.SoilTemperature),
		AirTemperature:  float64(*s.AirTemperature),
		SoilHumidity:    float64(*s.SoilHumidity),
		AirHumidity:     float64(*s.AirHumidity),
	}, nil
}
