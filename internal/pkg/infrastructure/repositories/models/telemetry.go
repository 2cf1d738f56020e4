package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

//Land is a parcel of land owned by an account
type Land struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AccountID     uuid.UUID `gorm:"type:uuid;not null;index" json:"account"`
	Account       *Account  `gorm:"foreignKey:AccountID" json:"-"`
	Name          string    `gorm:"size:255;not null" json:"name"`
	Description   string    `gorm:"type:text" json:"description"`
	Latitude      float64   `gorm:"not null" json:"latitude"`
	Longitude     float64   `gorm:"not null" json:"longitude"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	LastUpdatedAt time.Time `gorm:"autoUpdateTime" json:"last_updated_at"`
	Active        bool      `gorm:"not null" json:"active"`
}

//BeforeCreate assigns an id to new lands
func (l *Land) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

//Stake is a physical sensor device planted in a land
type Stake struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	LandID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"land"`
	Land          *Land      `gorm:"foreignKey:LandID" json:"-"`
	Name          string     `gorm:"size:255;not null" json:"name"`
	Latitude      float64    `gorm:"not null" json:"latitude"`
	Longitude     float64    `gorm:"not null" json:"longitude"`
	InstalledAt   time.Time  `gorm:"autoCreateTime" json:"installed_at"`
	LastReadingAt *time.Time `json:"last_reading_at"`
	Active        bool       `gorm:"not null" json:"active"`
	Removed       bool       `gorm:"not null" json:"removed"`
}

//BeforeCreate assigns an id to new stakes
func (s *Stake) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

//AcceptsReadings reports whether new readings may be recorded for this stake
func (s *Stake) AcceptsReadings() bool {
	return s.Active && !s.Removed
}

//Reading is one immutable observation reported by a stake
type Reading struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	StakeID         uuid.UUID `gorm:"type:uuid;not null;index:idx_readings_stake_timestamp,priority:1" json:"stake"`
	Stake           *Stake    `gorm:"foreignKey:StakeID" json:"-"`
	Timestamp       time.Time `gorm:"not null;index:idx_readings_stake_timestamp,priority:2;index" json:"timestamp"`
	SoilTemperature float64   `gorm:"not null" json:"soil_temperature"`
	AirTemperature  float64   `gorm:"not null" json:"air_temperature"`
	SoilHumidity    float64   `gorm:"not null" json:"soil_humidity"`
	AirHumidity     float64   `gorm:"not null" json:"air_humidity"`
}

//BeforeCreate assigns an id to new readings
func (r *Reading) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

//WeatherForecast is a snapshot of third party weather data recorded for a land
type WeatherForecast struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	LandID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"land"`
	Land           *Land          `gorm:"foreignKey:LandID" json:"-"`
	Timestamp      time.Time      `gorm:"not null;index" json:"timestamp"`
	AirTemperature float64        `json:"air_temperature"`
	AirHumidity    float64        `json:"air_humidity"`
	UVIndex        float64        `json:"uv_index"`
	Precipitation  float64        `json:"precipitation"`
	WindSpeed      float64        `json:"wind_speed"`
	WindDirection  int            `json:"wind_direction"`
	CloudCoverage  float64        `json:"cloud_coverage"`
	Source         string         `gorm:"size:50;not null" json:"source"`
	RawData        datatypes.JSON `json:"raw_data"`
}

//BeforeCreate assigns an id to new forecasts
func (f *WeatherForecast) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
