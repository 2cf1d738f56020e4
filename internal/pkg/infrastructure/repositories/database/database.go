package database

import (
	"errors"
	"fmt"
	"time"

	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/config"
	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/logging"
	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/repositories/models"
	"github.com/google/uuid"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var (
	//ErrNotFound is returned when the requested row does not exist
	ErrNotFound = errors.New("not found")
	//ErrAlreadyExists is returned when a unique value, such as a username, is already taken
	ErrAlreadyExists = errors.New("already exists")
)

//Datastore is an interface that is used to inject the database into different handlers to improve testability
type Datastore interface {
	Ping() error

	CreateAccountWithAdmin(accountName string, admin *models.User) (*models.Account, error)
	GetAccountFromID(id uuid.UUID) (*models.Account, error)
	GetAccountFromAPIKey(apiKey string) (*models.Account, error)
	UpdateAccount(account *models.Account) error
	DeleteAccount(id uuid.UUID) error

	CreateUser(accountID uuid.UUID, user *models.User) error
	GetUserFromID(id uint) (*models.User, error)
	GetUserFromUsername(username string) (*models.User, error)
	GetUsersForAccount(accountID uuid.UUID) ([]models.User, error)
	UpdateLastAPILogin(userID uint, when time.Time) error

	CreateLand(land *models.Land) error
	GetLands(accountID uuid.UUID) ([]models.Land, error)
	GetActiveLands() ([]models.Land, error)
	GetLandFromID(id uuid.UUID) (*models.Land, error)
	UpdateLand(land *models.Land) error
	DeleteLand(id uuid.UUID) error

	CreateStake(stake *models.Stake) error
	GetStakes(accountID uuid.UUID) ([]models.Stake, error)
	GetStakesForLand(accountID, landID uuid.UUID) ([]models.Stake, error)
	GetStakeFromID(id uuid.UUID) (*models.Stake, error)
	UpdateStake(stake *models.Stake) error
	DeleteStake(id uuid.UUID) error

	CreateReading(reading *models.Reading) error
	GetReadings(accountID uuid.UUID) ([]models.Reading, error)
	GetReadingsForStake(accountID, stakeID uuid.UUID) ([]models.Reading, error)
	GetLatestReadingForStake(stakeID uuid.UUID) (*models.Reading, error)
	GetReadingFromID(id uuid.UUID) (*models.Reading, error)

	CreateWeatherForecast(forecast *models.WeatherForecast) error
	GetWeatherForecasts(accountID uuid.UUID) ([]models.WeatherForecast, error)
	GetWeatherForecastFromID(id uuid.UUID) (*models.WeatherForecast, error)
}

type myDB struct {
	impl *gorm.DB
}

//ConnectorFunc is used to inject a database connection method into NewDatabaseConnection
type ConnectorFunc func() (*gorm.DB, error)

//NewPostgreSQLConnector opens a connection to a postgresql database
func NewPostgreSQLConnector(cfg config.DatabaseConfig, log logging.Logger) ConnectorFunc {
	dbURI := cfg.DSN()

	return func() (*gorm.DB, error) {
		for {
			log.Infof("Connecting to database host %s ...\n", cfg.Host)
			db, err := gorm.Open(postgres.Open(dbURI), &gorm.Config{TranslateError: true})
			if err != nil {
				log.Errorf("Failed to connect to database %s\n", err)
				time.Sleep(3 * time.Second)
			} else {
				return db, nil
			}
		}
	}
}

//NewSQLiteConnector opens a connection to a fresh, private in-memory sqlite database
func NewSQLiteConnector() ConnectorFunc {
	return func() (*gorm.DB, error) {
		dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())

		return gorm.Open(sqlite.Open(dsn), &gorm.Config{
			Logger:         logger.Default.LogMode(logger.Silent),
			TranslateError: true,
		})
	}
}

//NewDatabaseConnection initializes a new connection to the database and wraps it in a Datastore
func NewDatabaseConnection(connect ConnectorFunc, log logging.Logger) (Datastore, error) {
	impl, err := connect()
	if err != nil {
		return nil, err
	}

	db := &myDB{
		impl: impl,
	}

	err = db.impl.AutoMigrate(
		&models.User{},
		&models.Account{},
		&models.UserProfile{},
		&models.Land{},
		&models.Stake{},
		&models.Reading{},
		&models.WeatherForecast{},
	)
	if err != nil {
		log.Errorf("Failed to migrate database schema: %s", err.Error())
		return nil, err
	}

	return db, nil
}

func (db *myDB) Ping() error {
	sqlDB, err := db.impl.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func (db *myDB) CreateAccountWithAdmin(accountName string, admin *models.User) (*models.Account, error) {
	account := &models.Account{
		Name:   accountName,
		Active: true,
	}

	err := db.impl.Transaction(func(tx *gorm.DB) error {
		if err := createUser(tx, admin); err != nil {
			return err
		}

		account.AdminID = admin.ID
		if err := tx.Omit(clause.Associations).Create(account).Error; err != nil {
			return err
		}

		return createProfile(tx, admin, account.ID)
	})

	if err != nil {
		return nil, translateError(err)
	}

	return account, nil
}

func (db *myDB) GetAccountFromID(id uuid.UUID) (*models.Account, error) {
	account := &models.Account{}
	if err := db.impl.First(account, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return account, nil
}

func (db *myDB) GetAccountFromAPIKey(apiKey string) (*models.Account, error) {
	if apiKey == "" {
		return nil, ErrNotFound
	}

	account := &models.Account{}
	if err := db.impl.First(account, "api_key = ?", apiKey).Error; err != nil {
		return nil, translateError(err)
	}
	return account, nil
}

func (db *myDB) UpdateAccount(account *models.Account) error {
	result := db.impl.Model(account).Select("Name", "Active").Updates(account)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *myDB) DeleteAccount(id uuid.UUID) error {
	return db.impl.Transaction(func(tx *gorm.DB) error {
		lands := tx.Model(&models.Land{}).Select("id").Where("account_id = ?", id)
		if err := deleteLands(tx, lands); err != nil {
			return err
		}

		if err := tx.Where("account_id = ?", id).Delete(&models.UserProfile{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.Account{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (db *myDB) CreateUser(accountID uuid.UUID, user *models.User) error {
	err := db.impl.Transaction(func(tx *gorm.DB) error {
		if err := createUser(tx, user); err != nil {
			return err
		}
		return createProfile(tx, user, accountID)
	})
	return translateError(err)
}

func (db *myDB) GetUserFromID(id uint) (*models.User, error) {
	user := &models.User{}
	if err := db.impl.Preload("Profile.Account").First(user, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return user, nil
}

func (db *myDB) GetUserFromUsername(username string) (*models.User, error) {
	user := &models.User{}
	if err := db.impl.Preload("Profile.Account").First(user, "username = ?", username).Error; err != nil {
		return nil, translateError(err)
	}
	return user, nil
}

func (db *myDB) GetUsersForAccount(accountID uuid.UUID) ([]models.User, error) {
	users := []models.User{}
	err := db.impl.
		Select("users.*").
		Joins("JOIN user_profiles ON user_profiles.user_id = users.id").
		Where("user_profiles.account_id = ?", accountID).
		Preload("Profile").
		Order("users.id").
		Find(&users).Error
	return users, err
}

func (db *myDB) UpdateLastAPILogin(userID uint, when time.Time) error {
	return db.impl.Model(&models.UserProfile{}).
		Where("user_id = ?", userID).
		Update("last_api_login", when.UTC()).Error
}

func (db *myDB) CreateLand(land *models.Land) error {
	return translateError(db.impl.Omit(clause.Associations).Create(land).Error)
}

func (db *myDB) GetLands(accountID uuid.UUID) ([]models.Land, error) {
	lands := []models.Land{}
	err := db.impl.Scopes(landsOwnedBy(accountID)).Order("lands.created_at").Find(&lands).Error
	return lands, err
}

func (db *myDB) GetActiveLands() ([]models.Land, error) {
	lands := []models.Land{}
	err := db.impl.Where("active = ?", true).Find(&lands).Error
	return lands, err
}

func (db *myDB) GetLandFromID(id uuid.UUID) (*models.Land, error) {
	land := &models.Land{}
	if err := db.impl.First(land, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return land, nil
}

func (db *myDB) UpdateLand(land *models.Land) error {
	land.LastUpdatedAt = time.Now().UTC()

	result := db.impl.Model(land).
		Select("Name", "Description", "Latitude", "Longitude", "Active", "LastUpdatedAt").
		Updates(land)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *myDB) DeleteLand(id uuid.UUID) error {
	return db.impl.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&models.Land{}, "id = ?", id).Error; err != nil {
			return translateError(err)
		}
		return deleteLands(tx, tx.Model(&models.Land{}).Select("id").Where("id = ?", id))
	})
}

func (db *myDB) CreateStake(stake *models.Stake) error {
	return translateError(db.impl.Omit(clause.Associations).Create(stake).Error)
}

func (db *myDB) GetStakes(accountID uuid.UUID) ([]models.Stake, error) {
	stakes := []models.Stake{}
	err := db.impl.Scopes(stakesOwnedBy(accountID)).Order("stakes.installed_at").Find(&stakes).Error
	return stakes, err
}

func (db *myDB) GetStakesForLand(accountID, landID uuid.UUID) ([]models.Stake, error) {
	stakes := []models.Stake{}
	err := db.impl.
		Scopes(stakesOwnedBy(accountID)).
		Where("stakes.land_id = ?", landID).
		Order("stakes.installed_at").
		Find(&stakes).Error
	return stakes, err
}

func (db *myDB) GetStakeFromID(id uuid.UUID) (*models.Stake, error) {
	stake := &models.Stake{}
	if err := db.impl.Preload("Land").First(stake, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return stake, nil
}

func (db *myDB) UpdateStake(stake *models.Stake) error {
	result := db.impl.Model(stake).
		Select("LandID", "Name", "Latitude", "Longitude", "Active", "Removed").
		Updates(stake)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *myDB) DeleteStake(id uuid.UUID) error {
	return db.impl.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("stake_id = ?", id).Delete(&models.Reading{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.Stake{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

//CreateReading stores the reading and moves the stake's last_reading_at forward to the
//reading's timestamp. An older reading never moves it back.
func (db *myDB) CreateReading(reading *models.Reading) error {
	reading.Timestamp = reading.Timestamp.UTC()

	err := db.impl.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(reading).Error; err != nil {
			return err
		}

		return tx.Model(&models.Stake{}).
			Where("id = ?", reading.StakeID).
			Where("last_reading_at IS NULL OR last_reading_at < ?", reading.Timestamp).
			Update("last_reading_at", reading.Timestamp).Error
	})

	return translateError(err)
}

func (db *myDB) GetReadings(accountID uuid.UUID) ([]models.Reading, error) {
	readings := []models.Reading{}
	err := db.impl.Scopes(readingsOwnedBy(accountID)).Order("readings.timestamp DESC").Find(&readings).Error
	return readings, err
}

func (db *myDB) GetReadingsForStake(accountID, stakeID uuid.UUID) ([]models.Reading, error) {
	readings := []models.Reading{}
	err := db.impl.
		Scopes(readingsOwnedBy(accountID)).
		Where("readings.stake_id = ?", stakeID).
		Order("readings.timestamp DESC").
		Find(&readings).Error
	return readings, err
}

func (db *myDB) GetLatestReadingForStake(stakeID uuid.UUID) (*models.Reading, error) {
	reading := &models.Reading{}
	err := db.impl.Where("stake_id = ?", stakeID).Order("timestamp DESC").First(reading).Error
	if err != nil {
		return nil, translateError(err)
	}
	return reading, nil
}

func (db *myDB) GetReadingFromID(id uuid.UUID) (*models.Reading, error) {
	reading := &models.Reading{}
	if err := db.impl.Preload("Stake.Land").First(reading, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return reading, nil
}

func (db *myDB) CreateWeatherForecast(forecast *models.WeatherForecast) error {
	forecast.Timestamp = forecast.Timestamp.UTC()
	return translateError(db.impl.Omit(clause.Associations).Create(forecast).Error)
}

func (db *myDB) GetWeatherForecasts(accountID uuid.UUID) ([]models.WeatherForecast, error) {
	forecasts := []models.WeatherForecast{}
	err := db.impl.
		Scopes(forecastsOwnedBy(accountID)).
		Order("weather_forecasts.timestamp DESC").
		Find(&forecasts).Error
	return forecasts, err
}

func (db *myDB) GetWeatherForecastFromID(id uuid.UUID) (*models.WeatherForecast, error) {
	forecast := &models.WeatherForecast{}
	if err := db.impl.Preload("Land").First(forecast, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return forecast, nil
}

func createUser(tx *gorm.DB, user *models.User) error {
	var count int64
	if err := tx.Model(&models.User{}).Where("username = ?", user.Username).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("username %s: %w", user.Username, ErrAlreadyExists)
	}

	return tx.Omit(clause.Associations).Create(user).Error
}

func createProfile(tx *gorm.DB, user *models.User, accountID uuid.UUID) error {
	profile := &models.UserProfile{
		UserID:    user.ID,
		AccountID: accountID,
		Active:    true,
	}

	if err := tx.Omit(clause.Associations).Create(profile).Error; err != nil {
		return err
	}

	user.Profile = profile
	return nil
}

//deleteLands removes the lands selected by the landIDs subquery together with their
//stakes, readings and forecasts
func deleteLands(tx *gorm.DB, landIDs *gorm.DB) error {
	stakeIDs := tx.Model(&models.Stake{}).Select("id").Where("land_id IN (?)", landIDs)

	if err := tx.Where("stake_id IN (?)", stakeIDs).Delete(&models.Reading{}).Error; err != nil {
		return err
	}
	if err := tx.Where("land_id IN (?)", landIDs).Delete(&models.Stake{}).Error; err != nil {
		return err
	}
	if err := tx.Where("land_id IN (?)", landIDs).Delete(&models.WeatherForecast{}).Error; err != nil {
		return err
	}
	return tx.Where("id IN (?)", landIDs).Delete(&models.Land{}).Error
}

func landsOwnedBy(accountID uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("lands.account_id = ?", accountID)
	}
}

func stakesOwnedBy(accountID uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Select("stakes.*").
			Joins("JOIN lands ON lands.id = stakes.land_id").
			Where("lands.account_id = ?", accountID)
	}
}

func readingsOwnedBy(accountID uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Select("readings.*").
			Joins("JOIN stakes ON stakes.id = readings.stake_id").
			Joins("JOIN lands ON lands.id = stakes.land_id").
			Where("lands.account_id = ?", accountID)
	}
}

func forecastsOwnedBy(accountID uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Select("weather_forecasts.*").
			Joins("JOIN lands ON lands.id = weather_forecasts.land_id").
			Where("lands.account_id = ?", accountID)
	}
}

func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", err.Error(), ErrAlreadyExists)
	default:
		return err
	}
}
