package database

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/logging"
	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/repositories/models"
	"github.com/google/uuid"
)

func TestMain(m *testing.M) {
	os.Exit(m.Run())
}

func TestThatCreateAccountWithAdminCreatesAdminProfileAndKey(t *testing.T) {
	if db, ok := newDatabaseForTest(t); ok {
		admin := &models.User{Username: "farmer", PasswordHash: "x"}

		account, err := db.CreateAccountWithAdmin("Quinta", admin)
		if err != nil {
			t.Fatalf("CreateAccountWithAdmin failed: %s", err.Error())
		}

		if len(account.APIKey) != models.APIKeyLength {
			t.Errorf("Expected a generated api key, got %q", account.APIKey)
		}
		if !account.Active || account.AdminID != admin.ID {
			t.Errorf("Account was not created active with the admin set: %+v", account)
		}

		user, err := db.GetUserFromUsername("farmer")
		if err != nil {
			t.Fatalf("GetUserFromUsername failed: %s", err.Error())
		}
		if user.Profile == nil || user.Profile.AccountID != account.ID || user.Profile.Account == nil {
			t.Errorf("Expected the admin to have a profile bound to %s", account.ID)
		}

		found, err := db.GetAccountFromAPIKey(account.APIKey)
		if err != nil || found.ID != account.ID {
			t.Errorf("Expected to find the account from its api key (%v)", err)
		}
	}
}

func TestThatDuplicateUsernamesAreRejected(t *testing.T) {
	if db, ok := newDatabaseForTest(t); ok {
		account, _ := db.CreateAccountWithAdmin("A", &models.User{Username: "dup", PasswordHash: "x"})

		err := db.CreateUser(account.ID, &models.User{Username: "dup", PasswordHash: "y"})
		if !errors.Is(err, ErrAlreadyExists) {
			t.Errorf("Expected ErrAlreadyExists, got %v", err)
		}
	}
}

func TestThatUnknownAPIKeyIsNotFound(t *testing.T) {
	if db, ok := newDatabaseForTest(t); ok {
		for _, key := range []string{"", "nope"} {
			if _, err := db.GetAccountFromAPIKey(key); !errors.Is(err, ErrNotFound) {
				t.Errorf("Expected ErrNotFound for key %q, got %v", key, err)
			}
		}
	}
}

func TestThatUpdateAccountLeavesTheAPIKeyAlone(t *testing.T) {
	if db, ok := newDatabaseForTest(t); ok {
		account, _ := db.CreateAccountWithAdmin("Before", &models.User{Username: "u", PasswordHash: "x"})
		originalKey := account.APIKey

		account.Name = "After"
		account.Active = false
		account.APIKey = "tampered"
		if err := db.UpdateAccount(account); err != nil {
			t.Fatal(err.Error())
		}

		stored, _ := db.GetAccountFromID(account.ID)
		if stored.Name != "After" || stored.Active {
			t.Errorf("Name and active flag were not updated: %+v", stored)
		}
		if stored.APIKey != originalKey {
			t.Error("The api key must not change on update")
		}
	}
}

func TestThatReadingsAreScopedToTheirAccount(t *testing.T) {
	if db, ok := newDatabaseForTest(t); ok {
		accountA, stakeA := seedAccountWithStake(t, db, "a")
		accountB, stakeB := seedAccountWithStake(t, db, "b")

		now := time.Now().UTC()
		db.CreateReading(&models.Reading{StakeID: stakeA.ID, Timestamp: now})
		db.CreateReading(&models.Reading{StakeID: stakeA.ID, Timestamp: now.Add(time.Minute)})
		db.CreateReading(&models.Reading{StakeID: stakeB.ID, Timestamp: now})

		readingsA, _ := db.GetReadings(accountA.ID)
		if len(readingsA) != 2 {
			t.Fatalf("Expected 2 readings for account A, got %d", len(readingsA))
		}
		if !readingsA[0].Timestamp.After(readingsA[1].Timestamp) {
			t.Error("Readings should be ordered newest first")
		}

		readingsB, _ := db.GetReadings(accountB.ID)
		if len(readingsB) != 1 || readingsB[0].StakeID != stakeB.ID {
			t.Errorf("Account B should only see its own reading, got %+v", readingsB)
		}

		foreign, _ := db.GetReadingsForStake(accountB.ID, stakeA.ID)
		if len(foreign) != 0 {
			t.Error("A stake's readings must not be listed for another account")
		}
	}
}

func TestThatLastReadingAtOnlyMovesForward(t *testing.T) {
	if db, ok := newDatabaseForTest(t); ok {
		_, stake := seedAccountWithStake(t, db, "c")

		newer := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
		older := newer.Add(-time.Hour)

		db.CreateReading(&models.Reading{StakeID: stake.ID, Timestamp: newer})
		db.CreateReading(&models.Reading{StakeID: stake.ID, Timestamp: older})

		stored, _ := db.GetStakeFromID(stake.ID)
		if stored.LastReadingAt == nil || !stored.LastReadingAt.Equal(newer) {
			t.Errorf("Expected last_reading_at %s, got %v", newer, stored.LastReadingAt)
		}

		latest, err := db.GetLatestReadingForStake(stake.ID)
		if err != nil || !latest.Timestamp.Equal(newer) {
			t.Errorf("Expected the latest reading at %s (%v)", newer, err)
		}
	}
}

func TestThatGetReadingFromIDLoadsTheOwnershipChain(t *testing.T) {
	if db, ok := newDatabaseForTest(t); ok {
		account, stake := seedAccountWithStake(t, db, "d")

		reading := &models.Reading{StakeID: stake.ID, Timestamp: time.Now()}
		db.CreateReading(reading)

		stored, err := db.GetReadingFromID(reading.ID)
		if err != nil {
			t.Fatal(err.Error())
		}

		owner, ok := stored.OwningAccountID()
		if !ok || owner != account.ID {
			t.Errorf("Expected the reading to resolve to account %s", account.ID)
		}

		if _, err := db.GetReadingFromID(uuid.New()); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound for an unknown reading, got %v", err)
		}
	}
}

func TestThatDeleteLandRemovesItsStakesAndReadings(t *testing.T) {
	if db, ok := newDatabaseForTest(t); ok {
		account, stake := seedAccountWithStake(t, db, "e")
		db.CreateReading(&models.Reading{StakeID: stake.ID, Timestamp: time.Now()})
		db.CreateWeatherForecast(&models.WeatherForecast{LandID: stake.LandID, Timestamp: time.Now(), Source: "test"})

		if err := db.DeleteLand(stake.LandID); err != nil {
			t.Fatal(err.Error())
		}

		if _, err := db.GetStakeFromID(stake.ID); !errors.Is(err, ErrNotFound) {
			t.Error("The stake should be gone with its land")
		}
		if readings, _ := db.GetReadings(account.ID); len(readings) != 0 {
			t.Error("The readings should be gone with their land")
		}
		if err := db.DeleteLand(stake.LandID); !errors.Is(err, ErrNotFound) {
			t.Errorf("Deleting a missing land should be ErrNotFound, got %v", err)
		}
	}
}

func TestThatUpdateStakeCanDeactivate(t *testing.T) {
	if db, ok := newDatabaseForTest(t); ok {
		_, stake := seedAccountWithStake(t, db, "f")

		stake.Active = false
		stake.Removed = true
		if err := db.UpdateStake(stake); err != nil {
			t.Fatal(err.Error())
		}

		stored, _ := db.GetStakeFromID(stake.ID)
		if stored.AcceptsReadings() {
			t.Error("A removed and inactive stake should not accept readings")
		}
	}
}

func TestThatForecastsAreScopedToTheirAccount(t *testing.T) {
	if db, ok := newDatabaseForTest(t); ok {
		accountA, stakeA := seedAccountWithStake(t, db, "g")
		accountB, _ := seedAccountWithStake(t, db, "h")

		forecast := &models.WeatherForecast{LandID: stakeA.LandID, Timestamp: time.Now(), Source: "openweathermap"}
		if err := db.CreateWeatherForecast(forecast); err != nil {
			t.Fatal(err.Error())
		}

		if forecasts, _ := db.GetWeatherForecasts(accountA.ID); len(forecasts) != 1 {
			t.Errorf("Expected one forecast for account A, got %d", len(forecasts))
		}
		if forecasts, _ := db.GetWeatherForecasts(accountB.ID); len(forecasts) != 0 {
			t.Errorf("Expected no forecasts for account B, got %d", len(forecasts))
		}

		stored, err := db.GetWeatherForecastFromID(forecast.ID)
		if err != nil || stored.Land == nil {
			t.Errorf("Expected the forecast with its land loaded (%v)", err)
		}
	}
}

func TestThatGetUsersForAccountListsMembers(t *testing.T) {
	if db, ok := newDatabaseForTest(t); ok {
		account, _ := db.CreateAccountWithAdmin("Members", &models.User{Username: "admin", PasswordHash: "x"})
		db.CreateUser(account.ID, &models.User{Username: "worker", PasswordHash: "x"})
		db.CreateAccountWithAdmin("Other", &models.User{Username: "outsider", PasswordHash: "x"})

		users, err := db.GetUsersForAccount(account.ID)
		if err != nil {
			t.Fatal(err.Error())
		}
		if len(users) != 2 {
			t.Errorf("Expected 2 members, got %d", len(users))
		}
	}
}

func seedAccountWithStake(t *testing.T, db Datastore, name string) (*models.Account, *models.Stake) {
	account, err := db.CreateAccountWithAdmin(name, &models.User{Username: "admin-" + name, PasswordHash: "x"})
	if err != nil {
		t.Fatalf("seeding account failed: %s", err.Error())
	}

	land := &models.Land{AccountID: account.ID, Name: name, Active: true}
	if err := db.CreateLand(land); err != nil {
		t.Fatalf("seeding land failed: %s", err.Error())
	}

	stake := &models.Stake{LandID: land.ID, Name: name, Active: true}
	if err := db.CreateStake(stake); err != nil {
		t.Fatalf("seeding stake failed: %s", err.Error())
	}

	return account, stake
}

func newDatabaseForTest(t *testing.T) (Datastore, bool) {
	log := logging.NewLogger()
	db, err := NewDatabaseConnection(NewSQLiteConnector(), log)

	if err != nil {
		t.Error(err.Error())
		return nil, false
	}

	return db, true
}
