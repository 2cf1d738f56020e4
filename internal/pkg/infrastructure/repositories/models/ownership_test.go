package models

import (
	"testing"

	"github.com/google/uuid"
)

func TestOwnershipChainResolvesToTheAccount(t *testing.T) {
	accountID := uuid.New()
	land := &Land{ID: uuid.New(), AccountID: accountID}
	stake := &Stake{ID: uuid.New(), LandID: land.ID, Land: land}
	reading := &Reading{ID: uuid.New(), StakeID: stake.ID, Stake: stake}
	forecast := &WeatherForecast{ID: uuid.New(), LandID: land.ID, Land: land}

	entities := map[string]OwnedEntity{
		"account":  &Account{ID: accountID},
		"profile":  &UserProfile{AccountID: accountID},
		"land":     land,
		"stake":    stake,
		"reading":  reading,
		"forecast": forecast,
	}

	for name, entity := range entities {
		owner, ok := entity.OwningAccountID()
		if !ok {
			t.Errorf("Expected %s to resolve an owning account", name)
			continue
		}
		if owner != accountID {
			t.Errorf("%s resolved to %s, expected %s", name, owner, accountID)
		}
	}
}

func TestThatAnUnloadedChainDoesNotResolve(t *testing.T) {
	stake := &Stake{ID: uuid.New(), LandID: uuid.New()}
	reading := &Reading{ID: uuid.New(), StakeID: stake.ID, Stake: stake}

	if _, ok := stake.OwningAccountID(); ok {
		t.Error("A stake without its land should not resolve an owner")
	}

	if _, ok := reading.OwningAccountID(); ok {
		t.Error("A reading whose stake has no land should not resolve an owner")
	}

	if _, ok := (&Reading{StakeID: uuid.New()}).OwningAccountID(); ok {
		t.Error("A reading without its stake should not resolve an owner")
	}
}

func TestThatAMismatchedAssociationDoesNotResolve(t *testing.T) {
	land := &Land{ID: uuid.New(), AccountID: uuid.New()}
	stake := &Stake{ID: uuid.New(), LandID: uuid.New(), Land: land}

	if _, ok := stake.OwningAccountID(); ok {
		t.Error("A stake loaded with a foreign land should not resolve an owner")
	}
}

func TestStakeAcceptsReadings(t *testing.T) {
	cases := []struct {
		stake    Stake
		expected bool
	}{
		{Stake{Active: true}, true},
		{Stake{Active: false}, false},
		{Stake{Active: true, Removed: true}, false},
	}

	for _, c := range cases {
		if c.stake.AcceptsReadings() != c.expected {
			t.Errorf("AcceptsReadings for active=%t removed=%t should be %t", c.stake.Active, c.stake.Removed, c.expected)
		}
	}
}

func TestNewAPIKey(t *testing.T) {
	key, err := NewAPIKey()
	if err != nil {
		t.Fatal(err.Error())
	}

	if len(key) != APIKeyLength {
		t.Errorf("Expected a key of length %d, got %d", APIKeyLength, len(key))
	}

	other, _ := NewAPIKey()
	if key == other {
		t.Error("Two generated keys should not be equal")
	}
}
