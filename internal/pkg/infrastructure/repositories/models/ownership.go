package models

import "github.com/google/uuid"

//OwnedEntity is implemented by every entity that belongs to an account, directly or through
//its parents. OwningAccountID walks the loaded associations up to the account and reports
//false when a link in the chain has not been loaded.
type OwnedEntity interface {
	OwningAccountID() (uuid.UUID, bool)
}

//OwningAccountID returns the account's own id
func (a *Account) OwningAccountID() (uuid.UUID, bool) {
	return a.ID, a.ID != uuid.Nil
}

//OwningAccountID returns the account the profile binds its user to
func (p *UserProfile) OwningAccountID() (uuid.UUID, bool) {
	return p.AccountID, p.AccountID != uuid.Nil
}

//OwningAccountID returns the account that owns the land
func (l *Land) OwningAccountID() (uuid.UUID, bool) {
	return l.AccountID, l.AccountID != uuid.Nil
}

//OwningAccountID resolves stake.land.account. The Land association must be loaded.
func (s *Stake) OwningAccountID() (uuid.UUID, bool) {
	if s.Land == nil || s.Land.ID != s.LandID {
		return uuid.Nil, false
	}
	return s.Land.OwningAccountID()
}

//OwningAccountID resolves reading.stake.land.account. Stake and Stake.Land must be loaded.
func (r *Reading) OwningAccountID() (uuid.UUID, bool) {
	if r.Stake == nil || r.Stake.ID != r.StakeID {
		return uuid.Nil, false
	}
	return r.Stake.OwningAccountID()
}

//OwningAccountID resolves forecast.land.account. The Land association must be loaded.
func (f *WeatherForecast) OwningAccountID() (uuid.UUID, bool) {
	if f.Land == nil || f.Land.ID != f.LandID {
		return uuid.Nil, false
	}
	return f.Land.OwningAccountID()
}
