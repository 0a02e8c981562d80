package types

// Settings are client toggles. The engine only passes them through.
type Settings struct {
	Sound         bool `json:"sound"`
	Vibration     bool `json:"vibration"`
	Notifications bool `json:"notifications"`
}

// DefaultSettings has everything switched on, as a fresh install does.
func DefaultSettings() Settings {
	return Settings{Sound: true, Vibration: true, Notifications: true}
}

// User represents user's economic data
type User struct {
	ID          int64    `json:"id"`
	FirstName   string   `json:"firstName,omitempty"`
	LastName    string   `json:"lastName,omitempty"`
	Balance     int64    `json:"balance"`
	TotalEarned int64    `json:"totalEarned"`
	XP          int64    `json:"xp"`
	TapsLeft    int64    `json:"tapsLeft"`
	EnergyLimit int64    `json:"energyLimit"`
	Combo       int64    `json:"combo"`
	Streak      int64    `json:"streak"`
	Settings    Settings `json:"settings"`
}

// NewUser returns a user with a full energy tank.
func NewUser(id int64, energyLimit int64) User {
	if energyLimit <= 0 {
		energyLimit = 1
	}
	return User{
		ID:          id,
		TapsLeft:    energyLimit,
		EnergyLimit: energyLimit,
		Settings:    DefaultSettings(),
	}
}

// Credit adds amount to both the spendable balance and lifetime earnings.
// Every reward path (taps, missions, bonuses) goes through here.
func (u User) Credit(amount int64) User {
	if amount <= 0 {
		return u
	}
	u.Balance += amount
	u.TotalEarned += amount
	return u
}

// DisplayName joins first and last name.
func (u User) DisplayName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}

// EnergyPercent is the rounded fill level of the energy tank.
func (u User) EnergyPercent() int64 {
	if u.EnergyLimit <= 0 {
		return 0
	}
	return (u.TapsLeft*100 + u.EnergyLimit/2) / u.EnergyLimit
}
