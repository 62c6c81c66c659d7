package model

import "time"

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	RealityScore int       `json:"realityScore"`
	BiasType     string    `json:"biasType"`
	CurrentPhase int       `json:"currentPhase"`
	Version      int       `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Profile is the owner's aggregate scoring state.
type Profile struct {
	RealityScore int    `json:"realityScore"`
	BiasType     string `json:"biasType"`
	CurrentPhase int    `json:"currentPhase"`
}

func (u *User) Profile() Profile {
	return Profile{
		RealityScore: u.RealityScore,
		BiasType:     u.BiasType,
		CurrentPhase: u.CurrentPhase,
	}
}
