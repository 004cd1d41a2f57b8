package domain

import "time"

type User struct {
	ID           string    `bson:"_id" json:"id"`
	Name         string    `bson:"name" json:"name"`
	Email        string    `bson:"email" json:"email"`
	ProfilePic   string    `bson:"profile_pic,omitempty" json:"profilePic,omitempty"`
	PasswordHash string    `bson:"password_hash" json:"-"`
	Online       bool      `bson:"online" json:"online"`
	CreatedAt    time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updatedAt"`
}

// UserSummary is the public view of a user embedded in events.
type UserSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ProfilePic string `json:"profilePic,omitempty"`
	Online     bool   `json:"online"`
}

func (u *User) Summary() *UserSummary {
	if u == nil {
		return nil
	}
	return &UserSummary{ID: u.ID, Name: u.Name, ProfilePic: u.ProfilePic, Online: u.Online}
}
