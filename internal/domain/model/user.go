package model

// User is the initiator of a copy and the recipient of its notification.
type User struct {
	ID         string
	Username   string
	FirstName  string
	LastName   string
	Email      string
	TelegramID int64
	IsAdmin    bool
}

func (u *User) IsZero() bool { return u == nil || u.ID == "" }

// Requester is the authenticated caller of a read or submit operation.
type Requester struct {
	UserID  string
	IsAdmin bool
}
