package user

// User is an authenticated actor. Admin unlocks approval, discount changes, budget deletion
// and catalog writes.
type User struct {
	Id           int
	Username     string
	Email        string
	PasswordHash string
	Admin        bool
}
