package domain

// Member represents user's participation meta for a conference on the server side.
// No transport or lifecycle logic here.
type Member struct {
	User   *User
	Tracks map[TrackID]TrackInfo
}

// NewMember avoids raw literals in adapters and keeps construction obvious.
func NewMember(user *User) *Member {
	return &Member{User: user, Tracks: make(map[TrackID]TrackInfo)}
}
