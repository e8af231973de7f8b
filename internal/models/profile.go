package models

// Role is the directory role attached to a user profile.
type Role struct {
	ID     int64  `json:"id"`
	Handle string `json:"handle"`
	Name   string `json:"name,omitempty"`
	Value  string `json:"value,omitempty"`
}

// Profile is a directory record for a user or a topic.
// Users carry Username and Role, topics carry Title and Status.
type Profile struct {
	ID       int64  `json:"id"`
	Username string `json:"username,omitempty"`
	Title    string `json:"title,omitempty"`
	Status   string `json:"status,omitempty"`
	Role     *Role  `json:"role,omitempty"`
}

func (p *Profile) DisplayName() string {
	if p.Username != "" {
		return p.Username
	}
	return p.Title
}

// RoleHandle is empty when the profile has no role.
func (p *Profile) RoleHandle() string {
	if p.Role == nil {
		return ""
	}
	return p.Role.Handle
}

// Session is what the directory returns for a bearer token.
type Session struct {
	Session struct {
		ID string `json:"id"`
	} `json:"session"`
	User *Profile `json:"user"`
}

// IndexProfiles keys profiles by id, skipping empty entries.
func IndexProfiles(profiles []Profile) map[int64]*Profile {
	out := make(map[int64]*Profile, len(profiles))
	for i := range profiles {
		if profiles[i].ID == 0 {
			continue
		}
		out[profiles[i].ID] = &profiles[i]
	}
	return out
}
