package profiles

import "time"

// RemotePreference values. "any" means no constraint.
const (
	RemoteAny    = "any"
	RemoteOnly   = "remote"
	OnsiteOnly   = "onsite"
)

// Profile is the user's digital twin: resume embedding plus structured
// preferences. It is owned by the profile collaborator and read-only here.
type Profile struct {
	UserID           string    `json:"userId"`
	Embedding        []float64 `json:"embedding"`
	Skills           []string  `json:"skills"`
	Summary          string    `json:"summary"`
	PreferredSectors []string  `json:"preferredSectors"`
	PreferredCities  []string  `json:"preferredCities"`
	SalaryMin        int       `json:"salaryMin"`
	SalaryMax        int       `json:"salaryMax"`
	RemotePreference string    `json:"remotePreference"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// HasSkill reports whether the profile lists the skill (case-insensitive
// matching is the caller's concern; skills are stored lowercased).
func (p Profile) HasSkill(skill string) bool {
	for _, s := range p.Skills {
		if s == skill {
			return true
		}
	}
	return false
}
