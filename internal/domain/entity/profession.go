package entity

// Profession is the role a user picks at registration.
type Profession string

const (
	ProfessionDeveloper Profession = "Developer"
	ProfessionDesigner  Profession = "Designer"
	ProfessionManager   Profession = "Manager"
	ProfessionHR        Profession = "HR"
)

// Professions lists every accepted profession in display order.
var Professions = []Profession{ProfessionDeveloper, ProfessionDesigner, ProfessionManager, ProfessionHR}

func (p Profession) Valid() bool {
	switch p {
	case ProfessionDeveloper, ProfessionDesigner, ProfessionManager, ProfessionHR:
		return true
	}
	return false
}
