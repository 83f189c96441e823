package game

import "fmt"

// Phase is a step of the game's state machine.
type Phase int

const (
	PhaseSetup Phase = iota
	PhaseFirstNight
	PhaseDay
	PhaseNight
	PhaseGameOver
)

var phaseNames = map[Phase]string{
	PhaseSetup:      "setup",
	PhaseFirstNight: "first_night",
	PhaseDay:        "day",
	PhaseNight:      "night",
	PhaseGameOver:   "game_over",
}

func (p Phase) String() string {
	if s, ok := phaseNames[p]; ok {
		return s
	}
	return "unknown"
}

// IsNight reports whether p is either kind of night.
func (p Phase) IsNight() bool {
	return p == PhaseFirstNight || p == PhaseNight
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(text []byte) error {
	for k, v := range phaseNames {
		if v == string(text) {
			*p = k
			return nil
		}
	}
	return fmt.Errorf("unknown phase: %s", text)
}

// Status is a player's life status.
type Status int

const (
	StatusAlive Status = iota
	StatusDead
	StatusTraveler
)

var statusNames = map[Status]string{
	StatusAlive:    "alive",
	StatusDead:     "dead",
	StatusTraveler: "traveler",
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return "unknown"
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	for k, v := range statusNames {
		if v == string(text) {
			*s = k
			return nil
		}
	}
	return fmt.Errorf("unknown status: %s", text)
}

// Team is the faction a character belongs to.
type Team int

const (
	TeamNone Team = iota
	TeamGood
	TeamEvil
)

var teamNames = map[Team]string{
	TeamNone: "none",
	TeamGood: "good",
	TeamEvil: "evil",
}

func (t Team) String() string {
	if n, ok := teamNames[t]; ok {
		return n
	}
	return "unknown"
}

func (t Team) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Team) UnmarshalText(text []byte) error {
	for k, v := range teamNames {
		if v == string(text) {
			*t = k
			return nil
		}
	}
	return fmt.Errorf("unknown team: %s", text)
}

// CharacterType groups roles into the script's categories.
type CharacterType int

const (
	TypeUnknown CharacterType = iota
	TypeTownsfolk
	TypeOutsider
	TypeMinion
	TypeDemon
	TypeTraveler
)

var typeNames = map[CharacterType]string{
	TypeUnknown:   "unknown",
	TypeTownsfolk: "townsfolk",
	TypeOutsider:  "outsider",
	TypeMinion:    "minion",
	TypeDemon:     "demon",
	TypeTraveler:  "traveler",
}

func (c CharacterType) String() string {
	if n, ok := typeNames[c]; ok {
		return n
	}
	return "unknown"
}

// Team returns the default team for the character type.
func (c CharacterType) Team() Team {
	switch c {
	case TypeTownsfolk, TypeOutsider:
		return TeamGood
	case TypeMinion, TypeDemon:
		return TeamEvil
	default:
		return TeamNone
	}
}

// IsEvil reports whether the type is on the evil team.
func (c CharacterType) IsEvil() bool {
	return c.Team() == TeamEvil
}

func (c CharacterType) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *CharacterType) UnmarshalText(text []byte) error {
	for k, v := range typeNames {
		if v == string(text) {
			*c = k
			return nil
		}
	}
	return fmt.Errorf("unknown character type: %s", text)
}
