package game

import "slices"

// Reminder is an informational marker an ability leaves on a player.
type Reminder struct {
	Token       string `json:"token"`
	Source      string `json:"source,omitempty"`
	Description string `json:"description,omitempty"`
}

// Player is one seat at the table.
type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// Seat is fixed at creation and determines circle adjacency.
	Seat int `json:"seat"`

	// Role is the character the player acts as. A drunk player holds the
	// townsfolk role they believe they are.
	Role string        `json:"role"`
	Type CharacterType `json:"type"`
	Team Team          `json:"team"`

	Status        Status     `json:"status"`
	Drunk         bool       `json:"drunk"`
	Poisoned      bool       `json:"poisoned"`
	GhostVoteUsed bool       `json:"ghost_vote_used"`
	Reminders     []Reminder `json:"reminders,omitempty"`
}

// IsAlive reports whether the player is alive.
func (p *Player) IsAlive() bool {
	return p.Status == StatusAlive
}

// IsEvil reports whether the player is on the evil team.
func (p *Player) IsEvil() bool {
	return p.Team == TeamEvil
}

// Impaired reports whether the player's ability malfunctions.
func (p *Player) Impaired() bool {
	return p.Drunk || p.Poisoned
}

// AddReminder appends a reminder token.
func (p *Player) AddReminder(token, source, description string) {
	p.Reminders = append(p.Reminders, Reminder{Token: token, Source: source, Description: description})
}

// RemoveReminders drops every reminder matching token and source.
func (p *Player) RemoveReminders(token, source string) {
	p.Reminders = slices.DeleteFunc(p.Reminders, func(r Reminder) bool {
		return r.Token == token && r.Source == source
	})
}

// ClearReminders drops every reminder with token regardless of source.
func (p *Player) ClearReminders(token string) {
	p.Reminders = slices.DeleteFunc(p.Reminders, func(r Reminder) bool {
		return r.Token == token
	})
}

// HasReminder reports whether the player carries the token from any source.
func (p *Player) HasReminder(token string) bool {
	return slices.ContainsFunc(p.Reminders, func(r Reminder) bool {
		return r.Token == token
	})
}

// Reminder returns the first reminder with the given token.
func (p *Player) Reminder(token string) (Reminder, bool) {
	for _, r := range p.Reminders {
		if r.Token == token {
			return r, true
		}
	}
	return Reminder{}, false
}

func (p *Player) clone() *Player {
	c := *p
	c.Reminders = slices.Clone(p.Reminders)
	return &c
}
