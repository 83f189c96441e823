package abilities

import (
	"fmt"
	"maps"
	"slices"
)

// Trouble Brewing characters.
const (
	RoleWasherwoman   = "Washerwoman"
	RoleLibrarian     = "Librarian"
	RoleInvestigator  = "Investigator"
	RoleChef          = "Chef"
	RoleEmpath        = "Empath"
	RoleFortuneTeller = "Fortune Teller"
	RoleUndertaker    = "Undertaker"
	RoleMonk          = "Monk"
	RoleRavenkeeper   = "Ravenkeeper"
	RoleVirgin        = "Virgin"
	RoleSlayer        = "Slayer"
	RoleSoldier       = "Soldier"
	RoleMayor         = "Mayor"
	RoleButler        = "Butler"
	RoleDrunk         = "Drunk"
	RoleRecluse       = "Recluse"
	RoleSaint         = "Saint"
	RolePoisoner      = "Poisoner"
	RoleSpy           = "Spy"
	RoleScarletWoman  = "Scarlet Woman"
	RoleBaron         = "Baron"
	RoleImp           = "Imp"
)

// Registry maps role names to handlers.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// NewTroubleBrewingRegistry returns a registry holding every Trouble Brewing
// character.
func NewTroubleBrewingRegistry() *Registry {
	r := NewRegistry()
	for role, h := range map[string]Handler{
		RoleWasherwoman:   &Washerwoman{},
		RoleLibrarian:     &Librarian{},
		RoleInvestigator:  &Investigator{},
		RoleChef:          &Chef{},
		RoleEmpath:        &Empath{},
		RoleFortuneTeller: &FortuneTeller{},
		RoleUndertaker:    &Undertaker{},
		RoleMonk:          &Monk{},
		RoleRavenkeeper:   &Ravenkeeper{},
		RoleButler:        &Butler{},
		RolePoisoner:      &Poisoner{},
		RoleSpy:           &Spy{},
		RoleImp:           &Imp{},
		RoleVirgin:        Passive{},
		RoleSlayer:        Passive{},
		RoleSoldier:       Passive{},
		RoleMayor:         Passive{},
		RoleDrunk:         Passive{},
		RoleRecluse:       Passive{},
		RoleSaint:         Passive{},
		RoleScarletWoman:  Passive{},
		RoleBaron:         Passive{},
	} {
		// Names are unique constants; Register cannot fail here.
		_ = r.Register(role, h)
	}
	return r
}

// Register adds a handler for role.
func (r *Registry) Register(role string, h Handler) error {
	if role == "" {
		return fmt.Errorf("role name cannot be empty")
	}
	if h == nil {
		return fmt.Errorf("handler for %q cannot be nil", role)
	}
	if _, exists := r.handlers[role]; exists {
		return fmt.Errorf("handler for %q already registered", role)
	}
	r.handlers[role] = h
	return nil
}

// Replace registers h for role whether or not one already exists.
func (r *Registry) Replace(role string, h Handler) {
	r.handlers[role] = h
}

// Get returns the handler for role.
func (r *Registry) Get(role string) (Handler, error) {
	h, ok := r.handlers[role]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoHandler, role)
	}
	return h, nil
}

// Roles returns the registered role names in sorted order.
func (r *Registry) Roles() []string {
	return slices.Sorted(maps.Keys(r.handlers))
}
