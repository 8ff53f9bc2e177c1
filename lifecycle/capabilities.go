package lifecycle

import "zestro/domain"

type NavItem struct {
	Label string
	Route string
}

// Capability is everything a role may do or see, looked up once instead of
// branching on the role at every call site.
type Capability struct {
	Role        domain.Role
	CanPlace    bool
	CanClaim    bool
	HasCart     bool
	Transitions []domain.Status
	Landing     string
	Nav         []NavItem
}

var capabilities = map[domain.Role]Capability{
	domain.RoleCustomer: {
		Role:     domain.RoleCustomer,
		CanPlace: true,
		HasCart:  true,
		Landing:  "/user/home",
		Nav: []NavItem{
			{Label: "Home", Route: "/user/home"},
			{Label: "Cart", Route: "/user/cart"},
			{Label: "Orders", Route: "/user/orders"},
		},
	},
	domain.RoleRestaurant: {
		Role:    domain.RoleRestaurant,
		Landing: "/restaurant/dashboard",
		Nav: []NavItem{
			{Label: "Dashboard", Route: "/restaurant/dashboard"},
			{Label: "Menu", Route: "/restaurant/dashboard?tab=menu"},
			{Label: "Profile", Route: "/profile"},
		},
	},
	domain.RoleRider: {
		Role:     domain.RoleRider,
		CanClaim: true,
		Landing:  "/rider/dashboard",
		Nav: []NavItem{
			{Label: "Dashboard", Route: "/rider/dashboard"},
			{Label: "Profile", Route: "/profile"},
		},
	},
}

func init() {
	for role, c := range capabilities {
		for _, r := range rules {
			if r.role == role {
				c.Transitions = append(c.Transitions, r.to)
			}
		}
		capabilities[role] = c
	}
}

// CapabilitiesOf returns the capability entry for role.
// The slices are copies; callers may modify them freely.
func CapabilitiesOf(role domain.Role) (Capability, bool) {
	c, ok := capabilities[role]
	if !ok {
		return Capability{}, false
	}
	c.Transitions = append([]domain.Status(nil), c.Transitions...)
	c.Nav = append([]NavItem(nil), c.Nav...)
	return c, true
}

// Allows reports whether the role may request the target status at all.
func (c Capability) Allows(to domain.Status) bool {
	for _, s := range c.Transitions {
		if s == to {
			return true
		}
	}
	return false
}
