package domain

// GuardState is the outcome of a protected-route check
type GuardState string

const (
	GuardLoading              GuardState = "LOADING"
	GuardUnauthenticated      GuardState = "UNAUTHENTICATED"
	GuardSuspended            GuardState = "SUSPENDED"
	GuardPendingRoleSelection GuardState = "PENDING_ROLE_SELECTION"
	GuardRoleMismatch         GuardState = "ROLE_MISMATCH"
	GuardAuthorized           GuardState = "AUTHORIZED"
)

// Front-end entry points the guard redirects to
const (
	LoginPath         = "/login"
	RoleSelectionPath = "/select-role"
	SuspendedPath     = "/suspended"
	OnboardingPath    = "/onboarding"
)

var dashboardPaths = map[Role]string{
	RoleAdmin:         "/admin/dashboard",
	RoleBuyerSeller:   "/dashboard",
	RoleBroker:        "/broker/dashboard",
	RoleDeveloper:     "/developer/dashboard",
	RoleSocietyOwner:  "/society-owner/dashboard",
	RoleSocietyMember: "/society-member/dashboard",
}

// DashboardPath returns the canonical landing page for role
func DashboardPath(role Role) string {
	if p, ok := dashboardPaths[role]; ok {
		return p
	}
	return OnboardingPath
}

// GuardInput is everything the guard needs to decide
type GuardInput struct {
	SessionPresent   bool
	SessionLoading   bool
	RoleCount        int
	SelectedRole     *Role
	RequiredRoles    []Role
	AccountSuspended bool
}

// GuardDecision is what the router acts on
type GuardDecision struct {
	State    GuardState `json:"state"`
	Redirect string     `json:"redirect,omitempty"`
}

// Decide evaluates in.
// Priority: LOADING > UNAUTHENTICATED > SUSPENDED > PENDING_ROLE_SELECTION > ROLE_MISMATCH > AUTHORIZED.
func Decide(in GuardInput) GuardDecision {
	switch {
	case in.SessionLoading:
		return GuardDecision{State: GuardLoading}
	case !in.SessionPresent:
		return GuardDecision{State: GuardUnauthenticated, Redirect: LoginPath}
	case in.AccountSuspended:
		return GuardDecision{State: GuardSuspended, Redirect: SuspendedPath}
	case in.RoleCount > 1 && in.SelectedRole == nil:
		return GuardDecision{State: GuardPendingRoleSelection, Redirect: RoleSelectionPath}
	}

	if len(in.RequiredRoles) > 0 && !roleIn(in.SelectedRole, in.RequiredRoles) {
		redirect := OnboardingPath
		if in.SelectedRole != nil {
			redirect = DashboardPath(*in.SelectedRole)
		}
		return GuardDecision{State: GuardRoleMismatch, Redirect: redirect}
	}
	return GuardDecision{State: GuardAuthorized}
}

// GuardInputFor derives the session-dependent part of the input
func GuardInputFor(s *Session, loading, suspended bool, required []Role) GuardInput {
	in := GuardInput{
		SessionPresent:   s != nil,
		SessionLoading:   loading,
		RequiredRoles:    required,
		AccountSuspended: suspended,
	}
	if s != nil {
		in.RoleCount = len(s.Roles)
		if p, ok := s.SelectedRole(); ok {
			role := p.Role
			in.SelectedRole = &role
		}
	}
	return in
}

func roleIn(selected *Role, required []Role) bool {
	if selected == nil {
		return false
	}
	for _, r := range required {
		if r == *selected {
			return true
		}
	}
	return false
}
