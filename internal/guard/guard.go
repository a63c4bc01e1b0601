// Package guard decides whether a page may render for the current session.
package guard

import (
	"slices"

	"github.com/eventflow/eventflow/internal/models"
)

const (
	LoginPath     = "/login"
	DashboardPath = "/dashboard"
)

// Outcome is what the router should do with a navigation.
type Outcome int

const (
	Allow Outcome = iota
	Wait
	Redirect
)

func (o Outcome) String() string {
	switch o {
	case Wait:
		return "wait"
	case Redirect:
		return "redirect"
	default:
		return "allow"
	}
}

// Input is the part of the session the guard looks at.
type Input struct {
	Loading       bool
	Authenticated bool
	Role          models.Role
}

// Decision is the result of Decide. To and From are set only for Redirect.
type Decision struct {
	Outcome Outcome
	To      string
	From    string
}

// Decide gates a protected page. A loading session never redirects.
// Only a resolved role outside requiredRoles is sent to the dashboard; RoleNone renders
// and leaves enforcement to the backend.
func Decide(in Input, requiredRoles []models.Role, requestedPath string) Decision {
	if in.Loading {
		return Decision{Outcome: Wait}
	}
	if !in.Authenticated {
		return Decision{Outcome: Redirect, To: LoginPath, From: requestedPath}
	}
	if len(requiredRoles) == 0 {
		return Decision{Outcome: Allow}
	}
	switch in.Role {
	case models.RoleNone:
		return Decision{Outcome: Allow}
	case models.RoleAdmin, models.RoleClubAdmin, models.RoleStudent:
		if slices.Contains(requiredRoles, in.Role) {
			return Decision{Outcome: Allow}
		}
		return Decision{Outcome: Redirect, To: DashboardPath, From: requestedPath}
	default:
		return Decision{Outcome: Redirect, To: DashboardPath, From: requestedPath}
	}
}
