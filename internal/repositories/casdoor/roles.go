package casdoor

import (
	"strings"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"

	"github.com/SAP-F-2025/recruitx-service/internal/models"
)

// MapRole derives the single application role of a Casdoor account.
// Any staff role wins; everyone else is a candidate.
func MapRole(user *casdoorsdk.User) models.UserRole {
	if user == nil {
		return models.RoleCandidate
	}
	if user.IsAdmin {
		return models.RoleRecruiter
	}

	for _, role := range user.Roles {
		if role != nil && mapRoleName(role.Name) == models.RoleRecruiter {
			return models.RoleRecruiter
		}
	}
	if mapRoleName(user.Type) == models.RoleRecruiter || mapRoleName(user.Tag) == models.RoleRecruiter {
		return models.RoleRecruiter
	}

	return models.RoleCandidate
}

func mapRoleName(name string) models.UserRole {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "recruiter", "hr", "admin", "administrator":
		return models.RoleRecruiter
	default:
		return models.RoleCandidate
	}
}
