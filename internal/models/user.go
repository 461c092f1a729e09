package models

type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	DisplayName  string     `json:"display_name"`
	PasswordHash string     `json:"-"`
	IsActive     bool       `json:"is_active"`
	Roles        []UserRole `json:"roles"`
}

type UserRole string

const (
	RoleCustomer UserRole = "customer"
	RoleAdmin    UserRole = "admin"
)

var roleRank = map[UserRole]int{
	RoleCustomer: 1,
	RoleAdmin:    2,
}

// HasAtLeast reports whether any of the roles reaches the required tier.
func HasAtLeast(roles []UserRole, required UserRole) bool {
	need, ok := roleRank[required]
	if !ok {
		return false
	}
	for _, role := range roles {
		if roleRank[role] >= need {
			return true
		}
	}
	return false
}

// NormalizeRoles removes duplicates and unknown entries, preserving order.
func NormalizeRoles(roles []UserRole) []UserRole {
	seen := make(map[UserRole]bool, len(roles))
	normalized := make([]UserRole, 0, len(roles))
	for _, role := range roles {
		if _, known := roleRank[role]; !known {
			continue
		}
		if seen[role] {
			continue
		}
		seen[role] = true
		normalized = append(normalized, role)
	}
	return normalized
}

// EnsureDefaultRole guarantees every user carries at least the customer role.
func EnsureDefaultRole(roles []UserRole) []UserRole {
	if len(roles) == 0 {
		return []UserRole{RoleCustomer}
	}
	return roles
}

func IsValidRoleList(roles []UserRole) bool {
	if len(roles) == 0 {
		return false
	}
	for _, role := range roles {
		if _, ok := roleRank[role]; !ok {
			return false
		}
	}
	return true
}

func HighestRole(roles []UserRole) UserRole {
	highest := RoleCustomer
	for _, role := range roles {
		if roleRank[role] > roleRank[highest] {
			highest = role
		}
	}
	return highest
}
