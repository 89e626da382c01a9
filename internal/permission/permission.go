// Package permission maps role groups to the capabilities they may exercise.
package permission

// capabilityGroups is the static capability table. A capability not listed
// here is granted to nobody except SystemAdmin.
var capabilityGroups = map[string][]string{
	"patients:read":      {"Doctor", "Admin", "Staff"},
	"patients:write":     {"Doctor", "Admin"},
	"notes:read":         {"Doctor", "Admin"},
	"notes:write":        {"Doctor", "Admin"},
	"invoices:read":      {"Doctor", "Admin", "Staff"},
	"invoices:write":     {"Doctor", "Admin"},
	"appointments:read":  {"Doctor", "Admin", "Staff"},
	"appointments:write": {"Doctor", "Admin", "Staff"},
	"dashboard:read":     {"Doctor", "Admin", "Staff", "SystemAdmin"},
	"analytics:read":     {"Doctor", "Admin", "Staff", "SystemAdmin"},
	"analytics:export":   {"Doctor", "Admin", "SystemAdmin"},
	"settings:read":      {"Doctor", "Admin", "Staff", "SystemAdmin"},
	"settings:write":     {"Admin", "SystemAdmin"},
	"clinic:update":      {"Admin", "SystemAdmin"},
	"system:manage":      {"SystemAdmin"},
	"admin:access":       {"Admin", "SystemAdmin"},
}

// HasCapability reports whether any of the caller's groups grants the
// capability. SystemAdmin membership grants everything, listed or not.
func HasCapability(groups []string, capability string) bool {
	for _, g := range groups {
		if g == "SystemAdmin" {
			return true
		}
	}
	allowed := capabilityGroups[capability]
	for _, g := range groups {
		for _, a := range allowed {
			if g == a {
				return true
			}
		}
	}
	return false
}

// HasRole reports whether the caller holds one of the allowed roles.
// SystemAdmin membership satisfies any role requirement.
func HasRole(groups []string, allowedRoles []string) bool {
	for _, g := range groups {
		if g == "SystemAdmin" {
			return true
		}
		for _, r := range allowedRoles {
			if g == r {
				return true
			}
		}
	}
	return false
}

// Capabilities returns every capability the caller's groups grant.
// SystemAdmin yields the full table. Order is unspecified.
func Capabilities(groups []string) []string {
	granted := make([]string, 0, len(capabilityGroups))
	for c := range capabilityGroups {
		if HasCapability(groups, c) {
			granted = append(granted, c)
		}
	}
	return granted
}
