package tenant

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingContext is returned when an operation runs without a tenant bound.
var ErrMissingContext = errors.New("tenant: missing tenant context")

// ErrCrossTenant is returned when a resource belongs to another tenant.
var ErrCrossTenant = errors.New("tenant: cross-tenant data access denied")

// PartitionKey formats a storage partition key scoped to a clinic.
func PartitionKey(clinicID string) (string, error) {
	if clinicID == "" {
		return "", errors.New("tenant: clinic ID required for partition key")
	}
	return "TENANT#" + clinicID, nil
}

// PartitionKeyFor formats a partition key scoped to a clinic and entity type.
func PartitionKeyFor(clinicID, entityType string) (string, error) {
	base, err := PartitionKey(clinicID)
	if err != nil {
		return "", err
	}
	if entityType == "" {
		return base, nil
	}
	return base + "#" + entityType, nil
}

// ClinicIDFromPartitionKey extracts the clinic ID from a partition key.
func ClinicIDFromPartitionKey(key string) (string, error) {
	rest, ok := strings.CutPrefix(key, "TENANT#")
	if !ok || rest == "" {
		return "", fmt.Errorf("tenant: invalid partition key format: %s", key)
	}
	if i := strings.IndexByte(rest, '#'); i >= 0 {
		rest = rest[:i]
	}
	if rest == "" {
		return "", fmt.Errorf("tenant: invalid partition key format: %s", key)
	}
	return rest, nil
}

// ValidateContext checks that a resource belongs to the requesting tenant.
// Callers pass the clinic bound to the request and the clinic recorded on the
// stored resource.
func ValidateContext(requestClinicID, resourceClinicID string) error {
	if requestClinicID == "" {
		return ErrMissingContext
	}
	if requestClinicID != resourceClinicID {
		return ErrCrossTenant
	}
	return nil
}
