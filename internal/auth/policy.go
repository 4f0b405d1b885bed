package auth

import "order-management-service/internal/models"

// CanAccess decides whether caller may act on behalf of target.
// Admins may act for anyone; everybody else only for themselves, matched by email.
func CanAccess(caller Caller, target models.Identity) bool {
	if caller.IsAdmin() {
		return true
	}
	return caller.Email != "" && caller.Email == target.Email
}
