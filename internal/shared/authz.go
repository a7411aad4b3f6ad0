package shared

import (
	"context"
	"strconv"
)

// Permission names guarded by the RBAC middleware. Kept in one place so role
// seeds and route guards cannot drift apart.
const (
	PermRoomsView      = "rooms.view"
	PermRoomsManage    = "rooms.manage"
	PermGuestsView     = "guests.view"
	PermGuestsManage   = "guests.manage"
	PermBookingsView   = "bookings.view"
	PermBookingsManage = "bookings.manage"
	PermBillingView    = "billing.view"
	PermBillingManage  = "billing.manage"
	PermLedgerView     = "ledger.view"
	PermLedgerWrite    = "ledger.write"
	PermVendorsView    = "vendors.view"
	PermVendorsManage  = "vendors.manage"
	PermRequestsView   = "requests.view"
	PermRequestsManage = "requests.manage"
	PermReportsView    = "reports.view"
	PermAuditView      = "audit.view"
	PermUsersManage    = "users.manage"
	PermRolesManage    = "roles.manage"
)

// CurrentUserID resolves the acting user from the session in context.
// Returns 0 when unauthenticated.
func CurrentUserID(ctx context.Context) int64 {
	sess := SessionFromContext(ctx)
	if sess == nil {
		return 0
	}
	id, _ := strconv.ParseInt(sess.User(), 10, 64)
	return id
}
