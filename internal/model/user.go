package model

// Role names carried in the JWT "role" claim. Identities themselves are
// issued elsewhere; this service only verifies tokens.
const (
    RoleAdmin    = "ADMIN"    // full access, may cancel any booking
    RoleStaff    = "STAFF"    // door staff, may verify and check in codes
    RoleCustomer = "CUSTOMER" // books and manages own tickets
)

// Principal is the authenticated caller as extracted from an access token.
//
// Fields:
//  ID    – token subject (sub claim), used as the booking owner reference.
//  Role  – one of RoleAdmin, RoleStaff or RoleCustomer.
//  Email – optional address from the email claim, used for notifications.
type Principal struct {
    ID    string // sub
    Role  string // role
    Email string // email (optional)
}

// IsAdmin reports whether the principal holds the elevated privilege that
// allows acting on bookings owned by someone else.
func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// CanCheckIn reports whether the principal may verify and admit codes.
func (p Principal) CanCheckIn() bool { return p.Role == RoleAdmin || p.Role == RoleStaff }
