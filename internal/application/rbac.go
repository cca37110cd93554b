package application

import "github.com/oksasatya/go-ddd-identity/internal/domain/entity"

// Gate decides administrative authority. Both conditions must hold: the email
// is on the allow-list and the role is ADMIN or SUPERADMIN.
type Gate struct {
	allow map[string]struct{}
}

func NewGate(adminEmails []string) *Gate {
	g := &Gate{allow: make(map[string]struct{}, len(adminEmails))}
	for _, e := range adminEmails {
		if n := entity.NormalizeEmail(e); n != "" {
			g.allow[n] = struct{}{}
		}
	}
	return g
}

func (g *Gate) Authorize(email string, role entity.Role) bool {
	if g == nil || !role.IsAdmin() {
		return false
	}
	_, ok := g.allow[entity.NormalizeEmail(email)]
	return ok
}

// emailSet is a normalized set of addresses, used for the verification exemption list.
type emailSet map[string]struct{}

func newEmailSet(emails []string) emailSet {
	s := make(emailSet, len(emails))
	for _, e := range emails {
		if n := entity.NormalizeEmail(e); n != "" {
			s[n] = struct{}{}
		}
	}
	return s
}

func (s emailSet) has(email string) bool {
	_, ok := s[entity.NormalizeEmail(email)]
	return ok
}
