// Package httpkit provides HTTP utilities including identity abstraction.
package httpkit

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Identity is the authenticated operator calling the lead-offer command API.
// Every command is scoped to the tenant carried in the access token.
type Identity interface {
	Subject() uuid.UUID
	TenantID() uuid.UUID
	Roles() []string
	HasRole(role string) bool
}

type identity struct {
	subject  uuid.UUID
	tenantID uuid.UUID
	roles    []string
}

func (i *identity) Subject() uuid.UUID  { return i.subject }
func (i *identity) TenantID() uuid.UUID { return i.tenantID }
func (i *identity) Roles() []string     { return i.roles }

func (i *identity) HasRole(role string) bool {
	for _, r := range i.roles {
		if r == role {
			return true
		}
	}
	return false
}

// GetIdentity extracts the Identity set by AuthRequired. The second return is
// false when the request carries no tenant-scoped identity.
func GetIdentity(c *gin.Context) (Identity, bool) {
	subject, ok := c.Get(ContextSubjectKey)
	if !ok {
		return nil, false
	}
	sub, ok := subject.(uuid.UUID)
	if !ok {
		return nil, false
	}
	tenant, ok := c.Get(ContextTenantIDKey)
	if !ok {
		return nil, false
	}
	tid, ok := tenant.(uuid.UUID)
	if !ok {
		return nil, false
	}

	var roles []string
	if raw, ok := c.Get(ContextRolesKey); ok {
		roles, _ = raw.([]string)
	}
	return &identity{subject: sub, tenantID: tid, roles: roles}, true
}

// MustGetIdentity aborts with 401 when no identity is present.
func MustGetIdentity(c *gin.Context) Identity {
	id, ok := GetIdentity(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return nil
	}
	return id
}
