// internal/app/system/viewdata/viewdata.go
package viewdata

import (
	"context"
	"net/http"

	"github.com/dalemusser/waffle/pantry/httpnav"
	"github.com/dalemusser/zelus/internal/app/system/auth"
	"github.com/dalemusser/zelus/internal/app/system/authz"
	"github.com/gorilla/csrf"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SiteName is shown in the page title and header.
const SiteName = "Zelus"

// BaseVM contains common fields for all view models.
// Embed this struct in your feature-specific view models.
//
// Usage:
//
//	type ticketListData struct {
//	    viewdata.BaseVM
//	    // page-specific fields...
//	}
//
//	data := ticketListData{
//	    BaseVM: viewdata.NewBaseVM(r, "Ocorrências", "/dashboard"),
//	}
type BaseVM struct {
	SiteName string

	// User context (from auth middleware)
	IsLoggedIn bool
	UserName   string
	UserImage  string

	// Organization context (from the access guard)
	OrgName    string
	Role       string
	RoleLabel  string
	IsOrgAdmin bool
	Unread     int64

	// Page context
	Title       string
	BackURL     string
	CurrentPath string

	// CSRF protection
	CSRFToken string
}

// UnreadCounter returns the number of unread notifications for a user.
// It is set by bootstrap to avoid an import cycle with the stores.
type UnreadCounter func(ctx context.Context, orgID, userID primitive.ObjectID) int64

var unreadCounter UnreadCounter

// SetUnreadCounter sets the function used for the header notification badge.
func SetUnreadCounter(fn UnreadCounter) {
	unreadCounter = fn
}

// NewBaseVM creates a fully populated BaseVM for a page.
func NewBaseVM(r *http.Request, title, backDefault string) BaseVM {
	vm := BaseVM{
		SiteName:    SiteName,
		Title:       title,
		BackURL:     httpnav.ResolveBackURL(r, backDefault),
		CurrentPath: httpnav.CurrentPath(r),
		CSRFToken:   csrf.Token(r),
	}

	if u, ok := auth.CurrentUser(r); ok {
		vm.IsLoggedIn = true
		vm.UserName = u.Name
		vm.UserImage = u.Image
	}

	if oc, ok := authz.FromRequest(r); ok {
		vm.OrgName = oc.Org.Name
		vm.Role = oc.Role.String()
		vm.RoleLabel = oc.Role.Label()
		vm.IsOrgAdmin = oc.IsOrgAdmin()
		if unreadCounter != nil {
			vm.Unread = unreadCounter(r.Context(), oc.OrgID(), oc.UserID())
		}
	}

	return vm
}
