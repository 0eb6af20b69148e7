// Package authz evaluates access policy for the compliance modules.
//
// Permissions arrive as resolved strings on the token ("view_evidence",
// "change_customfield", ...). Services never string-match them directly;
// they ask for (subject, action, resource) decisions here so the policy
// stays in one place.
package authz

import (
	"context"

	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/requestcontext"
)

// Action is the verb half of a permission.
type Action string

const (
	ActionView   Action = "view"
	ActionAdd    Action = "add"
	ActionChange Action = "change"
	ActionDelete Action = "delete"
	// ActionManage grants division-scoped oversight of other users' records.
	ActionManage Action = "manage"
	// ActionWork grants access to records explicitly assigned to the subject.
	ActionWork Action = "work"
)

// Resource names the model half of a permission.
type Resource string

const (
	ResourceAttribute      Resource = "attribute"
	ResourceCustomField    Resource = "customfield"
	ResourceEvidenceType   Resource = "evidencetype"
	ResourceEvidence       Resource = "evidence"
	ResourceEvidenceAuth   Resource = "evidenceauth"
	ResourceSignature      Resource = "evidencesignature"
	ResourceFinding        Resource = "evidencefinding"
	ResourceNotification   Resource = "notification"
	ResourceCatalog        Resource = "catalog"
	ResourceQualityControl Resource = "qualitycontrol"
	ResourceWorkflow       Resource = "workflow"
	ResourceUser           Resource = "user"
)

// Subject is the authenticated principal with its resolved capabilities.
type Subject struct {
	UserID      id.UserID
	DivisionID  id.DivisionID
	permissions map[string]struct{}
}

// SubjectFromContext rebuilds the subject placed in context by the auth
// middleware. A zero subject (no user) holds no permissions.
func SubjectFromContext(ctx context.Context) Subject {
	perms := requestcontext.Permissions(ctx)
	set := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return Subject{
		UserID:      requestcontext.UserID(ctx),
		DivisionID:  requestcontext.DivisionID(ctx),
		permissions: set,
	}
}

// NewSubject builds a subject directly; used by tests.
func NewSubject(userID id.UserID, divisionID id.DivisionID, perms ...string) Subject {
	set := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return Subject{UserID: userID, DivisionID: divisionID, permissions: set}
}

// Can reports whether the subject holds the permission for (action, resource).
func (s Subject) Can(action Action, resource Resource) bool {
	_, ok := s.permissions[string(action)+"_"+string(resource)]
	return ok
}

// Require returns a forbidden error unless the subject holds the permission.
func (s Subject) Require(action Action, resource Resource) error {
	if s.UserID.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if !s.Can(action, resource) {
		return dErrors.Newf(dErrors.CodeForbidden, "missing permission %s_%s", action, resource)
	}
	return nil
}

// Assignment captures the object-level facts needed to decide whether a
// subject may act on a pending authorization or signature record.
type Assignment struct {
	Resource      Resource
	AssigneeID    id.UserID
	OwnerDivision id.DivisionID
}

// RequireAssignment implements the three-way record-level policy:
//   - blanket change permission acts on any record
//   - manage permission acts within the evidence owner's division
//   - work permission acts only on records addressed to the subject
func (s Subject) RequireAssignment(a Assignment) error {
	if s.UserID.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if s.Can(ActionChange, a.Resource) {
		return nil
	}
	if s.Can(ActionManage, a.Resource) && !s.DivisionID.IsNil() && s.DivisionID == a.OwnerDivision {
		return nil
	}
	if s.Can(ActionWork, a.Resource) && s.UserID == a.AssigneeID {
		return nil
	}
	return dErrors.Newf(dErrors.CodeForbidden, "not allowed to act on this %s record", a.Resource)
}
