package testfixtures

import (
	"context"
	"fmt"
	"testing"

	"github.com/bluetech/invoice-desk/internal/application"
	"github.com/bluetech/invoice-desk/internal/invoice"
)

// AdminPrincipal is the seeded administrator.
func AdminPrincipal() application.Principal {
	return application.DefaultUser().Principal()
}

// ViewerPrincipal is an authenticated non-admin principal that is not stored.
func ViewerPrincipal() application.Principal {
	return application.Principal{UserID: "viewer-1", Username: "viewer", Role: application.RoleViewer}
}

// FilledDraftChanges returns field edits that produce a complete draft.
// Combined with FilledLineItem the total is 309.75.
func FilledDraftChanges() []application.FieldChange {
	return []application.FieldChange{
		{Name: "companyName", Value: "Prairie Electric"},
		{Name: "fullName", Value: "Dana Reyes"},
		{Name: "email", Value: "dana@example.com"},
		{Name: "phone", Value: "403-555-0100"},
		{Name: "serviceSite", Value: "12 Bow Trail SW"},
		{Name: "gstInput", Value: "14.75", Type: application.InputTypeNumber},
	}
}

// FilledLineItem selects one regular service fee on the first line.
func FilledLineItem() []application.LineItemChange {
	return []application.LineItemChange{
		{Index: 0, Field: invoice.LineFieldQty, Value: "1"},
		{Index: 0, Field: invoice.LineFieldItemBilled, Value: invoice.Catalog()[0].Label},
	}
}

// FillDraft applies FilledDraftChanges and FilledLineItem as a viewer and has
// the seeded admin point the desk at webhookURL.
func FillDraft(tb testing.TB, desk *Desk, webhookURL string) application.DraftView {
	tb.Helper()
	ctx := context.Background()
	p := ViewerPrincipal()

	if err := desk.Admin.SetWebhookURL(ctx, AdminPrincipal(), webhookURL); err != nil {
		tb.Fatalf("SetWebhookURL: %v", err)
	}

	var view application.DraftView
	var err error
	for _, c := range FilledDraftChanges() {
		if view, err = desk.Form.SetField(ctx, p, c); err != nil {
			tb.Fatalf("SetField(%s): %v", c.Name, err)
		}
	}
	for _, c := range FilledLineItem() {
		if view, err = desk.Form.SetLineItem(ctx, p, c); err != nil {
			tb.Fatalf("SetLineItem(%d, %s): %v", c.Index, c.Field, err)
		}
	}
	return view
}

// UserInput returns a valid new team member named username.
func UserInput(username string, role application.Role) application.UserInput {
	return application.UserInput{
		Username:    username,
		Password:    username + "-pw",
		DisplayName: fmt.Sprintf("Member %s", username),
		Role:        role,
	}
}
