//go:build e2e

package e2e

import (
	"testing"
)

// firstDraft opens the newest draft order.
func firstDraft(t *testing.T) *page {
	return openPage(t, "draft_orders").firstRow().on("order_details")
}

func TestDraftOrders(t *testing.T) {
	t.Run("draft is unconfirmed", func(t *testing.T) {
		p := firstDraft(t)
		p.visible("status")
		p.expectMessage("unconfirmed")
	})

	t.Run("add a note", func(t *testing.T) {
		firstDraft(t).
			fill("note", "Checked by the dashboard suite").
			click("send_note").
			expectSuccess("note_added")
	})

	t.Run("edit the shipping address", func(t *testing.T) {
		p := firstDraft(t).click("edit_shipping_address").
			fill("first_name", "Ada").
			fill("last_name", "Lovelace").
			fill("street", "12 Analytical Row").
			fill("city", "London").
			fill("postal_code", "SW1A 1AA").
			fill("phone", "+442071234567").
			save()
		p.expectText("12 Analytical Row")
	})

	t.Run("shipping address street is required", func(t *testing.T) {
		firstDraft(t).click("edit_shipping_address").
			fill("street", "").
			save().expectFieldError("required")
	})

	t.Run("invalid billing phone is rejected", func(t *testing.T) {
		firstDraft(t).click("edit_billing_address").
			fill("phone", "12").
			save().expectFieldError("invalid_phone")
	})
}
