//go:build e2e

package e2e

import (
	"testing"
)

func TestOrders(t *testing.T) {
	t.Run("channel dialog opens", func(t *testing.T) {
		p := openPage(t, "orders").click("create")
		p.expectMessage("channel_dialog")
		p.visible("channel")
	})

	t.Run("select a channel and start a draft", func(t *testing.T) {
		p := openPage(t, "orders").click("create")
		p.choose("channel", "Default Channel").click("submit")
		p.expectText("Draft")
	})

	t.Run("back closes the dialog", func(t *testing.T) {
		p := openPage(t, "orders").click("create")
		p.click("back")
		p.visible("create")
	})

	t.Run("add a note to the first order", func(t *testing.T) {
		p := openPage(t, "orders").firstRow().on("order_details")
		p.expectMessage("heading")
		p.fill("note", "Reviewed by the dashboard suite").
			click("send_note").
			expectSuccess("note_added")
	})

	t.Run("edit the billing address of the first order", func(t *testing.T) {
		p := openPage(t, "orders").firstRow().on("order_details").
			click("edit_billing_address").
			fill("company", "Saleor QA").
			fill("city", "Wroclaw").
			save()
		p.expectText("Wroclaw")
	})

	t.Run("billing address last name is required", func(t *testing.T) {
		openPage(t, "orders").firstRow().on("order_details").
			click("edit_billing_address").
			fill("last_name", "").
			save().expectFieldError("required")
	})

	t.Run("refund form opens", func(t *testing.T) {
		openPage(t, "orders").firstRow().on("order_details").
			click("refund").
			expectMessage("refund_form")
	})
}
