//go:build e2e

package e2e

import (
	"strings"
	"testing"

	"github.com/saleor-qa/dashboard-e2e/internal/dashboard"
)

func voucherCode() string {
	return strings.ToUpper(dashboard.Slug(dashboard.UniqueName("QA")))
}

func TestVouchers(t *testing.T) {
	t.Run("fixed amount voucher", func(t *testing.T) {
		openPage(t, "vouchers").
			fill("name", dashboard.UniqueName("Voucher Fixed")).
			click("add_code").
			fill("code", voucherCode()).
			check("fixed").
			save().expectSuccess("created")
	})

	t.Run("percentage voucher limited per customer", func(t *testing.T) {
		openPage(t, "vouchers").
			fill("name", dashboard.UniqueName("Voucher Percent")).
			click("add_code").
			fill("code", voucherCode()).
			check("percentage").
			fill("min_order_value", "50").
			check("limit_one_per_customer").
			save().expectSuccess("created")
	})

	t.Run("free shipping voucher", func(t *testing.T) {
		openPage(t, "vouchers").
			fill("name", dashboard.UniqueName("Voucher Shipping")).
			click("add_code").
			fill("code", voucherCode()).
			check("free_shipping").
			save().expectSuccess("created")
	})

	t.Run("name is required", func(t *testing.T) {
		openPage(t, "vouchers").check("fixed").save().expectFieldError("required")
	})

	t.Run("rename the first voucher", func(t *testing.T) {
		openPage(t, "voucher_list").firstRow().
			fill("name", dashboard.UniqueName("Voucher Edited")).
			save().expectSuccess("updated")
	})

	t.Run("edit keeps name required", func(t *testing.T) {
		openPage(t, "voucher_list").firstRow().
			fill("name", "").
			save().expectFieldError("required")
	})
}

func TestPromotions(t *testing.T) {
	t.Run("catalogue promotion with rule", func(t *testing.T) {
		openPage(t, "promotions").
			fill("name", dashboard.UniqueName("Promotion")).
			choose("discount_type", "Catalog").
			click("add_rule").
			fill("rule_name", "Ten percent off").
			fill("reward_value", "10").
			click("save_rule").
			save().expectSuccess("created")
	})

	t.Run("order promotion", func(t *testing.T) {
		openPage(t, "promotions").
			fill("name", dashboard.UniqueName("Order Promotion")).
			choose("discount_type", "Order").
			save().expectSuccess("created")
	})

	t.Run("name is required", func(t *testing.T) {
		openPage(t, "promotions").
			choose("discount_type", "Catalog").
			save().expectFieldError("required")
	})

	t.Run("rename the first promotion", func(t *testing.T) {
		openPage(t, "promotion_list").firstRow().
			fill("name", dashboard.UniqueName("Promotion Edited")).
			save().expectSuccess("updated")
	})

	t.Run("edit keeps name required", func(t *testing.T) {
		openPage(t, "promotion_list").firstRow().
			fill("name", "").
			save().expectFieldError("required")
	})
}
