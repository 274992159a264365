//go:build e2e

package e2e

import (
	"testing"

	"github.com/saleor-qa/dashboard-e2e/internal/dashboard"
)

func TestTranslations(t *testing.T) {
	translate := func(t *testing.T, tab string) {
		openPage(t, "translations").click("language").click(tab).
			firstRow().
			click("edit").
			fill("translation", dashboard.UniqueName("Vertaling")).
			save().expectSuccess("saved")
	}

	t.Run("category name", func(t *testing.T) {
		translate(t, "categories_tab")
	})

	t.Run("collection name", func(t *testing.T) {
		translate(t, "collections_tab")
	})
}
