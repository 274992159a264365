//go:build e2e

package e2e

import (
	"testing"

	"github.com/saleor-qa/dashboard-e2e/internal/dashboard"
)

func TestProducts(t *testing.T) {
	t.Run("edit seo of the first product", func(t *testing.T) {
		openPage(t, "products").firstRow().
			fill("seo_title", dashboard.UniqueName("SEO title")).
			fill("seo_description", "Described by the dashboard suite").
			save().expectSuccess("updated")
	})

	t.Run("rename the first product", func(t *testing.T) {
		openPage(t, "products").firstRow().
			fill("name", dashboard.UniqueName("Product")).
			save().expectSuccess("updated")
	})

	t.Run("name is required", func(t *testing.T) {
		openPage(t, "products").firstRow().
			fill("name", "").
			save().expectFieldError("required")
	})
}

func TestCatalogStructure(t *testing.T) {
	for _, area := range []string{"categories", "collections"} {
		t.Run("create "+area, func(t *testing.T) {
			name := dashboard.UniqueName("QA " + area)
			openPage(t, area).
				fill("name", name).
				fill("slug", dashboard.Slug(name)).
				save().expectSuccess("created")
		})

		t.Run(area+" name is required", func(t *testing.T) {
			openPage(t, area).save().expectFieldError("required")
		})
	}

	t.Run("create product type", func(t *testing.T) {
		openPage(t, "product_types").
			fill("name", dashboard.UniqueName("Type")).
			check("shippable").
			save().expectSuccess("created")
	})

	for _, list := range []string{"category_list", "collection_list", "product_type_list"} {
		t.Run("rename first of "+list, func(t *testing.T) {
			openPage(t, list).firstRow().
				fill("name", dashboard.UniqueName("QA renamed")).
				save().expectSuccess("updated")
		})

		t.Run(list+" edit keeps name required", func(t *testing.T) {
			openPage(t, list).firstRow().
				fill("name", "").
				save().expectFieldError("required")
		})
	}

	t.Run("duplicate collection name is rejected", func(t *testing.T) {
		name := dashboard.UniqueName("QA collection")
		openPage(t, "collections").
			fill("name", name).
			save().expectSuccess("created")
		openPage(t, "collections").
			fill("name", name).
			save().expectMessage("duplicate")
	})
}
