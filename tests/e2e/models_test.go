//go:build e2e

package e2e

import (
	"testing"

	"github.com/saleor-qa/dashboard-e2e/internal/dashboard"
)

func TestModels(t *testing.T) {
	t.Run("edit title and content of the first model", func(t *testing.T) {
		openPage(t, "models").firstRow().
			fill("title", dashboard.UniqueName("Model")).
			fill("content", "Written by the dashboard suite").
			save().expectSuccess("updated")
	})

	t.Run("hide and publish the first model", func(t *testing.T) {
		p := openPage(t, "models").firstRow()
		p.uncheck("visible").save().expectSuccess("updated")
		p.check("visible").save().expectSuccess("updated")
	})

	t.Run("title is required", func(t *testing.T) {
		openPage(t, "models").firstRow().
			fill("title", "").
			save().expectFieldError("required")
	})

	t.Run("create asks for a model type", func(t *testing.T) {
		openPage(t, "models").click("create").expectMessage("select_type")
	})
}

func TestModelTypes(t *testing.T) {
	t.Run("rename the first model type", func(t *testing.T) {
		openPage(t, "model_types").firstRow().
			fill("name", dashboard.UniqueName("Model type")).
			save().expectSuccess("updated")
	})

	t.Run("create a model type", func(t *testing.T) {
		openPage(t, "model_types").click("create").
			fill("name", dashboard.UniqueName("Model type")).
			save().expectSuccess("created")
	})

	t.Run("name is required", func(t *testing.T) {
		openPage(t, "model_types").firstRow().
			fill("name", "").
			save().expectFieldError("required")
	})

	t.Run("duplicate name is rejected", func(t *testing.T) {
		name := dashboard.UniqueName("Model type")
		openPage(t, "model_types").click("create").
			fill("name", name).
			save().expectSuccess("created")
		openPage(t, "model_types").click("create").
			fill("name", name).
			save().expectError("duplicate")
	})

	t.Run("assign attribute dialog opens", func(t *testing.T) {
		openPage(t, "model_types").firstRow().
			click("assign_attribute").
			expectMessage("assign_dialog")
	})
}
