package dashboard

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDriver struct {
	calls   []string
	failOn  string
	timeout time.Duration
}

func (d *recordingDriver) record(call string) error {
	d.calls = append(d.calls, call)
	if d.failOn != "" && strings.HasPrefix(call, d.failOn) {
		return errors.New("boom")
	}
	return nil
}

func (d *recordingDriver) Visit(_ context.Context, url string) error {
	return d.record("visit " + url)
}

func (d *recordingDriver) Click(_ context.Context, sel string) error {
	return d.record("click " + sel)
}

func (d *recordingDriver) Fill(_ context.Context, sel, value string) error {
	return d.record(fmt.Sprintf("fill %s=%s", sel, value))
}

func (d *recordingDriver) Choose(_ context.Context, sel, option string) error {
	return d.record(fmt.Sprintf("choose %s=%s", sel, option))
}

func (d *recordingDriver) SetChecked(_ context.Context, sel string, checked bool) error {
	return d.record(fmt.Sprintf("check %s=%t", sel, checked))
}

func (d *recordingDriver) WaitVisible(_ context.Context, sel string, timeout time.Duration) error {
	d.timeout = timeout
	return d.record("visible " + sel)
}

func (d *recordingDriver) ExpectContains(_ context.Context, sel, text string, timeout time.Duration) error {
	d.timeout = timeout
	return d.record(fmt.Sprintf("expect %s~%s", sel, text))
}

func newTestDashboard(t *testing.T) (*Dashboard, *recordingDriver) {
	t.Helper()
	c, err := DefaultCatalog()
	require.NoError(t, err)
	d := &recordingDriver{}
	return New(d, c, "https://store.saleor.cloud/dashboard/", 3*time.Second), d
}

func TestDefaultCatalog(t *testing.T) {
	c, err := DefaultCatalog()
	require.NoError(t, err)

	areas := []string{
		"login", "warehouses", "channels", "customers", "vouchers", "promotions",
		"attributes", "staff", "permission_groups", "taxes", "translations",
		"orders", "products", "playground", "gift_cards", "draft_orders",
		"order_details", "models", "model_types", "structures", "extensions",
		"extensions_explore", "site_settings", "refund_settings",
		"voucher_list", "promotion_list", "category_list", "collection_list",
		"product_type_list",
	}
	for _, area := range areas {
		p, err := c.Page(area)
		require.NoError(t, err, area)
		assert.NotEmpty(t, p.Route, area)
	}

	assert.NotEmpty(t, c.Common.Save)
	assert.NotEmpty(t, c.Common.SuccessToast)
	assert.NotEmpty(t, c.Common.FieldError)
	assert.Equal(t, "This field is required", c.Messages["required"])

	names := c.PageNames()
	assert.True(t, len(names) >= len(areas))
	assert.IsIncreasing(t, names)

	t.Run("list pages share the fields of their create form", func(t *testing.T) {
		for list, form := range map[string]string{
			"voucher_list":      "vouchers",
			"promotion_list":    "promotions",
			"category_list":     "categories",
			"collection_list":   "categories",
			"product_type_list": "product_types",
		} {
			want, err := c.Field(form, "name")
			require.NoError(t, err)
			got, err := c.Field(list, "name")
			require.NoError(t, err, list)
			assert.Equal(t, want, got, list)
		}
	})

	t.Run("login links to sign up", func(t *testing.T) {
		_, err := c.Control("login", "sign_up")
		require.NoError(t, err)
		msg, err := c.Message("login", "registration_url")
		require.NoError(t, err)
		assert.Equal(t, "registration", msg)
	})
}

func TestCatalogLookups(t *testing.T) {
	c, err := DefaultCatalog()
	require.NoError(t, err)

	sel, err := c.Field("warehouses", "name")
	require.NoError(t, err)
	assert.Equal(t, `input[name="warehouseName"]`, sel)

	sel, err = c.Control("warehouses", "create")
	require.NoError(t, err)
	assert.Contains(t, sel, "Create Warehouse")

	t.Run("page message", func(t *testing.T) {
		msg, err := c.Message("warehouses", "created")
		require.NoError(t, err)
		assert.Equal(t, "Warehouse created successfully", msg)
	})

	t.Run("shared message fallback", func(t *testing.T) {
		msg, err := c.Message("warehouses", "required")
		require.NoError(t, err)
		assert.Equal(t, "This field is required", msg)
	})

	t.Run("unknown entries", func(t *testing.T) {
		_, err := c.Page("nope")
		assert.True(t, errors.Is(err, ErrUnknownEntry))

		_, err = c.Field("warehouses", "nope")
		assert.True(t, errors.Is(err, ErrUnknownEntry))
		assert.Contains(t, err.Error(), `field "nope" on page "warehouses"`)

		_, err = c.Control("nope", "create")
		assert.True(t, errors.Is(err, ErrUnknownEntry))

		// Fields are never resolved through the shared messages.
		_, err = c.Field("warehouses", "required")
		assert.True(t, errors.Is(err, ErrUnknownEntry))
	})
}

func TestLoadCatalog(t *testing.T) {
	t.Run("empty path", func(t *testing.T) {
		c, err := LoadCatalog("")
		require.NoError(t, err)
		assert.NotEmpty(t, c.Pages)
	})

	t.Run("override merges", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "catalog.yaml")
		override := `
common:
  save: 'button#save'
messages:
  required: Pole jest wymagane
pages:
  warehouses:
    messages:
      created: Magazyn utworzony
  loyalty:
    route: /loyalty
    fields:
      code: 'input[name="code"]'
`
		require.NoError(t, os.WriteFile(path, []byte(override), 0o644))

		c, err := LoadCatalog(path)
		require.NoError(t, err)

		assert.Equal(t, "button#save", c.Common.Save)
		assert.NotEmpty(t, c.Common.SuccessToast, "unset common selectors keep defaults")
		assert.Equal(t, "Pole jest wymagane", c.Messages["required"])
		assert.Equal(t, "Enter a valid email address", c.Messages["invalid_email"])

		msg, err := c.Message("warehouses", "created")
		require.NoError(t, err)
		assert.Equal(t, "Magazyn utworzony", msg)

		msg, err = c.Message("warehouses", "deleted")
		require.NoError(t, err)
		assert.Equal(t, "Warehouse deleted successfully", msg)

		p, err := c.Page("warehouses")
		require.NoError(t, err)
		assert.Equal(t, "/warehouses", p.Route)

		sel, err := c.Field("loyalty", "code")
		require.NoError(t, err)
		assert.Equal(t, `input[name="code"]`, sel)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "catalog.yaml")
		require.NoError(t, os.WriteFile(path, []byte("pages: [unclosed"), 0o644))
		_, err := LoadCatalog(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse catalog")
	})
}

func TestDashboardURL(t *testing.T) {
	d, _ := newTestDashboard(t)

	assert.Equal(t, "https://store.saleor.cloud/dashboard/warehouses", d.URL("/warehouses"))
	assert.Equal(t, "https://store.saleor.cloud/dashboard/orders", d.URL("orders"))
	assert.Equal(t, "https://store.saleor.cloud/dashboard/", d.URL("/"))
	assert.Equal(t, "https://cloud.saleor.io/login", d.URL("https://cloud.saleor.io/login"))
}

func TestDashboardActions(t *testing.T) {
	ctx := context.Background()

	t.Run("open waits for heading", func(t *testing.T) {
		d, drv := newTestDashboard(t)
		require.NoError(t, d.Open(ctx, "warehouses"))
		assert.Equal(t, []string{
			"visit https://store.saleor.cloud/dashboard/warehouses",
			"expect body~All warehouses",
		}, drv.calls)
		assert.Equal(t, 3*time.Second, drv.timeout)
	})

	t.Run("open without heading only visits", func(t *testing.T) {
		d, drv := newTestDashboard(t)
		require.NoError(t, d.Open(ctx, "vouchers"))
		assert.Equal(t, []string{"visit https://store.saleor.cloud/dashboard/discounts/vouchers/add"}, drv.calls)
	})

	t.Run("open stops on visit failure", func(t *testing.T) {
		d, drv := newTestDashboard(t)
		drv.failOn = "visit"
		require.Error(t, d.Open(ctx, "warehouses"))
		assert.Len(t, drv.calls, 1)
	})

	t.Run("create warehouse flow", func(t *testing.T) {
		d, drv := newTestDashboard(t)
		c := d.Catalog()

		require.NoError(t, d.Click(ctx, "warehouses", "create"))
		require.NoError(t, d.Fill(ctx, "warehouses", "name", "Main"))
		require.NoError(t, d.Choose(ctx, "channels", "currency", "USD"))
		require.NoError(t, d.Check(ctx, "channels", "allow_unpaid_orders"))
		require.NoError(t, d.Uncheck(ctx, "channels", "use_transaction_flow"))
		require.NoError(t, d.Save(ctx))
		require.NoError(t, d.ExpectSuccess(ctx, "warehouses", "created"))

		assert.Equal(t, []string{
			`click button:has-text("Create Warehouse")`,
			`fill input[name="warehouseName"]=Main`,
			`choose div:has-text("Currency") input[role="combobox"]=USD`,
			`check input[name="allowUnpaidOrders"]=true`,
			`check input[name="useTransactionFlow"]=false`,
			"click " + c.Common.Save,
			"expect " + c.Common.SuccessToast + "~Warehouse created successfully",
		}, drv.calls)
	})

	t.Run("error assertions", func(t *testing.T) {
		d, drv := newTestDashboard(t)
		c := d.Catalog()

		require.NoError(t, d.ExpectFieldError(ctx, "required"))
		require.NoError(t, d.ExpectError(ctx, "channels", "ttl_range"))
		require.NoError(t, d.ExpectMessage(ctx, "login", "invalid_credentials"))
		require.NoError(t, d.ExpectText(ctx, "Default Channel"))

		assert.Equal(t, []string{
			"expect " + c.Common.FieldError + "~This field is required",
			"expect " + c.Common.ErrorAlert + "~Allowed range between 1 and 120",
			"expect body~Invalid username or password.",
			"expect body~Default Channel",
		}, drv.calls)
	})

	t.Run("visible falls back to controls", func(t *testing.T) {
		d, drv := newTestDashboard(t)
		require.NoError(t, d.Visible(ctx, "playground", "editor"))
		require.NoError(t, d.Visible(ctx, "playground", "execute"))
		assert.Equal(t, []string{
			"visible .CodeMirror-code",
			`visible button[aria-label="Execute query"]`,
		}, drv.calls)
	})

	t.Run("modal and list helpers", func(t *testing.T) {
		d, drv := newTestDashboard(t)
		c := d.Catalog()
		require.NoError(t, d.Confirm(ctx))
		require.NoError(t, d.OpenFirstRow(ctx))
		assert.Equal(t, []string{"click " + c.Common.Confirm, "click " + c.Common.FirstRow}, drv.calls)
	})

	t.Run("unknown names never reach the driver", func(t *testing.T) {
		d, drv := newTestDashboard(t)

		for _, err := range []error{
			d.Open(ctx, "nope"),
			d.Click(ctx, "warehouses", "nope"),
			d.Fill(ctx, "warehouses", "nope", "x"),
			d.Choose(ctx, "warehouses", "nope", "x"),
			d.Check(ctx, "warehouses", "nope"),
			d.Visible(ctx, "warehouses", "nope"),
			d.ExpectSuccess(ctx, "warehouses", "nope"),
			d.ExpectFieldError(ctx, "nope"),
		} {
			assert.True(t, errors.Is(err, ErrUnknownEntry), "%v", err)
		}
		assert.Empty(t, drv.calls)
	})
}

func TestUniqueData(t *testing.T) {
	a, b := UniqueName("Warehouse"), UniqueName("Warehouse")
	assert.NotEqual(t, a, b)
	assert.Regexp(t, regexp.MustCompile(`^Warehouse [0-9a-f]{8}$`), a)

	email := UniqueEmail("QA Customer")
	assert.Regexp(t, regexp.MustCompile(`^qa\.customer\+[0-9a-f]{8}@example\.com$`), email)
	assert.Regexp(t, regexp.MustCompile(`^qa\+[0-9a-f]{8}@example\.com$`), UniqueEmail("!!!"))

	assert.Equal(t, "summer-sale-2024", Slug("  Summer Sale 2024! "))
}
