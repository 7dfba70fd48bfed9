package catalog

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mercato-hq/mercato/internal/validate"
)

// ProductForm is the raw product submission used for create and update.
type ProductForm struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description" validate:"max=2000"`
	Price       string `json:"price" validate:"required,decimal_gte0"`
	Active      *bool  `json:"active"`
}

// NewProduct validates form into a new Product owned by businessID. Products
// are active unless the form says otherwise.
func NewProduct(businessID uuid.UUID, form ProductForm, now time.Time) validate.Result[Product] {
	if errs := check(form); errs != nil {
		return validate.Invalid[Product](errs)
	}
	price, _ := validate.ParseDecimal(form.Price)
	active := true
	if form.Active != nil {
		active = *form.Active
	}
	return validate.Valid(Product{
		ID:          uuid.New(),
		BusinessID:  businessID,
		Name:        strings.TrimSpace(form.Name),
		Description: strings.TrimSpace(form.Description),
		Price:       price.Round(2),
		Active:      active,
		UpdatedAt:   now.UTC(),
	})
}

// ApplyProductForm validates form and returns existing with the changes applied.
// The id, owner and image stay untouched.
func ApplyProductForm(existing Product, form ProductForm, now time.Time) validate.Result[Product] {
	if errs := check(form); errs != nil {
		return validate.Invalid[Product](errs)
	}
	price, _ := validate.ParseDecimal(form.Price)
	out := existing
	out.Name = strings.TrimSpace(form.Name)
	out.Description = strings.TrimSpace(form.Description)
	out.Price = price.Round(2)
	if form.Active != nil {
		out.Active = *form.Active
	}
	out.UpdatedAt = now.UTC()
	return validate.Valid(out)
}

func check(form ProductForm) validate.FieldErrors {
	errs := validate.Struct(form)
	if strings.TrimSpace(form.Name) == "" {
		errs = validate.Merge(errs, validate.FieldErrors{"name": "is required"})
	}
	return errs
}
