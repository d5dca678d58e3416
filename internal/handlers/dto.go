package handlers

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate checks struct tags on request DTOs, mirroring the input guards
// the stores themselves enforce so malformed requests fail fast.
var validate = validator.New()

// validationError flattens validator output into a single caller-facing
// message.
func validationError(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, strings.ToLower(fe.Field()))
		}
		return "invalid value for: " + strings.Join(fields, ", ")
	}
	return "invalid request body"
}

// OptionalInt distinguishes an absent JSON field from an explicit null.
// Absent means "leave unchanged"; null means "explicitly clear".
type OptionalInt struct {
	Set   bool
	Value *int
}

// UnmarshalJSON records presence and captures null vs a concrete value.
func (o *OptionalInt) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Value = nil
		return nil
	}
	var v int
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type twoFAVerifyRequest struct {
	PendingToken string `json:"pendingToken" validate:"required"`
	Code         string `json:"code" validate:"required,numeric,len=6"`
}

type twoFACodeRequest struct {
	Code string `json:"code" validate:"required,numeric,len=6"`
}

type createCategoryRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=100"`
	ParentID *int   `json:"parentId" validate:"omitempty,min=1"`
}

type updateCategoryRequest struct {
	Name     *string     `json:"name" validate:"omitempty,min=1,max=100"`
	ParentID OptionalInt `json:"parentId"`
}

type createProductRequest struct {
	Name        string  `json:"name" validate:"required,min=1,max=200"`
	Description string  `json:"description" validate:"max=2000"`
	Price       float64 `json:"price" validate:"gte=0"`
	Stock       int     `json:"stock" validate:"gte=0"`
	CategoryID  *int    `json:"categoryId" validate:"omitempty,min=1"`
	ImageURL    *string `json:"imageUrl" validate:"omitempty,max=500"`
}

type updateProductRequest struct {
	Name        *string     `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string     `json:"description" validate:"omitempty,max=2000"`
	Price       *float64    `json:"price" validate:"omitempty,gte=0"`
	Stock       *int        `json:"stock" validate:"omitempty,gte=0"`
	CategoryID  OptionalInt `json:"categoryId"`
	ImageURL    *string     `json:"imageUrl" validate:"omitempty,max=500"`
}
