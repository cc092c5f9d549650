package social

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"askgraph/backend/internal/graph"
	apperrors "askgraph/backend/pkg/errors"
)

// QuestionInput is a question submission
type QuestionInput struct {
	Author string       `validate:"notblank"`
	Title  string       `validate:"notblank,max=300"`
	Text   string       `validate:"notblank"`
	Tags   graph.TagSet `validate:"required,min=1,max=20"`
}

// AnswerInput is an answer submission
type AnswerInput struct {
	Author     string `validate:"notblank"`
	QuestionID string `validate:"notblank"`
	Text       string `validate:"notblank"`
}

type profileInput struct {
	Username string `validate:"notblank"`
	Value    string `validate:"max=2000"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	return v
}

// check runs struct validation and reports the first failure as an ErrValidation
func (c *Coordinator) check(input any) error {
	err := c.validate.Struct(input)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if stderrors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperrors.NewValidation(strings.ToLower(fe.Field()), describe(fe))
	}
	return apperrors.NewValidation("input", err.Error())
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "notblank", "required":
		return "must not be empty"
	case "min":
		return fmt.Sprintf("needs at least %s entries", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s long", fe.Param())
	default:
		return fmt.Sprintf("failed %s check", fe.Tag())
	}
}
