package service

import (
	"github.com/go-playground/validator/v10"

	"github.com/buddybox/buddybox/internal/core/domain"
)

var validate = validator.New()

func init() {
	validate.RegisterValidation("dbname", func(fl validator.FieldLevel) bool {
		return domain.ValidDatabaseName(fl.Field().String())
	})
}

func validDatabaseName(name string) bool {
	return validate.Var(name, "dbname") == nil
}
