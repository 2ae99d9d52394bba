package validator

import (
	"log"

	"guidia_backend/internal/models"
	"guidia_backend/internal/repositories"

	"github.com/go-playground/validator/v10"
)

// registerCustomRules wires the domain validation tags into the validator
// instance. A failed registration is a startup error.
func registerCustomRules(v *validator.Validate) {
	mustRegister := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			log.Fatalf("failed to register custom validation tag '%s': %v", tag, err)
		}
	}

	mustRegister("is-user-role", validateUserRole)
	mustRegister("is-priority", validatePriority)
	mustRegister("is-notification-type", validateNotificationType)
}

func validateUserRole(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // optionality is expressed with 'required'
	}
	return models.IsValidUserRole(models.UserRole(value))
}

func validatePriority(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return models.IsValidPriority(models.NotificationPriority(value))
}

func validateNotificationType(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return repositories.IsValidNotificationType(value)
}
