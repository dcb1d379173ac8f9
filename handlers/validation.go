package handlers

import (
	"fmt"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"investgroup/api/models"
)

var registerOnce sync.Once

// RegisterValidations adds the custom binding rules used by request models.
// Safe to call more than once.
func RegisterValidations() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = fmt.Errorf("gin validator engine is %T, not *validator.Validate", binding.Validator.Engine())
			return
		}
		err = v.RegisterValidation("event_type", func(fl validator.FieldLevel) bool {
			return models.EventType(fl.Field().String()).Valid()
		})
	})
	return err
}
