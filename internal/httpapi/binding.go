package httpapi

import (
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/safar/go-logistics/internal/models"
)

var validationOnce sync.Once

// registerValidation makes gin's validator report json/form field names and
// teaches it the shipment mode tag.
func registerValidation() {
	validationOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
				if name != "" && name != "-" {
					return name
				}
			}
			return f.Name
		})
		_ = v.RegisterValidation("shipmode", func(fl validator.FieldLevel) bool {
			_, err := models.ParseMode(fl.Field().String())
			return err == nil
		})
	})
}

type pageQuery struct {
	Page     int `form:"page,default=1" binding:"min=1"`
	PageSize int `form:"page_size,default=20" binding:"min=1,max=100"`
}

func (q pageQuery) request() models.PageRequest {
	return models.PageRequest{Page: q.Page, PageSize: q.PageSize}
}
