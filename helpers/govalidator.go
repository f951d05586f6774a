package helpers

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/shopspring/decimal"
	"github.com/thedevsaddam/govalidator"
)

var minimumAmount = decimal.New(1, -2)

func init() {
	govalidator.AddCustomRule("positive_amount", func(field string, rule string, message string, value interface{}) error {
		var amount decimal.Decimal
		switch v := value.(type) {
		case json.Number:
			parsed, err := decimal.NewFromString(v.String())
			if err != nil {
				return fmt.Errorf("The %s field must be a number", field)
			}
			amount = parsed
		case string:
			parsed, err := decimal.NewFromString(v)
			if err != nil {
				return fmt.Errorf("The %s field must be a number", field)
			}
			amount = parsed
		default:
			rv := reflect.ValueOf(value)
			switch rv.Kind() {
			case reflect.Float32, reflect.Float64:
				amount = decimal.NewFromFloat(rv.Float())
			case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
				amount = decimal.NewFromInt(rv.Int())
			default:
				return fmt.Errorf("The %s field must be a number", field)
			}
		}
		if amount.LessThan(minimumAmount) {
			if message != "" {
				return fmt.Errorf(message)
			}
			return fmt.Errorf("The %s field must be at least 0.01", field)
		}
		return nil
	})
}
