package masker

import (
	"fmt"
	"reflect"
	"time"

	"go.uber.org/zap"
)

var durationType = reflect.TypeOf(time.Duration(0))

// LogConfigs логгирует структуры конфигурации, по строке на каждую.
// Поля с тегом masked:"true" маскируются, неэкспортируемые поля пропускаются.
// Встроенные и вложенные структуры логгируются вложенными объектами.
func LogConfigs(logger *zap.Logger, configs ...interface{}) error {
	for _, config := range configs {
		v := reflect.ValueOf(config)
		if v.Kind() != reflect.Ptr || v.IsNil() {
			return fmt.Errorf("%w: got %T", ErrConfigNotPointer, config)
		}
		v = v.Elem()
		if v.Kind() != reflect.Struct {
			return fmt.Errorf("%w: got %s", ErrConfigNotStruct, v.Kind())
		}

		logger.Info("config loaded", zap.Any(v.Type().Name(), maskStructFields(v)))
	}
	return nil
}

func maskStructFields(v reflect.Value) map[string]interface{} {
	t := v.Type()
	result := make(map[string]interface{}, v.NumField())
	for i := 0; i < v.NumField(); i++ {
		fieldType := t.Field(i)
		if !fieldType.IsExported() {
			continue
		}
		result[fieldType.Name] = maskValue(v.Field(i), fieldType.Tag.Get("masked") == "true")
	}
	return result
}

func maskValue(field reflect.Value, masked bool) interface{} {
	switch {
	case field.Type() == durationType:
		return time.Duration(field.Int()).String()

	case field.Kind() == reflect.Struct:
		return maskStructFields(field)

	case field.Kind() == reflect.String:
		if masked {
			return maskSensitiveData(field.String())
		}
		return field.String()

	// Список строк маскируется поэлементно
	case field.Kind() == reflect.Slice && field.Type().Elem().Kind() == reflect.String:
		out := make([]string, field.Len())
		for i := range out {
			out[i] = field.Index(i).String()
			if masked {
				out[i] = maskSensitiveData(out[i])
			}
		}
		return out

	case masked:
		return "****"

	default:
		return field.Interface()
	}
}

// maskSensitiveData оставляет первый и последний символ.
// Строка из 2 символов и короче заменяется на "****".
func maskSensitiveData(data string) string {
	runes := []rune(data)
	if len(runes) <= 2 {
		return "****"
	}
	return string(runes[0]) + "****" + string(runes[len(runes)-1])
}
