package cf

import (
	"fmt"
	"github.com/pkg/errors"
	"reflect"
	"time"
)

// Load binds the values in data onto the exported fields of the struct pointed to by cf. Keys are
// taken from the `cf` field tag, falling back to the field name. Keys missing from data leave the
// field untouched.
func Load(data map[string]interface{}, cf interface{}) error {
	cfV := reflect.ValueOf(cf)
	if cfV.Kind() != reflect.Ptr || cfV.IsNil() {
		return errors.Errorf("cf type [%v] not pointer to struct", reflect.TypeOf(cf))
	}
	cfV = cfV.Elem()
	if cfV.Kind() != reflect.Struct {
		return errors.Errorf("cf type [%s] not struct", cfV.Type())
	}
	for i := 0; i < cfV.NumField(); i++ {
		field := cfV.Type().Field(i)
		if skip(field) || !cfV.Field(i).CanSet() {
			continue
		}
		key := keyName(field)
		v, found := data[key]
		if !found {
			continue
		}
		if err := set(cfV.Field(i), key, v); err != nil {
			return err
		}
	}
	return nil
}

func set(fV reflect.Value, key string, v interface{}) error {
	switch fV.Interface().(type) {
	case time.Duration:
		switch d := v.(type) {
		case string:
			parsed, err := time.ParseDuration(d)
			if err != nil {
				return errors.Wrapf(err, "field '%s' invalid duration", key)
			}
			fV.SetInt(int64(parsed))
		case int:
			fV.SetInt(int64(time.Duration(d) * time.Millisecond))
		default:
			return mismatch(fV, key, v)
		}

	case int, int64:
		switch j := v.(type) {
		case int:
			fV.SetInt(int64(j))
		case int64:
			fV.SetInt(j)
		default:
			return mismatch(fV, key, v)
		}

	case float64:
		switch f := v.(type) {
		case float64:
			fV.SetFloat(f)
		case int:
			fV.SetFloat(float64(f))
		default:
			return mismatch(fV, key, v)
		}

	case bool:
		if b, ok := v.(bool); ok {
			fV.SetBool(b)
		} else {
			return mismatch(fV, key, v)
		}

	case string:
		if s, ok := v.(string); ok {
			fV.SetString(s)
		} else {
			return mismatch(fV, key, v)
		}

	default:
		return errors.Errorf("unsupported field type [%s]", fV.Type())
	}
	return nil
}

func mismatch(fV reflect.Value, key string, v interface{}) error {
	return errors.Errorf("field '%s' type mismatch, got [%v], expected [%s]", key, reflect.TypeOf(v), fV.Type())
}

// Dump renders the bindable fields of cf, one per line, under label.
func Dump(label string, cf interface{}) string {
	cfV := reflect.ValueOf(cf)
	if cfV.Kind() == reflect.Ptr {
		cfV = cfV.Elem()
	}
	if cfV.Kind() != reflect.Struct {
		return ""
	}
	out := label + " {\n"
	format := fmt.Sprintf("\t%%-%ds %%v\n", maxKeyLength(cfV))
	for i := 0; i < cfV.NumField(); i++ {
		field := cfV.Type().Field(i)
		if skip(field) || !cfV.Field(i).CanInterface() {
			continue
		}
		out += fmt.Sprintf(format, keyName(field), cfV.Field(i).Interface())
	}
	out += "}"
	return out
}

func skip(v reflect.StructField) bool {
	return v.Tag.Get("cf") == "-"
}

func keyName(v reflect.StructField) string {
	key := v.Name
	tag := v.Tag.Get("cf")
	if tag != "" {
		key = tag
	}
	return key
}

func maxKeyLength(cfV reflect.Value) int {
	maxKeyLength := 0
	for i := 0; i < cfV.NumField(); i++ {
		field := cfV.Type().Field(i)
		if skip(field) {
			continue
		}
		if keyLength := len(keyName(field)); keyLength > maxKeyLength {
			maxKeyLength = keyLength
		}
	}
	return maxKeyLength
}
