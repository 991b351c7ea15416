// Package reflectx holds the reflection helpers behind struct tag injection and
// the source locations reported for failing tasks.
package reflectx

import (
	"fmt"
	"path"
	"reflect"
	"runtime"
	"strings"
)

// GetTypeName returns "package.TypeName" for named types and the type literal otherwise.
func GetTypeName(t reflect.Type) string {
	if t.PkgPath() == "" {
		if t.Name() == "" {
			return t.String()
		}
		return t.Name()
	}
	return fmt.Sprintf("%s.%s", path.Base(t.PkgPath()), t.Name())
}

// TypeNameOf returns the %T representation of v.
func TypeNameOf(v any) string {
	return fmt.Sprintf("%T", v)
}

// FuncLocation returns the short name ("package.Func") and the "file:line" of
// the function value fn. ok is false when fn is not a non-nil func.
func FuncLocation(fn any) (name, location string, ok bool) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return "", "", false
	}
	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return "", "", false
	}
	file, line := f.FileLine(f.Entry())
	return FormatFunctionName(f.Name()), fmt.Sprintf("%s:%d", FormatFileName(file), line), true
}

// StructFieldIteratorFunc is called for each field of a struct during IterateStructFields.
type StructFieldIteratorFunc func(fieldValue reflect.Value, structField reflect.StructField, targetType reflect.Type) error

// IterateStructFields calls every fn, in order, for each field of the struct target points to.
func IterateStructFields(target any, fns ...StructFieldIteratorFunc) error {
	v := reflect.ValueOf(target)
	if !IsPointerStruct(v) {
		return fmt.Errorf("target must be a struct pointer, got '%s'", GetTypeName(v.Type()))
	}
	targetType := v.Type()
	v = v.Elem()
	t := v.Type()
	for i := range v.NumField() {
		for _, fn := range fns {
			if err := fn(v.Field(i), t.Field(i), targetType); err != nil {
				return err
			}
		}
	}
	return nil
}

// SetFieldValue assigns value to field, failing for fields that cannot be set.
func SetFieldValue(field reflect.Value, structField reflect.StructField, value any) error {
	if !field.CanSet() {
		return fmt.Errorf("field '%s' is not settable", structField.Name)
	}
	field.Set(reflect.ValueOf(value))
	return nil
}

// GetCallerName returns the function, file and line of the caller skip frames up.
func GetCallerName(skip int) (string, string, int) {
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "unknown", "unknown", 0
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "unknown", "unknown", 0
	}
	return fn.Name(), file, line
}

// FormatFunctionName trims a qualified function name to "package.Func".
func FormatFunctionName(name string) string {
	if idx := strings.LastIndex(name, "/"); idx != -1 {
		return name[idx+1:]
	}
	return name
}

// FormatFileName trims a path to its last directory and file name ("dir/file.go").
func FormatFileName(file string) string {
	dir, fileName := path.Split(file)
	return fmt.Sprintf("%s/%s", path.Base(path.Clean(dir)), fileName)
}

// IsPointerStruct reports whether v is a non-nil pointer to a struct.
func IsPointerStruct(v reflect.Value) bool {
	return v.Kind() == reflect.Pointer && !v.IsNil() && v.Elem().Kind() == reflect.Struct
}
