package reflectx

import (
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type named struct{}

func namedFunc() {}

func TestGetTypeName(t *testing.T) {
	tests := map[string]struct {
		typ  reflect.Type
		want string
	}{
		"builtin":        {typ: reflect.TypeFor[int](), want: "int"},
		"named_struct":   {typ: reflect.TypeFor[named](), want: "reflectx.named"},
		"pointer":        {typ: reflect.TypeFor[*named](), want: "*reflectx.named"},
		"unnamed_slice":  {typ: reflect.TypeFor[[]string](), want: "[]string"},
		"function_value": {typ: reflect.TypeFor[func() error](), want: "func() error"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetTypeName(tt.typ))
		})
	}
}

func TestTypeNameOf(t *testing.T) {
	assert.Equal(t, "reflectx.named", TypeNameOf(named{}))
	assert.Equal(t, "*reflectx.named", TypeNameOf(&named{}))
}

func TestFuncLocation(t *testing.T) {
	name, location, ok := FuncLocation(namedFunc)
	require.True(t, ok)
	assert.Equal(t, "reflectx.namedFunc", name)
	assert.True(t, strings.HasPrefix(location, "reflectx/reflectx_test.go:"), location)

	closure := func() {}
	name, _, ok = FuncLocation(closure)
	require.True(t, ok)
	assert.Contains(t, name, "TestFuncLocation")

	var nilFunc func()
	_, _, ok = FuncLocation(nilFunc)
	assert.False(t, ok)

	_, _, ok = FuncLocation("not a func")
	assert.False(t, ok)
}

func TestIterateStructFields(t *testing.T) {
	type target struct {
		A int
		B string
	}

	var fields []string
	err := IterateStructFields(&target{}, func(_ reflect.Value, sf reflect.StructField, tt reflect.Type) error {
		fields = append(fields, sf.Name)
		assert.Equal(t, reflect.TypeFor[*target](), tt)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, fields)

	err = IterateStructFields(target{})
	assert.EqualError(t, err, "target must be a struct pointer, got 'reflectx.target'")

	var nilTarget *target
	err = IterateStructFields(nilTarget)
	assert.Error(t, err)
}

func TestSetFieldValue(t *testing.T) {
	type target struct {
		A int
		b int
	}
	s := &target{}
	v := reflect.ValueOf(s).Elem()

	sfA, _ := v.Type().FieldByName("A")
	require.NoError(t, SetFieldValue(v.FieldByName("A"), sfA, 42))
	assert.Equal(t, 42, s.A)

	sfB, _ := v.Type().FieldByName("b")
	assert.EqualError(t, SetFieldValue(v.FieldByName("b"), sfB, 1), "field 'b' is not settable")
}

func TestGetCallerName(t *testing.T) {
	fn, file, line := GetCallerName(1)
	assert.Contains(t, fn, "TestGetCallerName")
	assert.True(t, strings.HasSuffix(file, "reflectx_test.go"))
	assert.Positive(t, line)
}

func TestFormatNames(t *testing.T) {
	assert.Equal(t, "reflectx.Fn", FormatFunctionName("github.com/cleitonmarx/teardown/internal/reflectx.Fn"))
	assert.Equal(t, "main.main", FormatFunctionName("main.main"))
	assert.Equal(t, "bar/baz.go", FormatFileName("/foo/bar/baz.go"))
}
