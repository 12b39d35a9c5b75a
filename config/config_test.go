package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoZeroFields(t *testing.T) {
	cfg := Default()

	for _, field := range visit(newVar(*cfg), "Config", false) {
		assert.Fail(t, "zero-value field", field)
	}
}

func TestLoad(t *testing.T) {
	t.Run("overrides on top of defaults", func(t *testing.T) {
		cfg, err := Load(strings.NewReader(`{
			"Body": {"MaxSize": 1024},
			"NET": {"ReadTimeout": 1000000000},
			"Auth": [{"Type": "htpasswd", "Options": {"file": "/etc/htpasswd"}}]
		}`))
		require.NoError(t, err)
		require.Equal(t, int64(1024), cfg.Body.MaxSize)
		require.Equal(t, time.Second, cfg.NET.ReadTimeout)
		require.Equal(t, Default().NET.WriteTimeout, cfg.NET.WriteTimeout)
		require.Equal(t, Default().Headers, cfg.Headers)
		require.Equal(t, []AuthAdapter{{
			Type:    "htpasswd",
			Options: map[string]string{"file": "/etc/htpasswd"},
		}}, cfg.Auth)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := Load(strings.NewReader(`{"Body": `))
		require.Error(t, err)
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"Line": {"MaxLength": 100}}`), 0o600))

		cfg, err := LoadFile(path)
		require.NoError(t, err)
		require.Equal(t, 100, cfg.Line.MaxLength)

		_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
		require.Error(t, err)
	})
}

type variable struct {
	Type  reflect.Type
	Value reflect.Value
}

func newVar(a any) variable {
	return variable{reflect.TypeOf(a), reflect.ValueOf(a)}
}

func visit(a variable, name string, nullable bool) (fields []string) {
	if a.Type.Kind() == reflect.Struct {
		for field := range a.Value.NumField() {
			v1 := variable{a.Type.Field(field).Type, a.Value.Field(field)}
			fieldname := a.Type.Field(field).Name
			isNullable := a.Type.Field(field).Tag.Get("test") == "nullable"
			fields = append(fields, visit(v1, name+"."+fieldname, isNullable)...)
		}

		return fields
	}

	if a.Value.IsZero() && !nullable {
		return []string{name}
	}

	return nil
}
