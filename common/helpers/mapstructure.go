// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package helpers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mitchellh/mapstructure"
)

var mapstructureUnmarshallerHookFuncs = []mapstructure.DecodeHookFunc{}

// RegisterMapstructureUnmarshallerHook registers a new decoder hook for
// mapstructure. This should only be done during init.
func RegisterMapstructureUnmarshallerHook(hook mapstructure.DecodeHookFunc) {
	mapstructureUnmarshallerHookFuncs = append(mapstructureUnmarshallerHookFuncs, hook)
}

// GetMapStructureDecoderConfig returns a decoder config for
// mapstructure with all registered hooks. Unknown keys are errors and
// keys are matched ignoring case and dashes.
func GetMapStructureDecoderConfig(config any, hooks ...mapstructure.DecodeHookFunc) *mapstructure.DecoderConfig {
	return &mapstructure.DecoderConfig{
		Result:           config,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		MatchName:        MapStructureMatchName,
		DecodeHook: ProtectedDecodeHookFunc(
			mapstructure.ComposeDecodeHookFunc(
				mapstructure.ComposeDecodeHookFunc(hooks...),
				mapstructure.ComposeDecodeHookFunc(mapstructureUnmarshallerHookFuncs...),
				mapstructure.TextUnmarshallerHookFunc(),
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		),
	}
}

// ProtectedDecodeHookFunc wraps a DecodeHookFunc to turn a panic into an error.
func ProtectedDecodeHookFunc(hook mapstructure.DecodeHookFunc) mapstructure.DecodeHookFunc {
	return func(from, to reflect.Value) (v any, err error) {
		defer func() {
			if r := recover(); r != nil {
				v = nil
				err = fmt.Errorf("internal error while parsing: %s", r)
			}
		}()
		return mapstructure.DecodeHookExec(hook, from, to)
	}
}

// MapStructureMatchName tells if map key and field names are equal.
func MapStructureMatchName(mapKey, fieldName string) bool {
	key := strings.ToLower(strings.ReplaceAll(mapKey, "-", ""))
	return key == strings.ToLower(fieldName)
}

// concreteType returns the struct type behind a configuration factory.
func concreteType[Inner any](factory func() Inner) reflect.Type {
	t := reflect.TypeOf(factory())
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// ParametrizedConfigurationUnmarshallerHook decodes a configuration
// parametrized by a type. The outer structure has a "Config" field
// holding a pointer to one of the inner configurations. The "type" key
// selects the inner configuration from the provided map. Keys matching
// an outer field are kept as is, the others are moved to "config" and
// decoded over the default inner configuration.
func ParametrizedConfigurationUnmarshallerHook[Outer any, Inner any](zeroOuter Outer, innerConfigurations map[string](func() Inner)) mapstructure.DecodeHookFunc {
	return func(from, to reflect.Value) (any, error) {
		if to.Type() != reflect.TypeOf(zeroOuter) {
			return from.Interface(), nil
		}
		if from.Kind() != reflect.Map {
			return nil, errors.New("configuration should be a map")
		}
		configField := to.FieldByName("Config")
		innerMap := reflect.MakeMap(reflect.TypeOf(gin.H{}))
		innerType := ""

	keys:
		for _, key := range from.MapKeys() {
			// YAML may unmarshal keys to interfaces
			if unwrapInterface(key).Kind() != reflect.String {
				continue
			}
			keyStr := unwrapInterface(key).String()
			switch strings.ToLower(keyStr) {
			case "type":
				typeVal := unwrapInterface(from.MapIndex(key))
				if typeVal.Kind() != reflect.String {
					return nil, fmt.Errorf("type should be a string not %s", typeVal.Kind())
				}
				innerType = strings.ToLower(typeVal.String())
				from.SetMapIndex(key, reflect.Value{})
			case "config":
				return nil, errors.New("configuration should not have a `config' key")
			default:
				for _, field := range reflect.VisibleFields(to.Type()) {
					if MapStructureMatchName(keyStr, field.Name) {
						continue keys
					}
				}
				innerMap.SetMapIndex(reflect.ValueOf(keyStr), from.MapIndex(key))
				from.SetMapIndex(key, reflect.Value{})
			}
		}
		from.SetMapIndex(reflect.ValueOf("config"), innerMap)

		// Without an explicit type, keep the current one.
		if innerType == "" && !configField.IsNil() {
			current := configField.Elem().Type().Elem()
			for name, factory := range innerConfigurations {
				if concreteType(factory) == current {
					innerType = name
					break
				}
			}
		}
		if innerType == "" {
			return nil, errors.New("configuration has no type")
		}
		factory, ok := innerConfigurations[innerType]
		if !ok {
			return nil, fmt.Errorf("%q is not a known type", innerType)
		}

		// Decode over a copy of the current value if it has the same
		// type, otherwise over the defaults.
		defaults := factory()
		base := reflect.Indirect(reflect.ValueOf(defaults))
		if !configField.IsNil() && configField.Elem().Type() == reflect.TypeOf(defaults) {
			base = reflect.Indirect(configField.Elem())
		}
		copied := reflect.New(base.Type())
		copied.Elem().Set(base)
		configField.Set(copied)
		return from.Interface(), nil
	}
}

// ParametrizedConfigurationMarshalYAML undoes ParametrizedConfigurationUnmarshallerHook().
func ParametrizedConfigurationMarshalYAML[Outer any, Inner any](oc Outer, innerConfigurations map[string](func() Inner)) (any, error) {
	outer := unwrapInterface(reflect.ValueOf(oc))
	result := gin.H{}
	var inner reflect.Value
	for i, field := range reflect.VisibleFields(outer.Type()) {
		if field.Name == "Config" {
			inner = reflect.Indirect(outer.Field(i).Elem())
			continue
		}
		result[strings.ToLower(field.Name)] = outer.Field(i).Interface()
	}
	if !inner.IsValid() {
		return nil, errors.New("configuration has no inner configuration")
	}
	for name, factory := range innerConfigurations {
		if concreteType(factory) == inner.Type() {
			result["type"] = name
			break
		}
	}
	if result["type"] == nil {
		return nil, errors.New("unable to guess configuration type")
	}
	for i, field := range reflect.VisibleFields(inner.Type()) {
		result[strings.ToLower(field.Name)] = inner.Field(i).Interface()
	}
	return result, nil
}

// unwrapInterface returns the value held by an interface. Other values
// are returned unmodified.
func unwrapInterface(value reflect.Value) reflect.Value {
	if value.Kind() == reflect.Interface {
		return value.Elem()
	}
	return value
}
