package env

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

var (
	errInvalidJSON = errors.New("invalid JSON")
	errNotObject   = errors.New("top level value is not an object")
)

// jsonEnv is a single environment decoded from a JSON environment file.
type jsonEnv struct {
	err  error // Non nil if this environment was malformed and should be skipped
	vars Vars
	name string
}

// parseJSON decodes a JSON environment file, preserving the order environments
// are declared in.
//
// Variable values are used verbatim if they are strings, anything else is
// kept as its raw JSON text e.g. 8080 becomes "8080".
func parseJSON(data []byte) ([]jsonEnv, error) {
	if !gjson.ValidBytes(data) {
		return nil, errInvalidJSON
	}

	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, errNotObject
	}

	var envs []jsonEnv
	root.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if !value.IsObject() {
			envs = append(envs, jsonEnv{
				name: name,
				err:  fmt.Errorf("environment %q is not an object", name),
			})
			return true
		}

		vars := make(Vars)
		value.ForEach(func(k, v gjson.Result) bool {
			if v.Type == gjson.String {
				vars[k.String()] = v.String()
			} else {
				vars[k.String()] = v.Raw
			}
			return true
		})

		envs = append(envs, jsonEnv{name: name, vars: vars})
		return true
	})

	return envs, nil
}
